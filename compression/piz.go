package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrPIZCorrupted is returned when a PIZ-compressed chunk is truncated or
// its embedded range/length table is inconsistent.
var ErrPIZCorrupted = errors.New("compression: corrupted PIZ data")

// pizAlphabet is the number of distinct uint16 values a chunk's samples
// can take (the full 16-bit range).
const pizAlphabet = 1 << 16

// buildBitmap scans data for the set of distinct values present, returning
// a 65536-bit presence bitmap.
func buildBitmap(data []uint16) []byte {
	bitmap := make([]byte, pizAlphabet/8)
	for _, v := range data {
		bitmap[v>>3] |= 1 << (v & 7)
	}
	return bitmap
}

// forwardLUT builds a table mapping each value present in the bitmap to a
// compacted index in [0, maxValue], and returns maxValue.
func forwardLUT(bitmap []byte) (lut [pizAlphabet]uint16, maxValue uint16) {
	var k uint16
	for i := 0; i < pizAlphabet; i++ {
		if bitmap[i>>3]&(1<<(uint(i)&7)) != 0 {
			lut[i] = k
			if k < 0xFFFF {
				k++
			}
		}
	}
	if k > 0 {
		maxValue = k - 1
	}
	return
}

// reverseLUT builds the inverse mapping from compacted index back to the
// original 16-bit value.
func reverseLUT(bitmap []byte, maxValue uint16) []uint16 {
	out := make([]uint16, int(maxValue)+1)
	var k uint16
	for i := 0; i < pizAlphabet && k <= maxValue; i++ {
		if bitmap[i>>3]&(1<<(uint(i)&7)) != 0 {
			out[k] = uint16(i)
			k++
		}
	}
	return out
}

// PIZCompress compresses an interleaved stack of `channels` uint16 planes
// (each width*height samples, in channel-major order) using value-range
// compaction, a 2-D integer wavelet transform per plane, and canonical
// Huffman entropy coding of the transformed coefficients.
func PIZCompress(data []uint16, width, height, channels int) ([]byte, error) {
	if len(data) == 0 || width <= 0 || height <= 0 || channels <= 0 {
		return nil, nil
	}
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: data length %d does not match %dx%dx%d", ErrPIZCorrupted, len(data), width, height, channels)
	}

	bitmap := buildBitmap(data)
	lut, maxValue := forwardLUT(bitmap)

	remapped := make([]uint16, len(data))
	for i, v := range data {
		remapped[i] = lut[v]
	}

	planeSize := width * height
	for c := 0; c < channels; c++ {
		plane := remapped[c*planeSize : (c+1)*planeSize]
		Wav2DEncode(plane, width, height, maxValue)
	}

	freqs := make([]uint64, pizAlphabet)
	for _, v := range remapped {
		freqs[v]++
	}
	enc := NewHuffmanEncoder(freqs)
	lengths := enc.GetLengths()
	encoded := enc.Encode(remapped)

	var buf bytes.Buffer
	buf.Write(bitmap)

	nonzero := 0
	for _, l := range lengths {
		if l > 0 {
			nonzero++
		}
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(nonzero))
	buf.Write(hdr[:])
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		var rec [5]byte
		binary.LittleEndian.PutUint32(rec[:4], uint32(sym))
		rec[4] = byte(l)
		buf.Write(rec[:])
	}

	var encLen [4]byte
	binary.LittleEndian.PutUint32(encLen[:], uint32(len(encoded)))
	buf.Write(encLen[:])
	buf.Write(encoded)

	return buf.Bytes(), nil
}

// PIZCompressBytes is PIZCompress for callers that hold pixel samples as a
// little-endian byte buffer rather than a []uint16 slice.
func PIZCompressBytes(data []byte, width, height, channels int) ([]byte, error) {
	samples := bytesToUint16LE(data)
	return PIZCompress(samples, width, height, channels)
}

// PIZDecompressBytes is PIZDecompress for callers that want the
// reconstructed samples back as a little-endian byte buffer.
func PIZDecompressBytes(compressed []byte, width, height, channels int) ([]byte, error) {
	samples, err := PIZDecompress(compressed, width, height, channels)
	if err != nil {
		return nil, err
	}
	return uint16LEToBytes(samples), nil
}

func bytesToUint16LE(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return out
}

func uint16LEToBytes(data []uint16) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// PIZDecompress reverses PIZCompress, reconstructing width*height*channels
// uint16 samples.
func PIZDecompress(compressed []byte, width, height, channels int) ([]uint16, error) {
	if len(compressed) == 0 || width <= 0 || height <= 0 || channels <= 0 {
		return nil, nil
	}

	r := bytes.NewReader(compressed)

	bitmap := make([]byte, pizAlphabet/8)
	if _, err := io.ReadFull(r, bitmap); err != nil {
		return nil, fmt.Errorf("%w: reading bitmap: %v", ErrPIZCorrupted, err)
	}
	_, maxValue := forwardLUT(bitmap)
	rlut := reverseLUT(bitmap, maxValue)

	var nonzero uint32
	if err := binary.Read(r, binary.LittleEndian, &nonzero); err != nil {
		return nil, fmt.Errorf("%w: reading length table size: %v", ErrPIZCorrupted, err)
	}
	lengths := make([]int, pizAlphabet)
	for i := uint32(0); i < nonzero; i++ {
		var rec [5]byte
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: reading length table entry: %v", ErrPIZCorrupted, err)
		}
		sym := binary.LittleEndian.Uint32(rec[:4])
		if int(sym) >= len(lengths) {
			return nil, fmt.Errorf("%w: symbol index out of range", ErrPIZCorrupted)
		}
		lengths[sym] = int(rec[4])
	}

	var encLen uint32
	if err := binary.Read(r, binary.LittleEndian, &encLen); err != nil {
		return nil, fmt.Errorf("%w: reading bitstream length: %v", ErrPIZCorrupted, err)
	}
	encoded := make([]byte, encLen)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return nil, fmt.Errorf("%w: reading bitstream: %v", ErrPIZCorrupted, err)
	}

	n := width * height * channels
	dec := NewFastHufDecoder(lengths)
	remapped, err := dec.Decode(encoded, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPIZCorrupted, err)
	}

	planeSize := width * height
	for c := 0; c < channels; c++ {
		plane := remapped[c*planeSize : (c+1)*planeSize]
		Wav2DDecode(plane, width, height, maxValue)
	}

	out := make([]uint16, n)
	for i, v := range remapped {
		if int(v) >= len(rlut) {
			return nil, fmt.Errorf("%w: remapped value out of LUT range", ErrPIZCorrupted)
		}
		out[i] = rlut[v]
	}
	return out, nil
}
