package exr

import (
	"fmt"
	"io"

	"github.com/TriceHelix/openexr-go/internal/xdr"
)

// MagicNumber is the four-byte sequence that opens every EXR file.
var MagicNumber = []byte{0x76, 0x2f, 0x31, 0x01}

// Version field bit layout (§3/§6): the low byte holds the format version
// number; bits 9-12 hold feature flags.
const (
	versionFlagTiled     = 1 << 9
	versionFlagLongNames = 1 << 10
	versionFlagNonImage  = 1 << 11
	versionFlagMultipart = 1 << 12
)

// Version describes a parsed file-level version field.
type Version struct {
	Number     int
	Tiled      bool
	LongNames  bool
	NonImage   bool
	Multipart  bool
}

// MakeVersionField packs a version number and feature flags into the
// on-disk version word.
func MakeVersionField(version int, tiled, longNames, nonImage, multipart bool) uint32 {
	v := uint32(version) & 0xFF
	if tiled {
		v |= versionFlagTiled
	}
	if longNames {
		v |= versionFlagLongNames
	}
	if nonImage {
		v |= versionFlagNonImage
	}
	if multipart {
		v |= versionFlagMultipart
	}
	return v
}

func parseVersion(v uint32) Version {
	return Version{
		Number:    int(v & 0xFF),
		Tiled:     v&versionFlagTiled != 0,
		LongNames: v&versionFlagLongNames != 0,
		NonImage:  v&versionFlagNonImage != 0,
		Multipart: v&versionFlagMultipart != 0,
	}
}

// File is a parsed EXR file: its version word, one Header per part, each
// part's chunk offset table, and the raw byte image the chunks are sliced
// out of on demand.
type File struct {
	data    []byte
	version Version
	headers []*Header
	offsets [][]int64
	closer  io.Closer
}

// peekByteIsZero reports whether the next byte is 0 without consuming it
// when it is not, per the multipart header list's "one more zero byte
// means no more parts" terminator (§4.2).
func peekByteIsZero(r *xdr.Reader) (bool, error) {
	pos := r.Pos()
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	if b == 0 {
		return true, nil
	}
	if err := r.SetPos(pos); err != nil {
		return false, err
	}
	return false, nil
}

// OpenReader parses the magic bytes, version field, part header(s) and
// chunk offset table(s) out of r, which must expose exactly `size` bytes.
// The returned File holds its own copy of the file's bytes, so further
// reads and writes to the underlying reader do not affect it.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	if r == nil || size < 8 {
		return nil, fmt.Errorf("%w: reader too small", ErrInvalidFile)
	}

	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	xr := xdr.NewReader(data)

	magic, err := xr.ReadBytes(4)
	if err != nil || !bytesEqual(magic, MagicNumber) {
		return nil, ErrInvalidMagic
	}

	rawVersion, err := xr.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}
	version := parseVersion(rawVersion)
	if version.Number != 2 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidVersion, version.Number)
	}

	var headers []*Header
	if version.Multipart {
		for {
			h, err := ReadHeader(xr)
			if err != nil {
				return nil, fmt.Errorf("%w: part %d: %v", ErrInvalidHeader, len(headers), err)
			}
			headers = append(headers, h)
			done, err := peekByteIsZero(xr)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
			}
			if done {
				break
			}
		}
	} else {
		h, err := ReadHeader(xr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if version.Tiled && !h.IsTiled() {
			h.SetTileDescription(TileDescription{XSize: 32, YSize: 32, Mode: LevelModeOne})
		}
		headers = []*Header{h}
	}

	offsets := make([][]int64, len(headers))
	for i, h := range headers {
		n := h.ChunksInFile()
		table := make([]int64, n)
		for j := 0; j < n; j++ {
			v, err := xr.ReadInt64()
			if err != nil {
				return nil, fmt.Errorf("%w: part %d chunk offset %d: %v", ErrInvalidHeader, i, j, err)
			}
			table[j] = v
		}
		offsets[i] = table
	}

	return &File{data: data, version: version, headers: headers, offsets: offsets}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Header returns the header for the given part, or nil if out of range.
func (f *File) Header(part int) *Header {
	if part < 0 || part >= len(f.headers) {
		return nil
	}
	return f.headers[part]
}

// NumParts returns the number of parts in the file.
func (f *File) NumParts() int {
	return len(f.headers)
}

// IsMultiPart reports whether the file's version word carries the
// multipart flag.
func (f *File) IsMultiPart() bool {
	return f.version.Multipart
}

// IsDeep reports whether part 0 holds deep scanline or deep tiled data.
func (f *File) IsDeep() bool {
	h := f.Header(0)
	if h == nil {
		return false
	}
	t := h.Type()
	return t == PartTypeDeepScanline || t == PartTypeDeepTiled
}

// Version returns the file's parsed version word.
func (f *File) Version() Version {
	return f.version
}

// VersionField reconstructs the raw on-disk version word.
func (f *File) VersionField() uint32 {
	return MakeVersionField(f.version.Number, f.version.Tiled, f.version.LongNames, f.version.NonImage, f.version.Multipart)
}

// Data returns the file's raw bytes, for callers that slice chunk payloads
// out of it directly.
func (f *File) Data() []byte {
	return f.data
}

// OffsetsRef returns the chunk offset table for the given part, or nil if
// the part index is out of range.
func (f *File) OffsetsRef(part int) []int64 {
	if part < 0 || part >= len(f.offsets) {
		return nil
	}
	return f.offsets[part]
}

// chunkReader returns an xdr.Reader positioned at the chunk offset table
// entry for (part, chunkIndex), or an error if either is out of range.
func (f *File) chunkReader(part, chunkIndex int) (*xdr.Reader, error) {
	offsets := f.OffsetsRef(part)
	if offsets == nil {
		return nil, fmt.Errorf("%w: part %d", ErrPartNotFound, part)
	}
	if chunkIndex < 0 || chunkIndex >= len(offsets) {
		return nil, fmt.Errorf("%w: chunk %d", ErrScanlineOutOfRange, chunkIndex)
	}
	off := offsets[chunkIndex]
	if off < 0 || off > int64(len(f.data)) {
		return nil, fmt.Errorf("%w: chunk offset %d out of range", ErrInvalidData, off)
	}
	return xdr.NewReader(f.data[off:]), nil
}

// ReadScanlineChunk reads a scanline chunk's header and returns the
// scanline y at which it begins along with its (still compressed) pixel
// payload.
func (f *File) ReadScanlineChunk(part, chunkIndex int) (y int32, payload []byte, err error) {
	r, err := f.chunkReader(part, chunkIndex)
	if err != nil {
		return 0, nil, err
	}
	y, err = r.ReadInt32()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	size, err := r.ReadInt32()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	payload, err = r.ReadBytes(int(size))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return y, payload, nil
}

// ReadChunk reads a scanline chunk from the given part, equivalent to
// ReadScanlineChunk(part, chunkIndex).
func (f *File) ReadChunk(part, chunkIndex int) (y int32, data []byte, err error) {
	return f.ReadScanlineChunk(part, chunkIndex)
}

// ReadTileChunk reads a tile chunk's header and returns its coordinates
// along with its (still compressed) pixel payload.
func (f *File) ReadTileChunk(part, chunkIndex int) (tileX, tileY, levelX, levelY int32, payload []byte, err error) {
	r, err := f.chunkReader(part, chunkIndex)
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	if tileX, err = r.ReadInt32(); err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if tileY, err = r.ReadInt32(); err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if levelX, err = r.ReadInt32(); err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if levelY, err = r.ReadInt32(); err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	size, err := r.ReadInt32()
	if err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	payload, err = r.ReadBytes(int(size))
	if err != nil {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return tileX, tileY, levelX, levelY, payload, nil
}

// ReadDeepChunk reads a deep scanline chunk, returning the scanline y at
// which it begins and its still-compressed sample-count table and pixel
// data, per the {y, packedSampleCountSize, packedDataSize} chunk header
// DeepScanlineWriter emits.
func (f *File) ReadDeepChunk(part, chunkIndex int) (y int32, sampleCounts, pixelData []byte, err error) {
	r, err := f.chunkReader(part, chunkIndex)
	if err != nil {
		return 0, nil, nil, err
	}
	y, err = r.ReadInt32()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	sampleCountSize, err := r.ReadUint64()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	pixelDataSize, err := r.ReadUint64()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	sampleCounts, err = r.ReadBytes(int(sampleCountSize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	pixelData, err = r.ReadBytes(int(pixelDataSize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return y, sampleCounts, pixelData, nil
}

// ReadDeepTileChunk reads a deep tiled chunk, returning the tile's y
// coordinate (tileY, ignoring tileX/levelX/levelY which callers recover
// from the chunk index) and its still-compressed sample-count table and
// pixel data, per the {tileX, tileY, levelX, levelY,
// packedSampleCountSize, packedDataSize} chunk header DeepTiledWriter
// emits.
func (f *File) ReadDeepTileChunk(part, chunkIndex int) (tileY int32, sampleCounts, pixelData []byte, err error) {
	r, err := f.chunkReader(part, chunkIndex)
	if err != nil {
		return 0, nil, nil, err
	}
	if _, err = r.ReadInt32(); err != nil { // tileX
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	tileY, err = r.ReadInt32()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err = r.ReadInt32(); err != nil { // levelX
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err = r.ReadInt32(); err != nil { // levelY
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	sampleCountSize, err := r.ReadUint64()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	pixelDataSize, err := r.ReadUint64()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	sampleCounts, err = r.ReadBytes(int(sampleCountSize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	pixelData, err = r.ReadBytes(int(pixelDataSize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return tileY, sampleCounts, pixelData, nil
}

// Close releases the resource OpenFile/OpenFileMmap associated with this
// File, if any.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
