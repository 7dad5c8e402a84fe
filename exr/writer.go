package exr

import (
	"fmt"
	"io"

	"github.com/TriceHelix/openexr-go/internal/xdr"
)

// Writer is the low-level chunk writer underlying both the single-part and
// multi-part output files: it owns the magic/version/header framing and the
// per-part offset table, and exposes raw chunk writes keyed by part index.
// ScanlineWriter, TiledWriter and MultiPartOutputFile all build on it rather
// than re-deriving the file framing themselves.
type Writer struct {
	w         io.WriteSeeker
	headers   []*Header
	multipart bool

	offsetTablePos []int64
	chunkOffsets   [][]int64
}

// NewWriter creates a single-part writer for h, writing the magic number,
// version field, header and offset-table placeholder immediately.
func NewWriter(w io.WriteSeeker, h *Header) (*Writer, error) {
	return newWriter(w, []*Header{h}, false)
}

// NewMultiPartWriter creates a writer for a multi-part file with one part
// per header, writing the magic number, version field, concatenated header
// list and one offset-table placeholder per part immediately.
func NewMultiPartWriter(w io.WriteSeeker, headers []*Header) (*Writer, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no headers", ErrInvalidHeader)
	}
	return newWriter(w, headers, true)
}

func newWriter(w io.WriteSeeker, headers []*Header, multipart bool) (*Writer, error) {
	tiled := false
	deep := false
	longNames := false
	for _, h := range headers {
		if h.IsTiled() {
			tiled = true
		}
		t := h.Type()
		if t == PartTypeDeepScanline || t == PartTypeDeepTiled {
			deep = true
		}
		for _, a := range h.attrs {
			if len(a.Name) >= 32 {
				longNames = true
			}
		}
	}
	// The tiled flag only applies to a single-part file; a multi-part file
	// carries per-part type attributes instead. The deep (non-image) flag is
	// set whenever any part is deep.
	if multipart {
		tiled = false
	}

	if _, err := w.Write(MagicNumber); err != nil {
		return nil, err
	}

	versionField := MakeVersionField(2, tiled, longNames, deep, multipart)
	versionBuf := make([]byte, 4)
	xdr.ByteOrder.PutUint32(versionBuf, versionField)
	if _, err := w.Write(versionBuf); err != nil {
		return nil, err
	}

	for i, h := range headers {
		headerBuf := xdr.NewBufferWriter(1024)
		if err := WriteHeader(headerBuf, h); err != nil {
			return nil, fmt.Errorf("exr: writing header for part %d: %w", i, err)
		}
		if _, err := w.Write(headerBuf.Bytes()); err != nil {
			return nil, err
		}
	}
	if multipart {
		if _, err := w.Write([]byte{0}); err != nil {
			return nil, err
		}
	}

	wr := &Writer{
		w:              w,
		headers:        headers,
		multipart:      multipart,
		offsetTablePos: make([]int64, len(headers)),
		chunkOffsets:   make([][]int64, len(headers)),
	}

	for i, h := range headers {
		pos, err := w.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		wr.offsetTablePos[i] = pos

		n := h.ChunksInFile()
		wr.chunkOffsets[i] = make([]int64, n)
		placeholder := make([]byte, n*8)
		if _, err := w.Write(placeholder); err != nil {
			return nil, err
		}
	}

	return wr, nil
}

func (w *Writer) partHeader(part int) (*Header, error) {
	if part < 0 || part >= len(w.headers) {
		return nil, fmt.Errorf("%w: part %d", ErrPartNotFound, part)
	}
	return w.headers[part], nil
}

// WriteChunk writes a scanline chunk to part 0.
func (w *Writer) WriteChunk(y int32, data []byte) error {
	return w.WriteChunkPart(0, y, data)
}

// WriteChunkPart writes a scanline chunk beginning at y to the given part.
func (w *Writer) WriteChunkPart(part int, y int32, data []byte) error {
	h, err := w.partHeader(part)
	if err != nil {
		return err
	}

	dw := h.DataWindow()
	linesPerChunk := h.Compression().ScanlinesPerChunk()
	chunkIndex := (int(y) - int(dw.Min.Y)) / linesPerChunk
	if chunkIndex < 0 || chunkIndex >= len(w.chunkOffsets[part]) {
		return fmt.Errorf("%w: chunk index %d for y=%d", ErrScanlineOutOfRange, chunkIndex, y)
	}

	offset, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	w.chunkOffsets[part][chunkIndex] = offset

	header := make([]byte, 8)
	xdr.ByteOrder.PutUint32(header[0:4], uint32(y))
	xdr.ByteOrder.PutUint32(header[4:8], uint32(len(data)))
	if _, err := w.w.Write(header); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return nil
}

// WriteTileChunkPart writes a tile chunk at (tileX, tileY) in level
// (levelX, levelY) to the given part.
func (w *Writer) WriteTileChunkPart(part, tileX, tileY, levelX, levelY int, data []byte) error {
	h, err := w.partHeader(part)
	if err != nil {
		return err
	}
	td := h.TileDescription()
	if td == nil {
		return ErrNotTiled
	}

	chunkIndex, err := TileChunkIndex(*td, h.Width(), h.Height(), tileX, tileY, levelX, levelY)
	if err != nil {
		return err
	}
	if chunkIndex < 0 || chunkIndex >= len(w.chunkOffsets[part]) {
		return fmt.Errorf("%w: chunk index %d", ErrTileOutOfRange, chunkIndex)
	}

	offset, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	w.chunkOffsets[part][chunkIndex] = offset

	header := make([]byte, 20)
	xdr.ByteOrder.PutUint32(header[0:4], uint32(tileX))
	xdr.ByteOrder.PutUint32(header[4:8], uint32(tileY))
	xdr.ByteOrder.PutUint32(header[8:12], uint32(levelX))
	xdr.ByteOrder.PutUint32(header[12:16], uint32(levelY))
	xdr.ByteOrder.PutUint32(header[16:20], uint32(len(data)))
	if _, err := w.w.Write(header); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return nil
}

// Close backpatches every part's offset table with the chunk positions
// recorded during writing.
func (w *Writer) Close() error {
	currentPos, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	for i, offsets := range w.chunkOffsets {
		if _, err := w.w.Seek(w.offsetTablePos[i], io.SeekStart); err != nil {
			return err
		}
		table := make([]byte, len(offsets)*8)
		for j, off := range offsets {
			xdr.ByteOrder.PutUint64(table[j*8:], uint64(off))
		}
		if _, err := w.w.Write(table); err != nil {
			return err
		}
	}

	_, err = w.w.Seek(currentPos, io.SeekStart)
	return err
}
