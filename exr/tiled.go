package exr

import (
	"fmt"
	"io"
)

// TiledWriter writes a single non-deep tiled part, tile by tile, to an
// io.WriteSeeker.
type TiledWriter struct {
	writer      *Writer
	header      *Header
	td          TileDescription
	width       int
	height      int
	frameBuffer *FrameBuffer
}

// NewTiledWriter creates a TiledWriter for a single-part tiled file
// described by h, writing through ws.
func NewTiledWriter(ws io.WriteSeeker, h *Header) (*TiledWriter, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil header", ErrInvalidHeader)
	}
	td := h.TileDescription()
	if td == nil {
		return nil, ErrNotTiled
	}

	w, err := NewWriter(ws, h)
	if err != nil {
		return nil, err
	}

	return &TiledWriter{
		writer: w,
		header: h,
		td:     *td,
		width:  h.Width(),
		height: h.Height(),
	}, nil
}

// Header returns the header this writer was created with.
func (tw *TiledWriter) Header() *Header {
	return tw.header
}

// DataWindow returns the part's data window.
func (tw *TiledWriter) DataWindow() Box2i {
	return tw.header.DataWindow()
}

// SetFrameBuffer sets the frame buffer tiles are read from during WriteTile.
func (tw *TiledWriter) SetFrameBuffer(fb *FrameBuffer) {
	tw.frameBuffer = fb
}

// LevelMode returns the part's level mode (ONE_LEVEL, MIPMAP or RIPMAP).
func (tw *TiledWriter) LevelMode() LevelMode {
	return tw.td.Mode
}

// NumLevels returns the number of levels for a ONE_LEVEL or MIPMAP part.
func (tw *TiledWriter) NumLevels() int {
	levels, _, _ := TileLevels(tw.td, tw.width, tw.height)
	return len(levels)
}

// NumXLevels returns the number of levels along X.
func (tw *TiledWriter) NumXLevels() int {
	_, levelsX, _ := TileLevels(tw.td, tw.width, tw.height)
	return levelsX
}

// NumYLevels returns the number of levels along Y.
func (tw *TiledWriter) NumYLevels() int {
	_, _, levelsY := TileLevels(tw.td, tw.width, tw.height)
	return levelsY
}

// LevelWidth returns the pixel width of level lx (level 0 along Y for
// MIPMAP/ONE_LEVEL parts).
func (tw *TiledWriter) LevelWidth(lx int) int {
	return LevelDim(tw.width, lx, tw.td.RoundingMode)
}

// LevelHeight returns the pixel height of level ly.
func (tw *TiledWriter) LevelHeight(ly int) int {
	return LevelDim(tw.height, ly, tw.td.RoundingMode)
}

// NumTilesX returns the number of tiles along X at level 0.
func (tw *TiledWriter) NumTilesX() int {
	return tw.NumXTilesAtLevel(0)
}

// NumTilesY returns the number of tiles along Y at level 0.
func (tw *TiledWriter) NumTilesY() int {
	return tw.NumYTilesAtLevel(0)
}

// NumXTilesAtLevel returns the number of tiles along X at level lx.
func (tw *TiledWriter) NumXTilesAtLevel(lx int) int {
	ly := 0
	if tw.td.Mode == LevelModeMipmap {
		ly = lx
	}
	g, err := validateTileLevel(tw.td, tw.width, tw.height, lx, ly)
	if err != nil {
		return 0
	}
	return g.NumXTiles
}

// NumYTilesAtLevel returns the number of tiles along Y at level ly.
func (tw *TiledWriter) NumYTilesAtLevel(ly int) int {
	lx := 0
	if tw.td.Mode == LevelModeMipmap {
		lx = ly
	}
	g, err := validateTileLevel(tw.td, tw.width, tw.height, lx, ly)
	if err != nil {
		return 0
	}
	return g.NumYTiles
}

// encodeTile builds and compresses the pixel data for a single tile whose
// top-left corner in its level is (startX, startY) and whose dimensions are
// width x height.
func (tw *TiledWriter) encodeTile(startX, startY, width, height int) ([]byte, error) {
	cl := tw.header.Channels()
	if cl == nil {
		return nil, ErrInvalidHeader
	}
	uncompressed := buildTileData(tw.frameBuffer, cl, startX, startY, width, height)
	return compressChunkData(uncompressed, width, height, cl, tw.header.Compression())
}

// WriteTile writes tile (tx, ty) at level 0.
func (tw *TiledWriter) WriteTile(tx, ty int) error {
	return tw.WriteTileLevel(tx, ty, 0, 0)
}

// WriteTileLevel writes tile (tx, ty) at level (lx, ly).
func (tw *TiledWriter) WriteTileLevel(tx, ty, lx, ly int) error {
	if tw.frameBuffer == nil {
		return ErrNoFrameBuffer
	}

	g, err := validateTileLevel(tw.td, tw.width, tw.height, lx, ly)
	if err != nil {
		return err
	}
	if tx < 0 || ty < 0 || tx >= g.NumXTiles || ty >= g.NumYTiles {
		return ErrTileOutOfRange
	}

	startX := tx * int(tw.td.XSize)
	startY := ty * int(tw.td.YSize)
	tileW := int(tw.td.XSize)
	if startX+tileW > g.Width {
		tileW = g.Width - startX
	}
	tileH := int(tw.td.YSize)
	if startY+tileH > g.Height {
		tileH = g.Height - startY
	}

	compressed, err := tw.encodeTile(startX, startY, tileW, tileH)
	if err != nil {
		return err
	}

	return tw.writer.WriteTileChunkPart(0, tx, ty, lx, ly, compressed)
}

// WriteTiles writes the tile rectangle [tx1, tx2] x [ty1, ty2] at level 0.
func (tw *TiledWriter) WriteTiles(tx1, ty1, tx2, ty2 int) error {
	return tw.WriteTilesLevel(tx1, ty1, tx2, ty2, 0, 0)
}

// WriteTilesLevel writes the tile rectangle [tx1, tx2] x [ty1, ty2] at level
// (lx, ly).
func (tw *TiledWriter) WriteTilesLevel(tx1, ty1, tx2, ty2, lx, ly int) error {
	if tx1 > tx2 || ty1 > ty2 {
		return ErrTileOutOfRange
	}

	type tileCoord struct{ tx, ty int }
	var coords []tileCoord
	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			coords = append(coords, tileCoord{tx, ty})
		}
	}

	if tw.frameBuffer == nil {
		return ErrNoFrameBuffer
	}
	g, err := validateTileLevel(tw.td, tw.width, tw.height, lx, ly)
	if err != nil {
		return err
	}

	compressed, err := ParallelChunkProcess(len(coords), func(i int) ([]byte, error) {
		c := coords[i]
		if c.tx < 0 || c.ty < 0 || c.tx >= g.NumXTiles || c.ty >= g.NumYTiles {
			return nil, ErrTileOutOfRange
		}
		startX := c.tx * int(tw.td.XSize)
		startY := c.ty * int(tw.td.YSize)
		tileW := int(tw.td.XSize)
		if startX+tileW > g.Width {
			tileW = g.Width - startX
		}
		tileH := int(tw.td.YSize)
		if startY+tileH > g.Height {
			tileH = g.Height - startY
		}
		return tw.encodeTile(startX, startY, tileW, tileH)
	})
	if err != nil {
		return err
	}

	for i, c := range coords {
		if err := tw.writer.WriteTileChunkPart(0, c.tx, c.ty, lx, ly, compressed[i]); err != nil {
			return err
		}
	}

	return nil
}

// Close finalizes the offset table.
func (tw *TiledWriter) Close() error {
	return tw.writer.Close()
}

// TiledReader reads a single non-deep tiled part from a parsed File.
type TiledReader struct {
	file        *File
	part        int
	header      *Header
	td          TileDescription
	width       int
	height      int
	frameBuffer *FrameBuffer
}

// NewTiledReader creates a TiledReader for part 0 of f.
func NewTiledReader(f *File) (*TiledReader, error) {
	return NewTiledReaderPart(f, 0)
}

// NewTiledReaderPart creates a TiledReader for the given part of f.
func NewTiledReaderPart(f *File, part int) (*TiledReader, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil file", ErrInvalidFile)
	}
	if part < 0 || part >= f.NumParts() {
		return nil, fmt.Errorf("%w: part %d out of range", ErrInvalidFile, part)
	}

	h := f.Header(part)
	if h == nil {
		return nil, fmt.Errorf("%w: missing header for part %d", ErrInvalidHeader, part)
	}
	td := h.TileDescription()
	if td == nil {
		return nil, ErrNotTiled
	}

	return &TiledReader{
		file:   f,
		part:   part,
		header: h,
		td:     *td,
		width:  h.Width(),
		height: h.Height(),
	}, nil
}

// Header returns the part's header.
func (tr *TiledReader) Header() *Header {
	return tr.header
}

// DataWindow returns the part's data window.
func (tr *TiledReader) DataWindow() Box2i {
	return tr.header.DataWindow()
}

// SetFrameBuffer sets the frame buffer tiles are written into during
// ReadTile.
func (tr *TiledReader) SetFrameBuffer(fb *FrameBuffer) {
	tr.frameBuffer = fb
}

// LevelMode returns the part's level mode.
func (tr *TiledReader) LevelMode() LevelMode {
	return tr.td.Mode
}

// NumLevels returns the number of levels for a ONE_LEVEL or MIPMAP part.
func (tr *TiledReader) NumLevels() int {
	levels, _, _ := TileLevels(tr.td, tr.width, tr.height)
	return len(levels)
}

// NumXLevels returns the number of levels along X.
func (tr *TiledReader) NumXLevels() int {
	_, levelsX, _ := TileLevels(tr.td, tr.width, tr.height)
	return levelsX
}

// NumYLevels returns the number of levels along Y.
func (tr *TiledReader) NumYLevels() int {
	_, _, levelsY := TileLevels(tr.td, tr.width, tr.height)
	return levelsY
}

// LevelWidth returns the pixel width of level lx.
func (tr *TiledReader) LevelWidth(lx int) int {
	return LevelDim(tr.width, lx, tr.td.RoundingMode)
}

// LevelHeight returns the pixel height of level ly.
func (tr *TiledReader) LevelHeight(ly int) int {
	return LevelDim(tr.height, ly, tr.td.RoundingMode)
}

// NumTilesX returns the number of tiles along X at level 0.
func (tr *TiledReader) NumTilesX() int {
	return tr.NumXTilesAtLevel(0)
}

// NumTilesY returns the number of tiles along Y at level 0.
func (tr *TiledReader) NumTilesY() int {
	return tr.NumYTilesAtLevel(0)
}

// NumXTilesAtLevel returns the number of tiles along X at level lx.
func (tr *TiledReader) NumXTilesAtLevel(lx int) int {
	ly := 0
	if tr.td.Mode == LevelModeMipmap {
		ly = lx
	}
	g, err := validateTileLevel(tr.td, tr.width, tr.height, lx, ly)
	if err != nil {
		return 0
	}
	return g.NumXTiles
}

// NumYTilesAtLevel returns the number of tiles along Y at level ly.
func (tr *TiledReader) NumYTilesAtLevel(ly int) int {
	lx := 0
	if tr.td.Mode == LevelModeMipmap {
		lx = ly
	}
	g, err := validateTileLevel(tr.td, tr.width, tr.height, lx, ly)
	if err != nil {
		return 0
	}
	return g.NumYTiles
}

// decodeTile fetches, validates and decompresses tile (tx, ty) at level
// (lx, ly), returning its pixel data and geometry.
func (tr *TiledReader) decodeTile(tx, ty, lx, ly int) (data []byte, startX, startY, tileW, tileH int, err error) {
	g, err := validateTileLevel(tr.td, tr.width, tr.height, lx, ly)
	if err != nil {
		return nil, 0, 0, 0, 0, err
	}
	if tx < 0 || ty < 0 || tx >= g.NumXTiles || ty >= g.NumYTiles {
		return nil, 0, 0, 0, 0, ErrTileOutOfRange
	}

	chunkIndex, err := TileChunkIndex(tr.td, tr.width, tr.height, tx, ty, lx, ly)
	if err != nil {
		return nil, 0, 0, 0, 0, ErrTileOutOfRange
	}

	_, _, _, _, payload, err := tr.file.ReadTileChunk(tr.part, chunkIndex)
	if err != nil {
		return nil, 0, 0, 0, 0, err
	}

	startX = tx * int(tr.td.XSize)
	startY = ty * int(tr.td.YSize)
	tileW = int(tr.td.XSize)
	if startX+tileW > g.Width {
		tileW = g.Width - startX
	}
	tileH = int(tr.td.YSize)
	if startY+tileH > g.Height {
		tileH = g.Height - startY
	}

	cl := tr.header.Channels()
	if cl == nil {
		return nil, 0, 0, 0, 0, ErrInvalidHeader
	}

	decompressed, err := decompressChunkData(payload, tileW, tileH, cl, tr.header.Compression())
	if err != nil {
		return nil, 0, 0, 0, 0, err
	}

	return decompressed, startX, startY, tileW, tileH, nil
}

// ReadTile reads tile (tx, ty) at level 0.
func (tr *TiledReader) ReadTile(tx, ty int) error {
	return tr.ReadTileLevel(tx, ty, 0, 0)
}

// ReadTileLevel reads tile (tx, ty) at level (lx, ly).
func (tr *TiledReader) ReadTileLevel(tx, ty, lx, ly int) error {
	if tr.frameBuffer == nil {
		return ErrNoFrameBuffer
	}

	data, startX, startY, tileW, tileH, err := tr.decodeTile(tx, ty, lx, ly)
	if err != nil {
		return err
	}

	cl := tr.header.Channels()
	return parseTileData(tr.frameBuffer, cl, startX, startY, tileW, tileH, data)
}

// ReadTiles reads the tile rectangle [tx1, tx2] x [ty1, ty2] at level 0.
func (tr *TiledReader) ReadTiles(tx1, ty1, tx2, ty2 int) error {
	return tr.ReadTilesLevel(tx1, ty1, tx2, ty2, 0, 0)
}

// ReadTilesLevel reads the tile rectangle [tx1, tx2] x [ty1, ty2] at level
// (lx, ly).
func (tr *TiledReader) ReadTilesLevel(tx1, ty1, tx2, ty2, lx, ly int) error {
	if tx1 > tx2 || ty1 > ty2 {
		return ErrTileOutOfRange
	}
	if tr.frameBuffer == nil {
		return ErrNoFrameBuffer
	}

	type tileCoord struct{ tx, ty int }
	var coords []tileCoord
	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			coords = append(coords, tileCoord{tx, ty})
		}
	}

	type decodedTile struct {
		data                          []byte
		startX, startY, tileW, tileH int
	}

	decodedTiles := make([]decodedTile, len(coords))
	err := ParallelForWithError(len(coords), func(i int) error {
		c := coords[i]
		data, startX, startY, tileW, tileH, err := tr.decodeTile(c.tx, c.ty, lx, ly)
		if err != nil {
			return err
		}
		decodedTiles[i] = decodedTile{data: data, startX: startX, startY: startY, tileW: tileW, tileH: tileH}
		return nil
	})
	if err != nil {
		return err
	}

	cl := tr.header.Channels()
	for _, d := range decodedTiles {
		if err := parseTileData(tr.frameBuffer, cl, d.startX, d.startY, d.tileW, d.tileH, d.data); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the underlying File.
func (tr *TiledReader) Close() error {
	return tr.file.Close()
}
