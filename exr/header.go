package exr

import (
	"fmt"

	"github.com/TriceHelix/openexr-go/compression"
	"github.com/TriceHelix/openexr-go/internal/xdr"
)

// Standard attribute names recognized by the metadata parser (§4.2).
const (
	AttrNameName                = "name"
	AttrNameType                = "type"
	AttrNameChannels            = "channels"
	AttrNameCompression         = "compression"
	AttrNameDataWindow          = "dataWindow"
	AttrNameDisplayWindow       = "displayWindow"
	AttrNameLineOrder           = "lineOrder"
	AttrNamePixelAspectRatio    = "pixelAspectRatio"
	AttrNameScreenWindowCenter  = "screenWindowCenter"
	AttrNameScreenWindowWidth   = "screenWindowWidth"
	AttrNameTiles               = "tiles"
	AttrNameChunkCount          = "chunkCount"
	AttrNameEnvmap              = "envmap"
	AttrNamePreview             = "preview"
	AttrNameMultiView           = "multiView"
	AttrNameView                = "view"
	AttrNameChromaticities      = "chromaticities"
	AttrNameAdoptedNeutral      = "adoptedNeutral"
	AttrNameZIPLevel            = "zipCompressionLevel"
	AttrNameDWACompressionLevel = "dwaCompressionLevel"
)

// Part-type strings for the "type" attribute (§3, §4.6).
const (
	PartTypeScanline     = "scanlineimage"
	PartTypeTiled        = "tiledimage"
	PartTypeDeepScanline = "deepscanline"
	PartTypeDeepTiled    = "deeptile"
)

// DefaultDWACompressionLevel matches OpenEXR's default DWA quantization
// quality.
const DefaultDWACompressionLevel = 45.0

// attributeOrder is the fixed emission order §4.6 mandates for the
// well-known attributes, followed by any custom attributes in insertion
// order.
var attributeOrder = []string{
	AttrNameChannels,
	AttrNameCompression,
	AttrNameDataWindow,
	AttrNameDisplayWindow,
	AttrNameLineOrder,
	AttrNamePixelAspectRatio,
	AttrNameScreenWindowCenter,
	AttrNameScreenWindowWidth,
	AttrNameTiles,
}

// CompressionOptions bundles the tunables that affect how a chunk is
// compressed but are not themselves part of the on-disk attribute set in
// the reference format (deflate level, DWA quantization quality); they are
// still carried as custom attributes here so a round-trip preserves the
// settings a file was written with.
type CompressionOptions struct {
	ZIPLevel int
	DWALevel float32
}

// Header holds one part's metadata: the well-known attributes plus any
// custom attributes, preserved in insertion order.
type Header struct {
	attrs []*Attribute

	// detectedFLevel records the zlib FLEVEL observed when this header's
	// part was read from a ZIP/ZIPS/PXR24-compressed file, so a re-encode
	// can reproduce the same compression level. Not itself a file attribute.
	detectedFLevel    compression.FLevel
	detectedFLevelSet bool
}

// NewHeader returns an empty header with no attributes set.
func NewHeader() *Header {
	return &Header{}
}

// NewScanlineHeader returns a header pre-populated with the attributes a
// scanline image needs: three HALF channels (R, G, B), ZIP compression,
// increasing line order, and data/display windows of (width, height).
func NewScanlineHeader(width, height int) *Header {
	h := NewHeader()
	cl := NewChannelList()
	cl.Add(NewChannel("B", PixelTypeHalf))
	cl.Add(NewChannel("G", PixelTypeHalf))
	cl.Add(NewChannel("R", PixelTypeHalf))
	h.SetChannels(cl)
	h.SetCompression(CompressionZIP)
	h.SetLineOrder(LineOrderIncreasing)
	box := Box2i{Min: V2i{0, 0}, Max: V2i{int32(width) - 1, int32(height) - 1}}
	h.SetDataWindow(box)
	h.SetDisplayWindow(box)
	h.SetPixelAspectRatio(1.0)
	h.SetScreenWindowCenter(V2f{0, 0})
	h.SetScreenWindowWidth(1.0)
	return h
}

// NewTiledHeader returns a header like NewScanlineHeader but additionally
// marked as tiled with a ONE_LEVEL tile description of (tileW, tileH).
func NewTiledHeader(width, height, tileW, tileH int) *Header {
	h := NewScanlineHeader(width, height)
	h.SetTileDescription(TileDescription{
		XSize: uint32(tileW),
		YSize: uint32(tileH),
		Mode:  LevelModeOne,
	})
	return h
}

func (h *Header) indexOf(name string) int {
	for i, a := range h.attrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the named attribute, or nil if absent.
func (h *Header) Get(name string) *Attribute {
	if i := h.indexOf(name); i >= 0 {
		return h.attrs[i]
	}
	return nil
}

// Has reports whether the named attribute is present.
func (h *Header) Has(name string) bool {
	return h.indexOf(name) >= 0
}

// Set inserts or replaces an attribute, preserving the original insertion
// position on replace and appending on insert.
func (h *Header) Set(attr *Attribute) {
	if i := h.indexOf(attr.Name); i >= 0 {
		h.attrs[i] = attr
		return
	}
	h.attrs = append(h.attrs, attr)
}

// Remove deletes the named attribute, if present.
func (h *Header) Remove(name string) {
	if i := h.indexOf(name); i >= 0 {
		h.attrs = append(h.attrs[:i], h.attrs[i+1:]...)
	}
}

// Attributes returns all attributes in insertion order.
func (h *Header) Attributes() []*Attribute {
	out := make([]*Attribute, len(h.attrs))
	copy(out, h.attrs)
	return out
}

// Channels returns the channel list, or nil if unset.
func (h *Header) Channels() *ChannelList {
	if a := h.Get(AttrNameChannels); a != nil {
		return a.Value.(*ChannelList)
	}
	return nil
}

// SetChannels sets the channel list attribute.
func (h *Header) SetChannels(cl *ChannelList) {
	h.Set(&Attribute{Name: AttrNameChannels, Type: AttrTypeChlist, Value: cl})
}

// Compression returns the part's compression, defaulting to None.
func (h *Header) Compression() Compression {
	if a := h.Get(AttrNameCompression); a != nil {
		return a.Value.(Compression)
	}
	return CompressionNone
}

// SetCompression sets the compression attribute.
func (h *Header) SetCompression(c Compression) {
	h.Set(&Attribute{Name: AttrNameCompression, Type: AttrTypeCompression, Value: c})
}

// DataWindow returns the data window, or the zero Box2i if unset.
func (h *Header) DataWindow() Box2i {
	if a := h.Get(AttrNameDataWindow); a != nil {
		return a.Value.(Box2i)
	}
	return Box2i{}
}

// SetDataWindow sets the data window attribute.
func (h *Header) SetDataWindow(b Box2i) {
	h.Set(&Attribute{Name: AttrNameDataWindow, Type: AttrTypeBox2i, Value: b})
}

// DisplayWindow returns the display window, or the zero Box2i if unset.
func (h *Header) DisplayWindow() Box2i {
	if a := h.Get(AttrNameDisplayWindow); a != nil {
		return a.Value.(Box2i)
	}
	return Box2i{}
}

// SetDisplayWindow sets the display window attribute.
func (h *Header) SetDisplayWindow(b Box2i) {
	h.Set(&Attribute{Name: AttrNameDisplayWindow, Type: AttrTypeBox2i, Value: b})
}

// LineOrder returns the line order, defaulting to Increasing.
func (h *Header) LineOrder() LineOrder {
	if a := h.Get(AttrNameLineOrder); a != nil {
		return a.Value.(LineOrder)
	}
	return LineOrderIncreasing
}

// SetLineOrder sets the line order attribute.
func (h *Header) SetLineOrder(lo LineOrder) {
	h.Set(&Attribute{Name: AttrNameLineOrder, Type: AttrTypeLineOrder, Value: lo})
}

// PixelAspectRatio returns the pixel aspect ratio, defaulting to 1.0.
func (h *Header) PixelAspectRatio() float32 {
	if a := h.Get(AttrNamePixelAspectRatio); a != nil {
		return a.Value.(float32)
	}
	return 1.0
}

// SetPixelAspectRatio sets the pixel aspect ratio attribute.
func (h *Header) SetPixelAspectRatio(v float32) {
	h.Set(&Attribute{Name: AttrNamePixelAspectRatio, Type: AttrTypeFloat, Value: v})
}

// ScreenWindowCenter returns the screen window center, defaulting to zero.
func (h *Header) ScreenWindowCenter() V2f {
	if a := h.Get(AttrNameScreenWindowCenter); a != nil {
		return a.Value.(V2f)
	}
	return V2f{}
}

// SetScreenWindowCenter sets the screen window center attribute.
func (h *Header) SetScreenWindowCenter(v V2f) {
	h.Set(&Attribute{Name: AttrNameScreenWindowCenter, Type: AttrTypeV2f, Value: v})
}

// ScreenWindowWidth returns the screen window width, defaulting to 1.0.
func (h *Header) ScreenWindowWidth() float32 {
	if a := h.Get(AttrNameScreenWindowWidth); a != nil {
		return a.Value.(float32)
	}
	return 1.0
}

// SetScreenWindowWidth sets the screen window width attribute.
func (h *Header) SetScreenWindowWidth(v float32) {
	h.Set(&Attribute{Name: AttrNameScreenWindowWidth, Type: AttrTypeFloat, Value: v})
}

// IsTiled reports whether a tile description is present.
func (h *Header) IsTiled() bool {
	return h.Has(AttrNameTiles)
}

// TileDescription returns the tile description, or nil if the part is not
// tiled.
func (h *Header) TileDescription() *TileDescription {
	if a := h.Get(AttrNameTiles); a != nil {
		td := a.Value.(TileDescription)
		return &td
	}
	return nil
}

// SetTileDescription marks the header as tiled with the given description.
func (h *Header) SetTileDescription(td TileDescription) {
	h.Set(&Attribute{Name: AttrNameTiles, Type: AttrTypeTileDesc, Value: td})
}

// HasPreview reports whether the header carries a preview image attribute.
func (h *Header) HasPreview() bool {
	return h.Has(AttrNamePreview)
}

// Preview returns the preview image, or nil if unset.
func (h *Header) Preview() *Preview {
	if a := h.Get(AttrNamePreview); a != nil {
		p := a.Value.(Preview)
		return &p
	}
	return nil
}

// SetPreview sets the preview image attribute.
func (h *Header) SetPreview(p Preview) {
	h.Set(&Attribute{Name: AttrNamePreview, Type: AttrTypePreview, Value: p})
}

// Width returns the data window's pixel width.
func (h *Header) Width() int {
	return int(h.DataWindow().Width())
}

// Height returns the data window's pixel height.
func (h *Header) Height() int {
	return int(h.DataWindow().Height())
}

// Name returns the "name" attribute value, or "" if unset (single-part
// files omit it).
func (h *Header) Name() string {
	if a := h.Get(AttrNameName); a != nil {
		return a.Value.(string)
	}
	return ""
}

// SetName sets the "name" attribute.
func (h *Header) SetName(name string) {
	h.Set(&Attribute{Name: AttrNameName, Type: AttrTypeString, Value: name})
}

// Type returns the "type" attribute value (one of the PartType* strings),
// defaulting to the scanline-image type when unset.
func (h *Header) Type() string {
	if a := h.Get(AttrNameType); a != nil {
		return a.Value.(string)
	}
	if h.IsTiled() {
		return PartTypeTiled
	}
	return PartTypeScanline
}

// SetType sets the "type" attribute.
func (h *Header) SetType(t string) {
	h.Set(&Attribute{Name: AttrNameType, Type: AttrTypeString, Value: t})
}

// ZIPLevel returns the configured zlib compression level for ZIP/ZIPS
// chunks, defaulting to -1 (zlib's "default" level).
func (h *Header) ZIPLevel() int {
	if a := h.Get(AttrNameZIPLevel); a != nil {
		return int(a.Value.(int32))
	}
	return -1
}

// SetZIPLevel sets the zlib compression level used for ZIP/ZIPS chunks.
func (h *Header) SetZIPLevel(level int) {
	h.Set(&Attribute{Name: AttrNameZIPLevel, Type: AttrTypeInt, Value: int32(level)})
}

// DetectedFLevel returns the zlib FLEVEL detected when this header's part
// was read from a compressed file, and whether detection occurred.
func (h *Header) DetectedFLevel() (compression.FLevel, bool) {
	return h.detectedFLevel, h.detectedFLevelSet
}

func (h *Header) setDetectedFLevel(level compression.FLevel) {
	h.detectedFLevel = level
	h.detectedFLevelSet = true
}

// DWACompressionLevel returns the configured DWA quantization quality,
// defaulting to DefaultDWACompressionLevel.
func (h *Header) DWACompressionLevel() float32 {
	if a := h.Get(AttrNameDWACompressionLevel); a != nil {
		return a.Value.(float32)
	}
	return DefaultDWACompressionLevel
}

// SetDWACompressionLevel sets the DWA quantization quality attribute.
func (h *Header) SetDWACompressionLevel(level float32) {
	h.Set(&Attribute{Name: AttrNameDWACompressionLevel, Type: AttrTypeFloat, Value: level})
}

// CompressionOptions bundles the configured ZIP/DWA tunables.
func (h *Header) CompressionOptions() CompressionOptions {
	return CompressionOptions{ZIPLevel: h.ZIPLevel(), DWALevel: h.DWACompressionLevel()}
}

// SetCompressionOptions applies a bundle of compression tunables.
func (h *Header) SetCompressionOptions(opts CompressionOptions) {
	h.SetZIPLevel(opts.ZIPLevel)
	h.SetDWACompressionLevel(opts.DWALevel)
}

// numLevels computes the mipmap/ripmap level count for one axis, per §4.4.
// Returns 0 for non-positive sizes.
func numLevels(size int, rounding LevelRoundingMode) int {
	if size <= 0 {
		return 0
	}
	return NumLevels(size, rounding)
}

// NumXLevels returns the number of levels along X (1 for ONE_LEVEL and
// untiled headers).
func (h *Header) NumXLevels() int {
	td := h.TileDescription()
	if td == nil {
		return 1
	}
	switch td.Mode {
	case LevelModeOne:
		return 1
	case LevelModeMipmap:
		return numLevels(maxInt(h.Width(), h.Height()), td.RoundingMode)
	case LevelModeRipmap:
		return numLevels(h.Width(), td.RoundingMode)
	default:
		return 1
	}
}

// NumYLevels returns the number of levels along Y.
func (h *Header) NumYLevels() int {
	td := h.TileDescription()
	if td == nil {
		return 1
	}
	switch td.Mode {
	case LevelModeOne:
		return 1
	case LevelModeMipmap:
		return numLevels(maxInt(h.Width(), h.Height()), td.RoundingMode)
	case LevelModeRipmap:
		return numLevels(h.Height(), td.RoundingMode)
	default:
		return 1
	}
}

// LevelWidth returns the pixel width of mip/rip level lx, clamped to the
// valid range (negative levels return the full width; levels beyond the
// last return 1).
func (h *Header) LevelWidth(lx int) int {
	td := h.TileDescription()
	if td == nil || lx < 0 {
		return h.Width()
	}
	return LevelDim(h.Width(), lx, td.RoundingMode)
}

// LevelHeight returns the pixel height of mip/rip level ly.
func (h *Header) LevelHeight(ly int) int {
	td := h.TileDescription()
	if td == nil || ly < 0 {
		return h.Height()
	}
	return LevelDim(h.Height(), ly, td.RoundingMode)
}

// NumXTiles returns the number of tile columns at level lx (0 if untiled).
func (h *Header) NumXTiles(lx int) int {
	td := h.TileDescription()
	if td == nil {
		return 0
	}
	w := h.LevelWidth(lx)
	nx, _ := NumTilesAtLevel(w, 1, int(td.XSize), 1)
	return nx
}

// NumYTiles returns the number of tile rows at level ly (0 if untiled).
func (h *Header) NumYTiles(ly int) int {
	td := h.TileDescription()
	if td == nil {
		return 0
	}
	ht := h.LevelHeight(ly)
	_, ny := NumTilesAtLevel(1, ht, 1, int(td.YSize))
	return ny
}

// ChunksInFile returns the total number of chunks (scanline blocks or
// tiles, across all levels) this header's part occupies.
func (h *Header) ChunksInFile() int {
	if td := h.TileDescription(); td != nil {
		return TotalTileChunks(*td, h.Width(), h.Height())
	}
	lines := h.Compression().ScanlinesPerChunk()
	height := h.Height()
	if height <= 0 {
		return 0
	}
	return (height + lines - 1) / lines
}

// Validate checks that the header carries the attributes a part needs to
// be encoded or decoded, per §4.2's required-attribute contract.
func (h *Header) Validate() error {
	cl := h.Channels()
	if cl == nil || cl.Len() == 0 {
		return fmt.Errorf("%w: missing or empty channel list", ErrInvalidData)
	}
	dw := h.DataWindow()
	if dw.IsEmpty() {
		return fmt.Errorf("%w: empty or invalid data window", ErrInvalidData)
	}
	return nil
}

// ReadHeader parses one part's attribute stream (§4.2 phase
// ATTRIBUTE_NAME/ATTRIBUTE_DATA) up to and including its zero-byte
// terminator.
func ReadHeader(r *xdr.Reader) (*Header, error) {
	h := NewHeader()
	for {
		attr, err := ReadAttribute(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		if attr == nil {
			return h, nil
		}
		h.attrs = append(h.attrs, attr)
	}
}

// WriteHeader serializes a header's attributes in the fixed order §4.6
// mandates (well-known attributes first, then custom attributes in
// insertion order), terminated by a zero byte.
func WriteHeader(w *xdr.BufferWriter, h *Header) error {
	written := make(map[string]bool, len(h.attrs))

	for _, name := range attributeOrder {
		attr := h.Get(name)
		if attr == nil {
			continue
		}
		if err := WriteAttribute(w, attr); err != nil {
			return err
		}
		written[name] = true
	}

	for _, attr := range h.attrs {
		if written[attr.Name] {
			continue
		}
		if err := WriteAttribute(w, attr); err != nil {
			return err
		}
	}

	w.WriteByte(0)
	return nil
}

// SerializeForTest serializes the header's attribute stream to a standalone
// byte slice, for tests that round-trip a header without a full file.
func (h *Header) SerializeForTest() []byte {
	w := xdr.NewBufferWriter(1024)
	WriteHeader(w, h)
	return w.Bytes()
}

// ReadHeaderFromBytes parses an attribute stream previously produced by
// SerializeForTest or WriteHeader.
func ReadHeaderFromBytes(data []byte) (*Header, error) {
	r := xdr.NewReader(data)
	return ReadHeader(r)
}
