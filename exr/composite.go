// Package exr provides deep image compositing support.
//
// Deep compositing allows multiple samples at each pixel to be combined
// into a single flat image. This is useful for combining elements with
// complex transparency and volumetric effects.

package exr

import (
	"errors"
	"sort"

	"github.com/TriceHelix/openexr-go/half"
)

// Deep compositing errors
var (
	ErrNoSources            = errors.New("exr: no deep sources added")
	ErrSourceMismatch       = errors.New("exr: deep sources have mismatched dimensions")
	ErrMissingZChannel      = errors.New("exr: deep source missing required Z channel")
	ErrMissingAlphaChannel  = errors.New("exr: deep source missing required A (alpha) channel")
	ErrNoOutputFrameBuffer  = errors.New("exr: no output frame buffer set")
	ErrMaxSampleCountExceed = errors.New("exr: maximum sample count exceeded")
)

// DeepSample represents a single deep sample with its channel values.
// This is used for sorting and compositing operations.
type DeepSample struct {
	// Z is the front depth of this sample.
	Z float32

	// ZBack is the back depth of this sample (for volumetric samples).
	// If ZBack == Z, this is a hard surface sample.
	ZBack float32

	// A is the alpha value (premultiplied).
	A float32

	// R, G, B are the color values (premultiplied).
	R, G, B float32

	// Additional channel values indexed by channel name.
	Channels map[string]float32
}

// IsVolumetric returns true if this sample represents a volume (ZBack != Z).
func (s *DeepSample) IsVolumetric() bool {
	return s.ZBack != s.Z
}

// IsOpaque returns true if this sample is fully opaque (alpha >= 1.0).
func (s *DeepSample) IsOpaque() bool {
	return s.A >= 1.0
}

// DeepCompositing defines the interface for deep sample compositing engines.
// Custom implementations can be provided to change sorting and compositing behavior.
type DeepCompositing interface {
	// SortPixel sorts the samples for a single pixel from front to back.
	// The default implementation sorts by Z, then by ZBack for volumetric samples.
	SortPixel(samples []DeepSample)

	// CompositePixel composites sorted samples into final RGBA values.
	// Returns the composited color values (premultiplied alpha).
	// The default implementation uses the over operator from front to back,
	// stopping when alpha reaches 1.0.
	CompositePixel(samples []DeepSample) (r, g, b, a float32)

	// CompositePixelAllChannels composites all channels including custom ones.
	// Returns a map of channel name to composited value.
	CompositePixelAllChannels(samples []DeepSample, channelNames []string) map[string]float32
}

// DefaultDeepCompositing provides the standard deep compositing algorithm.
// It sorts samples front-to-back by Z depth and composites using the
// premultiplied over operation.
type DefaultDeepCompositing struct{}

// NewDefaultDeepCompositing creates a new default compositing engine.
func NewDefaultDeepCompositing() *DefaultDeepCompositing {
	return &DefaultDeepCompositing{}
}

// SortPixel sorts samples by Z depth (front to back).
// For volumetric samples with the same Z, it sorts by ZBack.
// This maintains stability for samples at the same depth.
func (d *DefaultDeepCompositing) SortPixel(samples []DeepSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		// Sort by front Z first
		if samples[i].Z != samples[j].Z {
			return samples[i].Z < samples[j].Z
		}
		// If Z is equal, sort by ZBack (for volumetric samples)
		if samples[i].ZBack != samples[j].ZBack {
			return samples[i].ZBack < samples[j].ZBack
		}
		// Maintain original order for identical samples
		return false
	})
}

// CompositePixel composites samples using the over operator.
// Assumes samples are already sorted front-to-back.
// Uses early termination when alpha reaches 1.0.
func (d *DefaultDeepCompositing) CompositePixel(samples []DeepSample) (r, g, b, a float32) {
	if len(samples) == 0 {
		return 0, 0, 0, 0
	}

	for _, sample := range samples {
		// Early termination if fully opaque
		if a >= 1.0 {
			break
		}

		// Apply over operation: out = over + (1 - alpha_over) * under
		// For premultiplied alpha: out_color = sample_color + (1 - alpha) * out_color
		oneMinusAlpha := 1.0 - a
		r += oneMinusAlpha * sample.R
		g += oneMinusAlpha * sample.G
		b += oneMinusAlpha * sample.B
		a += oneMinusAlpha * sample.A
	}

	// Clamp alpha to [0, 1]
	if a > 1.0 {
		a = 1.0
	}
	if a < 0.0 {
		a = 0.0
	}

	return r, g, b, a
}

// CompositePixelAllChannels composites all channels including custom ones.
func (d *DefaultDeepCompositing) CompositePixelAllChannels(samples []DeepSample, channelNames []string) map[string]float32 {
	result := make(map[string]float32)

	if len(samples) == 0 {
		for _, name := range channelNames {
			result[name] = 0
		}
		return result
	}

	// Initialize all channels to zero
	for _, name := range channelNames {
		result[name] = 0
	}

	var alpha float32
	for _, sample := range samples {
		// Early termination if fully opaque
		if alpha >= 1.0 {
			break
		}

		oneMinusAlpha := 1.0 - alpha

		// Composite standard channels
		result["R"] += oneMinusAlpha * sample.R
		result["G"] += oneMinusAlpha * sample.G
		result["B"] += oneMinusAlpha * sample.B
		result["A"] += oneMinusAlpha * sample.A

		// Composite additional channels
		for name, value := range sample.Channels {
			result[name] += oneMinusAlpha * value
		}

		alpha = result["A"]
	}

	// Clamp alpha
	if result["A"] > 1.0 {
		result["A"] = 1.0
	}
	if result["A"] < 0.0 {
		result["A"] = 0.0
	}

	return result
}

// CompositeDeepScanLine composites deep scanline images into a flat frame buffer.
// It accepts one or more deep sources and combines them using a compositing engine.
type CompositeDeepScanLine struct {
	sources           []*DeepScanlineReader
	outputFrameBuffer *FrameBuffer
	dataWindow        Box2i
	compositing       DeepCompositing
	maxSampleCount    int64
	hasZBack          bool
	channelNames      []string
}

// NewCompositeDeepScanLine creates a new deep scanline compositor.
func NewCompositeDeepScanLine() *CompositeDeepScanLine {
	return &CompositeDeepScanLine{
		sources:        make([]*DeepScanlineReader, 0),
		compositing:    NewDefaultDeepCompositing(),
		maxSampleCount: 0, // No limit by default
	}
}

// AddSource adds a deep scanline source to the compositor.
// All sources must have matching data windows and contain Z and A channels.
func (c *CompositeDeepScanLine) AddSource(reader *DeepScanlineReader) error {
	if reader == nil {
		return errors.New("exr: nil source reader")
	}

	header := reader.header
	if header == nil {
		return ErrInvalidHeader
	}

	// Check for required channels
	channels := header.Channels()
	if channels == nil {
		return ErrInvalidHeader
	}

	hasZ := false
	hasA := false
	hasZBack := false

	for i := 0; i < channels.Len(); i++ {
		ch := channels.At(i)
		switch ch.Name {
		case "Z":
			hasZ = true
		case "A":
			hasA = true
		case "ZBack":
			hasZBack = true
		}
	}

	if !hasZ {
		return ErrMissingZChannel
	}
	if !hasA {
		return ErrMissingAlphaChannel
	}

	// Check dimensions match existing sources
	dw := header.DataWindow()
	if len(c.sources) > 0 {
		if c.dataWindow != dw {
			return ErrSourceMismatch
		}
	} else {
		c.dataWindow = dw
	}

	c.sources = append(c.sources, reader)
	c.hasZBack = c.hasZBack || hasZBack

	return nil
}

// Sources returns the number of sources added.
func (c *CompositeDeepScanLine) Sources() int {
	return len(c.sources)
}

// DataWindow returns the data window of the combined sources.
func (c *CompositeDeepScanLine) DataWindow() Box2i {
	return c.dataWindow
}

// SetFrameBuffer sets the output frame buffer for composited pixels.
// The buffer must be large enough to hold the data window.
func (c *CompositeDeepScanLine) SetFrameBuffer(fb *FrameBuffer) {
	c.outputFrameBuffer = fb

	// Build channel name list from frame buffer
	c.channelNames = fb.Names()
}

// FrameBuffer returns the current output frame buffer.
func (c *CompositeDeepScanLine) FrameBuffer() *FrameBuffer {
	return c.outputFrameBuffer
}

// SetCompositing sets a custom compositing engine.
// If nil, the default engine is used.
func (c *CompositeDeepScanLine) SetCompositing(engine DeepCompositing) {
	if engine == nil {
		c.compositing = NewDefaultDeepCompositing()
	} else {
		c.compositing = engine
	}
}

// SetMaximumSampleCount sets the maximum total number of samples, summed over
// all sources and all scanlines, that a single ReadPixels call may read.
// A value of 0 disables the limit.
// A negative value also disables the limit.
func (c *CompositeDeepScanLine) SetMaximumSampleCount(count int64) {
	c.maxSampleCount = count
}

// GetMaximumSampleCount returns the current maximum sample count limit.
func (c *CompositeDeepScanLine) GetMaximumSampleCount() int64 {
	return c.maxSampleCount
}

// ReadPixels reads and composites scanlines from y1 to y2 (inclusive).
// The composited results are written to the output frame buffer.
func (c *CompositeDeepScanLine) ReadPixels(y1, y2 int) error {
	if len(c.sources) == 0 {
		return ErrNoSources
	}
	if c.outputFrameBuffer == nil {
		return ErrNoOutputFrameBuffer
	}

	width := int(c.dataWindow.Width())
	minY := int(c.dataWindow.Min.Y)

	// Create deep frame buffers for each source
	deepBuffers := make([]*DeepFrameBuffer, len(c.sources))
	for i, source := range c.sources {
		dfb := NewDeepFrameBuffer(width, y2-y1+1)

		// Add channels based on source header
		channels := source.header.Channels()
		for j := 0; j < channels.Len(); j++ {
			ch := channels.At(j)
			dfb.Insert(ch.Name, ch.Type)
		}

		source.SetFrameBuffer(dfb)
		deepBuffers[i] = dfb
	}

	// Read sample counts from all sources
	for _, source := range c.sources {
		if err := source.ReadPixelSampleCounts(y1, y2); err != nil {
			return err
		}
	}

	// Check maximum sample count if set
	if c.maxSampleCount > 0 {
		var totalSamples int64
		for _, dfb := range deepBuffers {
			totalSamples += int64(dfb.TotalSampleCount())
		}
		if totalSamples > c.maxSampleCount {
			return ErrMaxSampleCountExceed
		}
	}

	// Read pixel data from all sources
	for _, source := range c.sources {
		if err := source.ReadPixels(y1, y2); err != nil {
			return err
		}
	}

	// Composite each pixel
	for y := y1; y <= y2; y++ {
		for x := 0; x < width; x++ {
			samples := c.collectSamples(deepBuffers, x, y-minY)

			if len(samples) > 0 {
				// Sort if multiple sources
				if len(c.sources) > 1 {
					c.compositing.SortPixel(samples)
				}
			}

			// Composite
			r, g, b, a := c.compositing.CompositePixel(samples)

			// Write to output frame buffer
			fbY := y - minY
			c.writePixel(x, fbY, r, g, b, a)
		}
	}

	return nil
}

// collectSamples gathers all samples from all sources at a pixel location.
func (c *CompositeDeepScanLine) collectSamples(buffers []*DeepFrameBuffer, x, y int) []DeepSample {
	var samples []DeepSample

	for _, dfb := range buffers {
		sampleCount := int(dfb.GetSampleCount(x, y))
		if sampleCount == 0 {
			continue
		}

		zSlice := dfb.Slices["Z"]
		aSlice := dfb.Slices["A"]
		rSlice := dfb.Slices["R"]
		gSlice := dfb.Slices["G"]
		bSlice := dfb.Slices["B"]
		zBackSlice := dfb.Slices["ZBack"]

		for s := 0; s < sampleCount; s++ {
			sample := DeepSample{
				Channels: make(map[string]float32),
			}

			// Get Z value
			if zSlice != nil {
				sample.Z = c.getDeepFloat32(zSlice, x, y, s)
			}

			// Get ZBack value (use Z if not present)
			if zBackSlice != nil {
				sample.ZBack = c.getDeepFloat32(zBackSlice, x, y, s)
			} else {
				sample.ZBack = sample.Z
			}

			// Get alpha
			if aSlice != nil {
				sample.A = c.getDeepFloat32(aSlice, x, y, s)
			}

			// Get RGB if present
			if rSlice != nil {
				sample.R = c.getDeepFloat32(rSlice, x, y, s)
			}
			if gSlice != nil {
				sample.G = c.getDeepFloat32(gSlice, x, y, s)
			}
			if bSlice != nil {
				sample.B = c.getDeepFloat32(bSlice, x, y, s)
			}

			// Get other channels
			for name, slice := range dfb.Slices {
				if name == "Z" || name == "ZBack" || name == "A" ||
					name == "R" || name == "G" || name == "B" {
					continue
				}
				sample.Channels[name] = c.getDeepFloat32(slice, x, y, s)
			}

			samples = append(samples, sample)
		}
	}

	return samples
}

// getDeepFloat32 extracts a float32 value from a deep slice sample.
func (c *CompositeDeepScanLine) getDeepFloat32(slice *DeepSlice, x, y, sampleIdx int) float32 {
	if slice == nil || y >= len(slice.Pointers) || x >= len(slice.Pointers[y]) {
		return 0
	}

	switch slice.Type {
	case PixelTypeFloat:
		if data, ok := slice.Pointers[y][x].([]float32); ok && sampleIdx < len(data) {
			return data[sampleIdx]
		}
	case PixelTypeHalf:
		if data, ok := slice.Pointers[y][x].([]uint16); ok && sampleIdx < len(data) {
			h := half.Half(data[sampleIdx])
			return h.Float32()
		}
	case PixelTypeUint:
		if data, ok := slice.Pointers[y][x].([]uint32); ok && sampleIdx < len(data) {
			return float32(data[sampleIdx])
		}
	}
	return 0
}

// writePixel writes composited values to the output frame buffer.
func (c *CompositeDeepScanLine) writePixel(x, y int, r, g, b, a float32) {
	if rSlice := c.outputFrameBuffer.Get("R"); rSlice != nil {
		rSlice.SetFloat32(x, y, r)
	}
	if gSlice := c.outputFrameBuffer.Get("G"); gSlice != nil {
		gSlice.SetFloat32(x, y, g)
	}
	if bSlice := c.outputFrameBuffer.Get("B"); bSlice != nil {
		bSlice.SetFloat32(x, y, b)
	}
	if aSlice := c.outputFrameBuffer.Get("A"); aSlice != nil {
		aSlice.SetFloat32(x, y, a)
	}

	// Write Z and ZBack as their original values are lost in compositing
	// The compositor outputs only RGBA
}

// CompositeDeepTiled composites deep tiled images into a flat frame buffer.
// This is similar to CompositeDeepScanLine but works with tiled data.
type CompositeDeepTiled struct {
	sources           []*DeepTiledReader
	outputFrameBuffer *FrameBuffer
	dataWindow        Box2i
	compositing       DeepCompositing
	maxSampleCount    int64
	hasZBack          bool
	channelNames      []string
}

// NewCompositeDeepTiled creates a new deep tiled compositor.
func NewCompositeDeepTiled() *CompositeDeepTiled {
	return &CompositeDeepTiled{
		sources:        make([]*DeepTiledReader, 0),
		compositing:    NewDefaultDeepCompositing(),
		maxSampleCount: 0,
	}
}

// AddSource adds a deep tiled source to the compositor.
func (c *CompositeDeepTiled) AddSource(reader *DeepTiledReader) error {
	if reader == nil {
		return errors.New("exr: nil source reader")
	}

	header := reader.header
	if header == nil {
		return ErrInvalidHeader
	}

	// Check for required channels
	channels := header.Channels()
	if channels == nil {
		return ErrInvalidHeader
	}

	hasZ := false
	hasA := false
	hasZBack := false

	for i := 0; i < channels.Len(); i++ {
		ch := channels.At(i)
		switch ch.Name {
		case "Z":
			hasZ = true
		case "A":
			hasA = true
		case "ZBack":
			hasZBack = true
		}
	}

	if !hasZ {
		return ErrMissingZChannel
	}
	if !hasA {
		return ErrMissingAlphaChannel
	}

	// Check dimensions match existing sources
	dw := header.DataWindow()
	if len(c.sources) > 0 {
		if c.dataWindow != dw {
			return ErrSourceMismatch
		}
	} else {
		c.dataWindow = dw
	}

	c.sources = append(c.sources, reader)
	c.hasZBack = c.hasZBack || hasZBack

	return nil
}

// Sources returns the number of sources added.
func (c *CompositeDeepTiled) Sources() int {
	return len(c.sources)
}

// DataWindow returns the data window of the combined sources.
func (c *CompositeDeepTiled) DataWindow() Box2i {
	return c.dataWindow
}

// SetFrameBuffer sets the output frame buffer for composited pixels.
func (c *CompositeDeepTiled) SetFrameBuffer(fb *FrameBuffer) {
	c.outputFrameBuffer = fb
	c.channelNames = fb.Names()
}

// FrameBuffer returns the current output frame buffer.
func (c *CompositeDeepTiled) FrameBuffer() *FrameBuffer {
	return c.outputFrameBuffer
}

// SetCompositing sets a custom compositing engine.
func (c *CompositeDeepTiled) SetCompositing(engine DeepCompositing) {
	if engine == nil {
		c.compositing = NewDefaultDeepCompositing()
	} else {
		c.compositing = engine
	}
}

// SetMaximumSampleCount stores a sample count limit. ReadTile and
// ReadTileLevel do not check it.
func (c *CompositeDeepTiled) SetMaximumSampleCount(count int64) {
	c.maxSampleCount = count
}

// ReadTile reads and composites a single tile at level 0.
func (c *CompositeDeepTiled) ReadTile(tileX, tileY int) error {
	return c.ReadTileLevel(tileX, tileY, 0, 0)
}

// ReadTileLevel reads and composites a single tile at the specified level.
func (c *CompositeDeepTiled) ReadTileLevel(tileX, tileY, levelX, levelY int) error {
	if len(c.sources) == 0 {
		return ErrNoSources
	}
	if c.outputFrameBuffer == nil {
		return ErrNoOutputFrameBuffer
	}

	// Get tile dimensions from first source
	td := c.sources[0].TileDescription()
	tileW := int(td.XSize)
	tileH := int(td.YSize)
	tileStartX := tileX * tileW
	tileStartY := tileY * tileH

	width := int(c.dataWindow.Width())
	height := int(c.dataWindow.Height())
	minY := int(c.dataWindow.Min.Y)

	// Clamp tile dimensions to data window
	if tileStartX+tileW > width {
		tileW = width - tileStartX
	}
	if tileStartY+tileH > height {
		tileH = height - tileStartY
	}

	// Create deep frame buffers for each source
	deepBuffers := make([]*DeepFrameBuffer, len(c.sources))
	for i, source := range c.sources {
		dfb := NewDeepFrameBuffer(width, height)

		// Add channels based on source header
		channels := source.header.Channels()
		for j := 0; j < channels.Len(); j++ {
			ch := channels.At(j)
			dfb.Insert(ch.Name, ch.Type)
		}

		source.SetFrameBuffer(dfb)
		deepBuffers[i] = dfb
	}

	// Read tile from all sources
	for _, source := range c.sources {
		if err := source.ReadTileLevel(tileX, tileY, levelX, levelY); err != nil {
			return err
		}
	}

	// Composite each pixel in the tile
	for ly := 0; ly < tileH; ly++ {
		for lx := 0; lx < tileW; lx++ {
			x := tileStartX + lx
			y := tileStartY + ly

			samples := c.collectSamples(deepBuffers, x, y)

			if len(samples) > 0 && len(c.sources) > 1 {
				c.compositing.SortPixel(samples)
			}

			r, g, b, a := c.compositing.CompositePixel(samples)

			// Write to output frame buffer
			fbY := y - minY
			c.writePixel(x, fbY, r, g, b, a)
		}
	}

	return nil
}

// ReadTiles reads and composites all tiles in a range at level 0.
func (c *CompositeDeepTiled) ReadTiles(tileX1, tileY1, tileX2, tileY2 int) error {
	for ty := tileY1; ty <= tileY2; ty++ {
		for tx := tileX1; tx <= tileX2; tx++ {
			if err := c.ReadTile(tx, ty); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectSamples gathers all samples from all sources at a pixel location.
func (c *CompositeDeepTiled) collectSamples(buffers []*DeepFrameBuffer, x, y int) []DeepSample {
	var samples []DeepSample

	for _, dfb := range buffers {
		sampleCount := int(dfb.GetSampleCount(x, y))
		if sampleCount == 0 {
			continue
		}

		zSlice := dfb.Slices["Z"]
		aSlice := dfb.Slices["A"]
		rSlice := dfb.Slices["R"]
		gSlice := dfb.Slices["G"]
		bSlice := dfb.Slices["B"]
		zBackSlice := dfb.Slices["ZBack"]

		for s := 0; s < sampleCount; s++ {
			sample := DeepSample{
				Channels: make(map[string]float32),
			}

			// Get Z value
			if zSlice != nil {
				sample.Z = c.getDeepFloat32(zSlice, x, y, s)
			}

			// Get ZBack value (use Z if not present)
			if zBackSlice != nil {
				sample.ZBack = c.getDeepFloat32(zBackSlice, x, y, s)
			} else {
				sample.ZBack = sample.Z
			}

			// Get alpha
			if aSlice != nil {
				sample.A = c.getDeepFloat32(aSlice, x, y, s)
			}

			// Get RGB if present
			if rSlice != nil {
				sample.R = c.getDeepFloat32(rSlice, x, y, s)
			}
			if gSlice != nil {
				sample.G = c.getDeepFloat32(gSlice, x, y, s)
			}
			if bSlice != nil {
				sample.B = c.getDeepFloat32(bSlice, x, y, s)
			}

			// Get other channels
			for name, slice := range dfb.Slices {
				if name == "Z" || name == "ZBack" || name == "A" ||
					name == "R" || name == "G" || name == "B" {
					continue
				}
				sample.Channels[name] = c.getDeepFloat32(slice, x, y, s)
			}

			samples = append(samples, sample)
		}
	}

	return samples
}

// getDeepFloat32 extracts a float32 value from a deep slice sample.
func (c *CompositeDeepTiled) getDeepFloat32(slice *DeepSlice, x, y, sampleIdx int) float32 {
	if slice == nil || y >= len(slice.Pointers) || x >= len(slice.Pointers[y]) {
		return 0
	}

	switch slice.Type {
	case PixelTypeFloat:
		if data, ok := slice.Pointers[y][x].([]float32); ok && sampleIdx < len(data) {
			return data[sampleIdx]
		}
	case PixelTypeHalf:
		if data, ok := slice.Pointers[y][x].([]uint16); ok && sampleIdx < len(data) {
			h := half.Half(data[sampleIdx])
			return h.Float32()
		}
	case PixelTypeUint:
		if data, ok := slice.Pointers[y][x].([]uint32); ok && sampleIdx < len(data) {
			return float32(data[sampleIdx])
		}
	}
	return 0
}

// writePixel writes composited values to the output frame buffer.
func (c *CompositeDeepTiled) writePixel(x, y int, r, g, b, a float32) {
	if rSlice := c.outputFrameBuffer.Get("R"); rSlice != nil {
		rSlice.SetFloat32(x, y, r)
	}
	if gSlice := c.outputFrameBuffer.Get("G"); gSlice != nil {
		gSlice.SetFloat32(x, y, g)
	}
	if bSlice := c.outputFrameBuffer.Get("B"); bSlice != nil {
		bSlice.SetFloat32(x, y, b)
	}
	if aSlice := c.outputFrameBuffer.Get("A"); aSlice != nil {
		aSlice.SetFloat32(x, y, a)
	}
}

// VolumetricDeepCompositing embeds the default algorithm and sorts and
// composites samples the same way. Overlapping volumetric samples are not
// split at depth boundaries.
type VolumetricDeepCompositing struct {
	DefaultDeepCompositing
}

// NewVolumetricDeepCompositing creates a volumetric-aware compositing engine.
func NewVolumetricDeepCompositing() *VolumetricDeepCompositing {
	return &VolumetricDeepCompositing{}
}

// SortPixel sorts samples by Z, then ZBack, exactly as the default engine
// does. Volumetric samples are not split.
func (v *VolumetricDeepCompositing) SortPixel(samples []DeepSample) {
	v.DefaultDeepCompositing.SortPixel(samples)

	// The result is correct for non-overlapping volumes; overlapping
	// volumetric samples are kept whole.
}

// CompositePixel composites samples front to back with the over operator.
// Volumetric samples are treated like hard surfaces; the depth interval
// does not affect the result.
func (v *VolumetricDeepCompositing) CompositePixel(samples []DeepSample) (r, g, b, a float32) {
	if len(samples) == 0 {
		return 0, 0, 0, 0
	}

	for _, sample := range samples {
		if a >= 1.0 {
			break
		}

		// Same over operation for hard surfaces and volumetric samples
		oneMinusAlpha := 1.0 - a

		r += oneMinusAlpha * sample.R
		g += oneMinusAlpha * sample.G
		b += oneMinusAlpha * sample.B
		a += oneMinusAlpha * sample.A
	}

	if a > 1.0 {
		a = 1.0
	}
	if a < 0.0 {
		a = 0.0
	}

	return r, g, b, a
}
