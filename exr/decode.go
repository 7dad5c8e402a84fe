package exr

import (
	"fmt"
	"math"

	"github.com/TriceHelix/openexr-go/compression"
	"github.com/TriceHelix/openexr-go/half"
	"github.com/TriceHelix/openexr-go/internal/predictor"
)

// decompressChunkData is the read-side counterpart to compressChunkData: it
// expands a chunk's on-disk payload back into channel-planar pixel bytes,
// dispatching on the same compression identifier the writer used.
func decompressChunkData(data []byte, width, height int, cl *ChannelList, comp Compression) ([]byte, error) {
	expectedSize := cl.BytesPerPixel() * width * height

	switch comp {
	case CompressionNone:
		if len(data) != expectedSize {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidData, len(data), expectedSize)
		}
		return data, nil

	case CompressionRLE:
		// A compliant encoder falls back to storing the chunk uncompressed
		// when RLE doesn't help; that shows up here as the payload already
		// being exactly expectedSize bytes, in which case it skips RLE
		// decoding and the reorder/predictor inverse entirely and is
		// copied straight through.
		if len(data) == expectedSize {
			return data, nil
		}
		decompressed, err := compression.RLEDecompress(data, expectedSize)
		if err != nil {
			return nil, err
		}
		var deinterleaved []byte
		if len(decompressed) >= 32 {
			deinterleaved = compression.DeinterleaveFast(decompressed)
		} else {
			deinterleaved = compression.Deinterleave(decompressed)
		}
		predictor.DecodeSIMD(deinterleaved)
		return deinterleaved, nil

	case CompressionZIPS, CompressionZIP:
		// Same stored-uncompressed fallback as RLE above.
		if len(data) == expectedSize {
			return data, nil
		}
		decompressed, err := compression.ZIPDecompress(data, expectedSize)
		if err != nil {
			return nil, err
		}
		var deinterleaved []byte
		if len(decompressed) >= 32 {
			deinterleaved = compression.DeinterleaveFast(decompressed)
		} else {
			deinterleaved = compression.Deinterleave(decompressed)
		}
		predictor.DecodeSIMD(deinterleaved)
		return deinterleaved, nil

	case CompressionPIZ:
		return compression.PIZDecompressBytes(data, width, height, cl.Len())

	case CompressionPXR24:
		sortedChannels := cl.SortedByName()
		channels := make([]compression.ChannelInfo, len(sortedChannels))
		for i, ch := range sortedChannels {
			chWidth := (width + int(ch.XSampling) - 1) / int(ch.XSampling)
			channels[i] = compression.ChannelInfo{
				Type:   pxrChannelType(ch.Type),
				Width:  chWidth,
				Height: height,
			}
		}
		return compression.PXR24Decompress(data, channels, width, height, expectedSize)

	case CompressionB44, CompressionB44A:
		sortedChannels := cl.SortedByName()
		channels := make([]compression.B44ChannelInfo, len(sortedChannels))
		for i, ch := range sortedChannels {
			chWidth := (width + int(ch.XSampling) - 1) / int(ch.XSampling)
			channels[i] = compression.B44ChannelInfo{
				Type:   pxrChannelType(ch.Type),
				Width:  chWidth,
				Height: height,
			}
		}
		return compression.B44Decompress(data, channels, width, height, expectedSize)

	case CompressionDWAA, CompressionDWAB:
		return nil, ErrUnsupportedCompression

	default:
		return data, nil
	}
}

// pxrChannelType maps a channel's pixel type to the small integer encoding
// PXR24Compress/B44Compress expect (0=UINT, 1=HALF, 2=FLOAT).
func pxrChannelType(t PixelType) int {
	switch t {
	case PixelTypeUint:
		return 0
	case PixelTypeHalf:
		return 1
	case PixelTypeFloat:
		return 2
	default:
		return 1
	}
}

// parseScanlineData is the inverse of buildScanlineData: it scatters
// channel-planar pixel bytes for [startY, startY+numLines) back into fb's
// slices, skipping channels fb has no slice for. It returns ErrBufferTooSmall
// if any destination slice is too small for the region being written,
// instead of writing past the caller-supplied buffer.
func parseScanlineData(fb *FrameBuffer, cl *ChannelList, width, startY, numLines int, data []byte) error {
	sortedChannels := cl.SortedByName()

	if startY >= 0 {
		for _, ch := range sortedChannels {
			slice := fb.Get(ch.Name)
			if slice == nil {
				continue
			}
			chWidth := (width + int(ch.XSampling) - 1) / int(ch.XSampling)
			maxY := startY + numLines
			chHeight := (maxY + int(ch.YSampling) - 1) / int(ch.YSampling)
			if !slice.fits(chWidth, chHeight) {
				return fmt.Errorf("%w: channel %q: scanline buffer too small for %dx%d region", ErrBufferTooSmall, ch.Name, chWidth, chHeight)
			}
		}
	}

	offset := 0
	for y := startY; y < startY+numLines; y++ {
		for _, ch := range sortedChannels {
			slice := fb.Get(ch.Name)
			for x := 0; x < width; x++ {
				if slice == nil {
					switch ch.Type {
					case PixelTypeHalf:
						offset += 2
					case PixelTypeFloat, PixelTypeUint:
						offset += 4
					}
					continue
				}

				switch ch.Type {
				case PixelTypeHalf:
					bits := uint16(data[offset]) | uint16(data[offset+1])<<8
					slice.SetHalf(x, y, half.FromBits(bits))
					offset += 2
				case PixelTypeFloat:
					bits := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
					slice.SetFloat32(x, y, math.Float32frombits(bits))
					offset += 4
				case PixelTypeUint:
					v := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
					slice.SetUint32(x, y, v)
					offset += 4
				}
			}
		}
	}

	return nil
}

// parseTileData is the inverse of buildTileData: it scatters channel-planar
// pixel bytes for a width x height tile back into fb at (startX, startY). It
// returns ErrBufferTooSmall if any destination slice is too small for the
// tile region being written.
func parseTileData(fb *FrameBuffer, cl *ChannelList, startX, startY, width, height int, data []byte) error {
	sortedChannels := cl.SortedByName()

	if startX >= 0 && startY >= 0 {
		for _, ch := range sortedChannels {
			slice := fb.Get(ch.Name)
			if slice == nil {
				continue
			}
			maxX := startX + width
			maxY := startY + height
			chWidth := (maxX + int(ch.XSampling) - 1) / int(ch.XSampling)
			chHeight := (maxY + int(ch.YSampling) - 1) / int(ch.YSampling)
			if !slice.fits(chWidth, chHeight) {
				return fmt.Errorf("%w: channel %q: tile buffer too small for %dx%d region", ErrBufferTooSmall, ch.Name, chWidth, chHeight)
			}
		}
	}

	offset := 0
	for y := 0; y < height; y++ {
		for _, ch := range sortedChannels {
			slice := fb.Get(ch.Name)
			for x := 0; x < width; x++ {
				if slice == nil {
					switch ch.Type {
					case PixelTypeHalf:
						offset += 2
					case PixelTypeFloat, PixelTypeUint:
						offset += 4
					}
					continue
				}

				switch ch.Type {
				case PixelTypeHalf:
					bits := uint16(data[offset]) | uint16(data[offset+1])<<8
					slice.SetHalf(startX+x, startY+y, half.FromBits(bits))
					offset += 2
				case PixelTypeFloat:
					bits := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
					slice.SetFloat32(startX+x, startY+y, math.Float32frombits(bits))
					offset += 4
				case PixelTypeUint:
					v := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
					slice.SetUint32(startX+x, startY+y, v)
					offset += 4
				}
			}
		}
	}

	return nil
}

// validateTileLevel checks that (lx, ly) is a valid level for td's mode and
// returns its geometry, or ErrLevelOutOfRange.
func validateTileLevel(td TileDescription, width, height, lx, ly int) (LevelGeometry, error) {
	levels, levelsX, _ := TileLevels(td, width, height)

	switch td.Mode {
	case LevelModeOne:
		if lx != 0 || ly != 0 {
			return LevelGeometry{}, ErrLevelOutOfRange
		}
		return levels[0], nil

	case LevelModeMipmap:
		if lx != ly || lx < 0 || lx >= len(levels) {
			return LevelGeometry{}, ErrLevelOutOfRange
		}
		return levels[lx], nil

	case LevelModeRipmap:
		if lx < 0 || lx >= levelsX || ly < 0 {
			return LevelGeometry{}, ErrLevelOutOfRange
		}
		idx := ly*levelsX + lx
		if idx >= len(levels) {
			return LevelGeometry{}, ErrLevelOutOfRange
		}
		return levels[idx], nil

	default:
		return LevelGeometry{}, ErrLevelOutOfRange
	}
}
