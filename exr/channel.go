package exr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TriceHelix/openexr-go/internal/xdr"
)

// PixelType identifies the on-disk representation of a channel's samples.
type PixelType int32

const (
	PixelTypeUint  PixelType = 0
	PixelTypeHalf  PixelType = 1
	PixelTypeFloat PixelType = 2
)

// String returns the OpenEXR name for the pixel type.
func (pt PixelType) String() string {
	switch pt {
	case PixelTypeUint:
		return "uint"
	case PixelTypeHalf:
		return "half"
	case PixelTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Size returns the number of bytes a single sample of this type occupies
// on disk, or 0 for an unrecognized type.
func (pt PixelType) Size() int {
	switch pt {
	case PixelTypeUint, PixelTypeFloat:
		return 4
	case PixelTypeHalf:
		return 2
	default:
		return 0
	}
}

// Channel describes one image channel: its name, storage type, and
// subsampling relative to the part's data window.
type Channel struct {
	Name      string
	Type      PixelType
	PLinear   bool
	XSampling int32
	YSampling int32
}

// NewChannel returns a Channel with 1x1 sampling and pLinear unset.
func NewChannel(name string, pixelType PixelType) Channel {
	return Channel{
		Name:      name,
		Type:      pixelType,
		XSampling: 1,
		YSampling: 1,
	}
}

// Layer returns the layer portion of a channel name: everything before the
// last '.', or "" if the channel has no layer prefix.
func (c Channel) Layer() string {
	i := strings.LastIndexByte(c.Name, '.')
	if i < 0 {
		return ""
	}
	return c.Name[:i]
}

// BaseName returns the channel name with any layer prefix stripped.
func (c Channel) BaseName() string {
	i := strings.LastIndexByte(c.Name, '.')
	if i < 0 {
		return c.Name
	}
	return c.Name[i+1:]
}

// ChannelList holds a part's channels, kept in strict lexicographic order
// by name (§3 invariant 1 / §8 property 1).
type ChannelList struct {
	channels []Channel
}

// NewChannelList returns an empty channel list.
func NewChannelList() *ChannelList {
	return &ChannelList{}
}

// Len returns the number of channels.
func (cl *ChannelList) Len() int {
	return len(cl.channels)
}

func (cl *ChannelList) search(name string) (int, bool) {
	i := sort.Search(len(cl.channels), func(i int) bool {
		return cl.channels[i].Name >= name
	})
	if i < len(cl.channels) && cl.channels[i].Name == name {
		return i, true
	}
	return i, false
}

// Add inserts a channel in sorted position. Returns false without modifying
// the list if a channel with the same name already exists.
func (cl *ChannelList) Add(c Channel) bool {
	i, found := cl.search(c.Name)
	if found {
		return false
	}
	cl.channels = append(cl.channels, Channel{})
	copy(cl.channels[i+1:], cl.channels[i:])
	cl.channels[i] = c
	return true
}

// Get returns a pointer to the named channel, or nil if absent.
func (cl *ChannelList) Get(name string) *Channel {
	i, found := cl.search(name)
	if !found {
		return nil
	}
	return &cl.channels[i]
}

// At returns the channel at the given sorted index.
func (cl *ChannelList) At(i int) Channel {
	return cl.channels[i]
}

// Names returns the channel names in sorted order.
func (cl *ChannelList) Names() []string {
	names := make([]string, len(cl.channels))
	for i, c := range cl.channels {
		names[i] = c.Name
	}
	return names
}

// Channels returns a copy of the channel slice.
func (cl *ChannelList) Channels() []Channel {
	out := make([]Channel, len(cl.channels))
	copy(out, cl.channels)
	return out
}

// HasRGB reports whether R, G and B channels are all present.
func (cl *ChannelList) HasRGB() bool {
	return cl.Get("R") != nil && cl.Get("G") != nil && cl.Get("B") != nil
}

// HasAlpha reports whether an A channel is present.
func (cl *ChannelList) HasAlpha() bool {
	return cl.Get("A") != nil
}

// HasRGBA reports whether R, G, B and A channels are all present.
func (cl *ChannelList) HasRGBA() bool {
	return cl.HasRGB() && cl.HasAlpha()
}

// Layers returns the distinct non-root layer prefixes present in the list.
func (cl *ChannelList) Layers() []string {
	seen := make(map[string]bool)
	var layers []string
	for _, c := range cl.channels {
		l := c.Layer()
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		layers = append(layers, l)
	}
	sort.Strings(layers)
	return layers
}

// ChannelsInLayer returns the channels belonging to the given layer ("" for
// the root layer).
func (cl *ChannelList) ChannelsInLayer(layer string) []Channel {
	var out []Channel
	for _, c := range cl.channels {
		if c.Layer() == layer {
			out = append(out, c)
		}
	}
	return out
}

// SortedByName returns a copy of the channel list sorted by name. Since Add
// maintains sorted order internally, this is equivalent to Channels().
func (cl *ChannelList) SortedByName() []Channel {
	return cl.Channels()
}

// SortByName restores strict lexicographic order by channel name.
func (cl *ChannelList) SortByName() {
	sort.Slice(cl.channels, func(i, j int) bool {
		return cl.channels[i].Name < cl.channels[j].Name
	})
}

// SortForCompression reorders channels by pixel type then name, grouping
// same-size samples together the way B44/PXR24 channel-planar encoding
// prefers for better compression ratios.
func (cl *ChannelList) SortForCompression() {
	sort.Slice(cl.channels, func(i, j int) bool {
		a, b := cl.channels[i], cl.channels[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Name < b.Name
	})
}

// BytesPerPixel returns the sum of each channel's sample size, ignoring
// subsampling (i.e. the per-pixel stride for a fully-sampled interleaved
// buffer).
func (cl *ChannelList) BytesPerPixel() int {
	total := 0
	for _, c := range cl.channels {
		total += c.Type.Size()
	}
	return total
}

// BytesPerScanline returns the number of bytes one scanline of `width`
// pixels occupies in the on-disk channel-planar layout, accounting for
// each channel's x-sampling.
func (cl *ChannelList) BytesPerScanline(width int) int {
	total := 0
	for _, c := range cl.channels {
		xs := int(c.XSampling)
		if xs < 1 {
			xs = 1
		}
		sampledWidth := (width + xs - 1) / xs
		total += sampledWidth * c.Type.Size()
	}
	return total
}

// ReadChannelList parses the `chlist` attribute payload: a run of
// {name:zstring, pixel_type:i32, pLinear:u8, 3 reserved, xSampling:i32,
// ySampling:i32} records terminated by an empty name.
func ReadChannelList(r *xdr.Reader) (*ChannelList, error) {
	cl := NewChannelList()
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("exr: reading channel name: %w", err)
		}
		if name == "" {
			return cl, nil
		}

		typeVal, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("exr: reading channel %q pixel type: %w", name, err)
		}

		pLinear, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("exr: reading channel %q pLinear: %w", name, err)
		}

		if _, err := r.ReadBytes(3); err != nil {
			return nil, fmt.Errorf("exr: reading channel %q reserved bytes: %w", name, err)
		}

		xSampling, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("exr: reading channel %q xSampling: %w", name, err)
		}
		ySampling, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("exr: reading channel %q ySampling: %w", name, err)
		}

		cl.channels = append(cl.channels, Channel{
			Name:      name,
			Type:      PixelType(typeVal),
			PLinear:   pLinear != 0,
			XSampling: xSampling,
			YSampling: ySampling,
		})
	}
}

// WriteChannelList serializes a channel list in its current order,
// terminated by an empty name. Callers that need the on-disk invariant
// (strict lexicographic order) should call SortByName first.
func WriteChannelList(w *xdr.BufferWriter, cl *ChannelList) {
	for _, c := range cl.channels {
		w.WriteString(c.Name)
		w.WriteInt32(int32(c.Type))
		if c.PLinear {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		w.WriteBytes([]byte{0, 0, 0})
		w.WriteInt32(c.XSampling)
		w.WriteInt32(c.YSampling)
	}
	w.WriteByte(0)
}
