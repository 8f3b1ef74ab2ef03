package blit

import (
	"fmt"
	"strings"
)

// AddrMode says where a surface's pixels come from.
type AddrMode int

const (
	// AddrNone marks an empty surface slot.
	AddrNone AddrMode = iota
	// AddrMemory is a surface backed by an image buffer.
	AddrMemory
	// AddrColor is a surface produced by the constant-color generator.
	AddrColor
)

var addrNames = map[AddrMode]string{
	AddrNone:   "none",
	AddrMemory: "memory",
	AddrColor:  "color",
}

func (m AddrMode) String() string {
	if s, ok := addrNames[m]; ok {
		return s
	}
	return fmt.Sprintf("AddrMode(%d)", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AddrMode) UnmarshalText(text []byte) error {
	n := strings.ToLower(strings.TrimSpace(string(text)))
	for mode, s := range addrNames {
		if s == n {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown address mode %q", string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (m AddrMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Format is a pixel format.
type Format int

const (
	FormatXRGB8888 Format = iota
	FormatARGB8888
	FormatRGB565
	FormatXRGB1555
	FormatARGB1555
	FormatXRGB4444
	FormatARGB4444
	FormatRGB888

	formatCount
)

var formatNames = [formatCount]string{
	FormatXRGB8888: "XRGB_8888",
	FormatARGB8888: "ARGB_8888",
	FormatRGB565:   "RGB_565",
	FormatXRGB1555: "XRGB_1555",
	FormatARGB1555: "ARGB_1555",
	FormatXRGB4444: "XRGB_4444",
	FormatARGB4444: "ARGB_4444",
	FormatRGB888:   "RGB_888",
}

var formatBpp = [formatCount]int{
	FormatXRGB8888: 4,
	FormatARGB8888: 4,
	FormatRGB565:   2,
	FormatXRGB1555: 2,
	FormatARGB1555: 2,
	FormatXRGB4444: 2,
	FormatARGB4444: 2,
	FormatRGB888:   3,
}

// Valid reports whether f is a defined format.
func (f Format) Valid() bool {
	return f >= 0 && f < formatCount
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// HasAlpha reports whether the format carries an alpha channel. Formats
// without one are opaque by construction.
func (f Format) HasAlpha() bool {
	switch f {
	case FormatARGB8888, FormatARGB1555, FormatARGB4444:
		return true
	default:
		return false
	}
}

// BytesPerPixel returns the storage size of one pixel, or 0 for an invalid format.
func (f Format) BytesPerPixel() int {
	if !f.Valid() {
		return 0
	}
	return formatBpp[f]
}

// ParseFormat parses a format name such as "ARGB_8888" or "argb8888".
func ParseFormat(name string) (Format, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for f, s := range formatNames {
		if s == n || strings.ReplaceAll(s, "_", "") == n {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Rect is a pixel rectangle with exclusive max corner.
type Rect struct {
	X1 int `yaml:"x1" toml:"x1"`
	Y1 int `yaml:"y1" toml:"y1"`
	X2 int `yaml:"x2" toml:"x2"`
	Y2 int `yaml:"y2" toml:"y2"`
}

// Dx returns the rectangle width.
func (r Rect) Dx() int { return r.X2 - r.X1 }

// Dy returns the rectangle height.
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool { return r.X1 >= r.X2 || r.Y1 >= r.Y2 }

// Intersect returns the largest rectangle contained by both r and s.
func (r Rect) Intersect(s Rect) Rect {
	if r.X1 < s.X1 {
		r.X1 = s.X1
	}
	if r.Y1 < s.Y1 {
		r.Y1 = s.Y1
	}
	if r.X2 > s.X2 {
		r.X2 = s.X2
	}
	if r.Y2 > s.Y2 {
		r.Y2 = s.Y2
	}
	if r.Empty() {
		return Rect{}
	}
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Surface is one image slot of a command.
type Surface struct {
	Addr   AddrMode `yaml:"addr"`
	Format Format   `yaml:"format"`
	Width  int      `yaml:"width"`
	Height int      `yaml:"height"`
	Stride int      `yaml:"stride,omitempty"`
	Rect   Rect     `yaml:"rect"`

	// DMA is the resolved device address of a memory-backed surface.
	DMA uint64 `yaml:"dma,omitempty"`
}

// Present reports whether the slot is in use.
func (s Surface) Present() bool { return s.Addr != AddrNone }

// Backed reports whether the surface reads or writes image memory.
func (s Surface) Backed() bool { return s.Addr == AddrMemory }

// Opaque reports whether every pixel of a memory-backed surface is provably
// fully opaque. Formats with an alpha channel are never assumed opaque.
func (s Surface) Opaque() bool { return !s.Format.HasAlpha() }

// Validate checks the surface geometry. Empty slots are always valid.
func (s Surface) Validate() error {
	switch s.Addr {
	case AddrNone:
		return nil
	case AddrMemory, AddrColor:
	default:
		return fmt.Errorf("invalid address mode %d", int(s.Addr))
	}
	if !s.Format.Valid() {
		return fmt.Errorf("invalid format %d", int(s.Format))
	}
	if s.Addr != AddrMemory {
		return nil
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", s.Width, s.Height)
	}
	if s.Stride != 0 && s.Stride < s.Width*s.Format.BytesPerPixel() {
		return fmt.Errorf("stride %d too small for width %d (%s)", s.Stride, s.Width, s.Format)
	}
	r := s.Rect
	if r.Empty() || r.X1 < 0 || r.Y1 < 0 || r.X2 > s.Width || r.Y2 > s.Height {
		return fmt.Errorf("rect %s outside %dx%d", r, s.Width, s.Height)
	}
	return nil
}

// RowBytes returns the effective stride in bytes.
func (s Surface) RowBytes() int {
	if s.Stride != 0 {
		return s.Stride
	}
	return s.Width * s.Format.BytesPerPixel()
}
