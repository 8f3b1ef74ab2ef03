package blit

import (
	"fmt"
	"strings"
)

// RepeatMode selects how a surface is sampled outside its rectangle.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatNormal
	RepeatPad
	RepeatReflect
	RepeatClamp
)

// ScaleMode selects the scaling filter.
type ScaleMode int

const (
	ScaleNone ScaleMode = iota
	ScaleNearest
	ScaleBilinear
)

// Rotation is the rotation or flip applied to the source.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
	FlipX
	FlipY
)

// KeyMode selects the bluescreen (color key) behaviour.
type KeyMode int

const (
	KeyOff KeyMode = iota
	// KeyTransparent drops source pixels matching the key color.
	KeyTransparent
	// KeyBluescreen replaces source pixels matching the key with the background color.
	KeyBluescreen
)

var (
	repeatNames = []string{"none", "normal", "pad", "reflect", "clamp"}
	scaleNames  = []string{"none", "nearest", "bilinear"}
	rotateNames = []string{"0", "90", "180", "270", "xflip", "yflip"}
	keyNames    = []string{"off", "transparent", "bluescreen"}
)

func enumString(names []string, v int, kind string) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, v)
	}
	return names[v]
}

func enumParse(names []string, text []byte, kind string) (int, error) {
	n := strings.ToLower(strings.TrimSpace(string(text)))
	for i, s := range names {
		if s == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, string(text))
}

func (m RepeatMode) String() string { return enumString(repeatNames, int(m), "repeat") }
func (m ScaleMode) String() string  { return enumString(scaleNames, int(m), "scaling") }
func (r Rotation) String() string   { return enumString(rotateNames, int(r), "rotation") }
func (m KeyMode) String() string    { return enumString(keyNames, int(m), "bluescreen") }

func (m RepeatMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m ScaleMode) MarshalText() ([]byte, error)  { return []byte(m.String()), nil }
func (r Rotation) MarshalText() ([]byte, error)   { return []byte(r.String()), nil }
func (m KeyMode) MarshalText() ([]byte, error)    { return []byte(m.String()), nil }

func (m *RepeatMode) UnmarshalText(text []byte) error {
	v, err := enumParse(repeatNames, text, "repeat mode")
	*m = RepeatMode(v)
	return err
}

func (m *ScaleMode) UnmarshalText(text []byte) error {
	v, err := enumParse(scaleNames, text, "scaling mode")
	*m = ScaleMode(v)
	return err
}

func (r *Rotation) UnmarshalText(text []byte) error {
	v, err := enumParse(rotateNames, text, "rotation")
	*r = Rotation(v)
	return err
}

func (m *KeyMode) UnmarshalText(text []byte) error {
	v, err := enumParse(keyNames, text, "bluescreen mode")
	*m = KeyMode(v)
	return err
}

// Repeat describes out-of-rectangle sampling.
type Repeat struct {
	Mode     RepeatMode `yaml:"mode"`
	PadColor uint32     `yaml:"pad_color,omitempty"`
}

// Scaling describes a source-to-destination scale factor as two sizes.
type Scaling struct {
	Mode ScaleMode `yaml:"mode"`
	SrcW int       `yaml:"src_w"`
	SrcH int       `yaml:"src_h"`
	DstW int       `yaml:"dst_w"`
	DstH int       `yaml:"dst_h"`
}

// Clipping restricts writes to a destination rectangle.
type Clipping struct {
	Enable bool `yaml:"enable"`
	Rect   Rect `yaml:"rect"`
}

// Bluescreen is the color key configuration.
type Bluescreen struct {
	Mode    KeyMode `yaml:"mode"`
	Key     uint32  `yaml:"key"`
	BgColor uint32  `yaml:"bg_color,omitempty"`
}

// Params are the per-command blit parameters.
type Params struct {
	GlobalAlpha   uint8      `yaml:"global_alpha"`
	SolidColor    uint32     `yaml:"solid_color"`
	Premultiplied bool       `yaml:"premultiplied"`
	Repeat        Repeat     `yaml:"repeat"`
	Scaling       Scaling    `yaml:"scaling"`
	Clipping      Clipping   `yaml:"clipping"`
	Rotate        Rotation   `yaml:"rotate"`
	Dither        bool       `yaml:"dither"`
	Bluescreen    Bluescreen `yaml:"bluescreen"`
}

// Alpha returns the alpha byte of an ARGB color.
func Alpha(argb uint32) uint8 { return uint8(argb >> 24) }
