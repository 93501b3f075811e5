package style

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an RGB color. The zero value is "unset", meaning the host's
// default color applies.
type Color struct {
	R, G, B uint8
	set     bool
}

// RGB builds a set color from components.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, set: true}
}

// Hex parses "#rrggbb" (or "#rgb") into a Color.
func Hex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB(r, g, b), nil
}

// MustHex parses a hex color and panics on failure. For package-level
// defaults only.
func MustHex(s string) Color {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsSet reports whether the color was explicitly assigned.
func (c Color) IsSet() bool { return c.set }

// Hex renders the color as "#rrggbb". Unset colors render as "".
func (c Color) Hex() string {
	if !c.set {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return RGB(r, g, b)
}

// Blend mixes the color toward o by t in [0,1], in Lab space so midpoints
// stay perceptually even. Blending with an unset color returns the receiver.
func (c Color) Blend(o Color, t float64) Color {
	if !c.set {
		return o
	}
	if !o.set {
		return c
	}
	return fromColorful(c.colorful().BlendLab(o.colorful(), clamp01(t)))
}

// Dim fades the color toward black by t in [0,1]. Used for collapsed lines
// and placeholders, which reduce presence without disappearing.
func (c Color) Dim(t float64) Color {
	if !c.set {
		return c
	}
	return fromColorful(c.colorful().BlendRgb(colorful.Color{}, clamp01(t)))
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
