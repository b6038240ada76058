package materials

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseHex reads "#rgb" or "#rrggbb" (sRGB) into the linear working space.
func ParseHex(s string) (colorful.Color, error) {
	c, err := colorful.Hex(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.LinearRgb()
	return colorful.Color{R: r, G: g, B: b}, nil
}

// Hex encodes a working-space color as "#rrggbb" (sRGB).
func Hex(c colorful.Color) string {
	return colorful.LinearRgb(c.R, c.G, c.B).Clamped().Hex()
}

// Lerp moves from toward to by fraction t. Both colors are in the working space, so
// this is plain component-wise interpolation.
func Lerp(from, to colorful.Color, t float64) colorful.Color {
	return from.BlendRgb(to, t)
}

// Distance is the euclidean distance between two working-space colors.
func Distance(a, b colorful.Color) float64 {
	return a.DistanceRgb(b)
}
