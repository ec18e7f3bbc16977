package core

import (
	"fmt"
	"math"
	"strconv"
)

const (
	segmentSaturation = 70
	segmentLightness  = 60
)

// Color is an HSL color assigned to a chart segment.
type Color struct {
	Hue        float64
	Saturation int // percent
	Lightness  int // percent
}

// GenerateColors returns n colors with hues spread evenly around the wheel.
// The result depends only on n.
func GenerateColors(n int) []Color {
	if n <= 0 {
		return nil
	}
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = Color{
			Hue:        math.Mod(float64(i)*360/float64(n), 360),
			Saturation: segmentSaturation,
			Lightness:  segmentLightness,
		}
	}
	return colors
}

// CSS returns the color as a css hsl() function, e.g. "hsl(72, 70%, 60%)".
func (c Color) CSS() string {
	return fmt.Sprintf("hsl(%s, %d%%, %d%%)", strconv.FormatFloat(c.Hue, 'f', -1, 64), c.Saturation, c.Lightness)
}

// RGB converts the color to 8-bit red, green and blue channels.
func (c Color) RGB() (r, g, b uint8) {
	s := float64(c.Saturation) / 100
	l := float64(c.Lightness) / 100
	h := math.Mod(c.Hue, 360)
	if h < 0 {
		h += 360
	}

	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = chroma, x, 0
	case h < 120:
		rf, gf, bf = x, chroma, 0
	case h < 180:
		rf, gf, bf = 0, chroma, x
	case h < 240:
		rf, gf, bf = 0, x, chroma
	case h < 300:
		rf, gf, bf = x, 0, chroma
	default:
		rf, gf, bf = chroma, 0, x
	}

	channel := func(v float64) uint8 {
		return uint8(math.Round((v + m) * 255))
	}
	return channel(rf), channel(gf), channel(bf)
}
