package chart

import (
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tradeviz/internal/core"
)

// SVGOptions controls the rendered image.
type SVGOptions struct {
	Width  int
	Height int
	Title  string
}

// DefaultSVGOptions returns a square 512px image without a title.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 512, Height: 512}
}

// RenderSVG draws the visible segments of c as a donut. Hidden segments are
// left out of the arc layout, like the browser chart does.
func (c *Chart) RenderSVG(w io.Writer, opts SVGOptions) error {
	if c.Disposed() {
		return ErrChartDisposed
	}

	hidden := c.Hidden()
	var values []gochart.Value
	for i, label := range c.series.Labels {
		if hidden[i] {
			continue
		}
		v := c.series.Values[i]
		// the donut layout only understands positive shares
		if v.Sign() <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: label,
			Value: v.InexactFloat64(),
			Style: gochart.Style{
				FillColor:   rgb(c.colors[i]),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
				FontColor:   drawing.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return ErrNothingToDraw
	}

	donut := gochart.DonutChart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Values: values,
	}
	if opts.Title == "" {
		donut.TitleStyle = gochart.Style{Hidden: true}
	}
	if err := donut.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render donut svg: %w", err)
	}
	return nil
}

func rgb(c core.Color) drawing.Color {
	r, g, b := c.RGB()
	return drawing.Color{R: r, G: g, B: b, A: 255}
}
