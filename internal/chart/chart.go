// Package chart binds aggregated trade series to donut charts, their
// interactive legends and the canvas that owns them.
package chart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"tradeviz/internal/core"
)

var (
	// ErrChartDisposed is returned by operations on a chart that was replaced or destroyed.
	ErrChartDisposed = errors.New("chart disposed")
	// ErrSegmentOutOfRange is returned for a segment index outside the series.
	ErrSegmentOutOfRange = errors.New("segment index out of range")
	// ErrNothingToDraw is returned when no visible segment has a positive value.
	ErrNothingToDraw = errors.New("no visible segment to draw")
)

// Chart is one rendered donut bound to a series. Segment visibility is
// changed only through its Legend.
type Chart struct {
	mu       sync.Mutex
	id       string
	series   core.ChartSeries
	colors   []core.Color
	config   Config
	hidden   []bool
	legend   *Legend
	disposed bool
}

func newChart(id string, series core.ChartSeries) *Chart {
	colors := core.GenerateColors(series.Len())
	c := &Chart{
		id:     id,
		series: series,
		colors: colors,
		config: NewConfig(series, colors),
		hidden: make([]bool, series.Len()),
	}
	c.legend = newLegend(c)
	return c
}

// ID returns the chart instance identifier.
func (c *Chart) ID() string { return c.id }

// Series returns the series the chart was built from.
func (c *Chart) Series() core.ChartSeries { return c.series }

// Colors returns the segment colors in series order.
func (c *Chart) Colors() []core.Color { return append([]core.Color(nil), c.colors...) }

// Config returns the declarative configuration of the chart.
func (c *Chart) Config() Config { return c.config }

// Legend returns the legend bound to the chart.
func (c *Chart) Legend() *Legend { return c.legend }

// Len returns the number of segments.
func (c *Chart) Len() int { return c.series.Len() }

// IsHidden reports whether segment i is hidden.
func (c *Chart) IsHidden(i int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrChartDisposed
	}
	if i < 0 || i >= len(c.hidden) {
		return false, fmt.Errorf("%w: %d", ErrSegmentOutOfRange, i)
	}
	return c.hidden[i], nil
}

// Hidden returns a snapshot of the per-segment hidden flags.
func (c *Chart) Hidden() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.hidden...)
}

// Total returns the sum of every segment, hidden or not.
func (c *Chart) Total() decimal.Decimal { return c.series.Total() }

// Disposed reports whether the chart was destroyed.
func (c *Chart) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Dispose destroys the chart and tears down its legend. Disposing twice is a no-op.
func (c *Chart) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.legend.clearLocked()
}

// toggleLocked flips segment i and returns its new hidden state. The caller
// holds c.mu.
func (c *Chart) toggleLocked(i int) (bool, error) {
	if c.disposed {
		return false, ErrChartDisposed
	}
	if i < 0 || i >= len(c.hidden) {
		return false, fmt.Errorf("%w: %d", ErrSegmentOutOfRange, i)
	}
	c.hidden[i] = !c.hidden[i]
	return c.hidden[i], nil
}

// applyHidden sets the hidden flags from a list of segment indices, used
// when a chart is reconstructed from a request that carries visibility.
func (c *Chart) applyHidden(indices []int) error {
	for _, i := range indices {
		hidden, err := c.IsHidden(i)
		if err != nil {
			return err
		}
		if !hidden {
			if err := c.legend.Click(i); err != nil {
				return err
			}
		}
	}
	return nil
}
