package chart

import (
	"fmt"
	"sync"

	"tradeviz/internal/core"
	"tradeviz/internal/idgen"
)

// Canvas owns at most one live chart, the way a page element holds a
// single chart instance.
type Canvas struct {
	mu    sync.Mutex
	id    string
	live  *Chart
	newID func() (string, error)
}

// NewCanvas returns an empty canvas with the given element id.
func NewCanvas(id string) *Canvas {
	return &Canvas{id: id, newID: idgen.NewChartID}
}

// ID returns the canvas element id.
func (c *Canvas) ID() string { return c.id }

// Render disposes the live chart, if any, and binds a new chart for series.
func (c *Canvas) Render(series core.ChartSeries) (*Chart, error) {
	id, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil {
		c.live.Dispose()
	}
	c.live = newChart(id, series)
	return c.live, nil
}

// Current returns the live chart, or nil.
func (c *Canvas) Current() *Chart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Clear disposes the live chart and leaves the canvas empty.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live != nil {
		c.live.Dispose()
		c.live = nil
	}
}

// Build creates a detached chart for series with the given segments
// already hidden. It backs stateless renders such as the SVG endpoint.
func Build(series core.ChartSeries, hidden []int) (*Chart, error) {
	id, err := idgen.NewChartID()
	if err != nil {
		return nil, fmt.Errorf("build chart: %w", err)
	}
	c := newChart(id, series)
	if err := c.applyHidden(hidden); err != nil {
		return nil, err
	}
	return c, nil
}
