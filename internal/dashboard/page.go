// Package dashboard drives the trade dashboard page headlessly: it loads
// the category options, submits trade queries and owns the chart canvas and
// legend the way the browser page does.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tradeviz/internal/chart"
	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
)

const (
	// CategoriesKey is the session key the raw category list is written to.
	CategoriesKey = "categories"

	// CanvasID is the element id of the chart canvas.
	CanvasID = "trade-chart"

	OpacityIdle    = 1.0
	OpacityLoading = 0.5
)

// ErrStaleResponse is returned by Submit when a newer submission started
// before this one completed. A stale response never renders.
var ErrStaleResponse = errors.New("stale trade response discarded")

// SelectOption is one entry of the category selection control.
type SelectOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Page is the page controller. It is safe for concurrent use; submissions
// are ordered by a sequence number and only the latest one may render.
type Page struct {
	mu      sync.Mutex
	api     API
	session SessionStore
	canvas  *chart.Canvas
	logger  *slog.Logger

	options []SelectOption
	opacity float64
	seq     uint64
}

// NewPage creates a page bound to api. A nil session disables the
// category write.
func NewPage(api API, session SessionStore, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{
		api:     api,
		session: session,
		canvas:  chart.NewCanvas(CanvasID),
		logger:  logger.With(applog.FieldComponent, applog.ComponentDashboard),
		opacity: OpacityIdle,
	}
}

// LoadCategories fetches the category list, writes the raw list to the
// session and fills the selection control. Failures are logged and leave
// the control empty.
func (p *Page) LoadCategories(ctx context.Context) []SelectOption {
	cats, err := p.api.Categories(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error fetching categories",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpFetchCategories,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		cats = nil
	}

	if err == nil && p.session != nil {
		p.storeCategories(ctx, cats)
	}

	options := make([]SelectOption, 0, len(cats))
	for _, c := range cats {
		options = append(options, SelectOption{Value: c.Name, Text: c.Label()})
	}

	p.mu.Lock()
	p.options = options
	p.mu.Unlock()

	return append([]SelectOption(nil), options...)
}

func (p *Page) storeCategories(ctx context.Context, cats []core.Category) {
	if cats == nil {
		cats = []core.Category{}
	}
	raw, err := json.Marshal(cats)
	if err != nil {
		p.logger.WarnContext(ctx, "Encoding categories for session failed", applog.FieldError, err)
		return
	}
	if err := p.session.Set(CategoriesKey, string(raw)); err != nil {
		p.logger.WarnContext(ctx, "Session write failed", applog.FieldError, err, "key", CategoriesKey)
	}
}

// Options returns the current selection control entries.
func (p *Page) Options() []SelectOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SelectOption(nil), p.options...)
}

// Submit fetches the trade flows for q, aggregates them and renders a new
// chart on the canvas, replacing the previous one. The query is sent as is.
func (p *Page) Submit(ctx context.Context, q core.TradeQuery) (*chart.Chart, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.opacity = OpacityLoading
	p.mu.Unlock()

	records, err := p.api.TradeData(ctx, q)

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		p.logger.DebugContext(ctx, "Discarding stale trade response",
			applog.FieldSequence, seq, "latest", p.seq)
		return nil, ErrStaleResponse
	}
	p.opacity = OpacityIdle

	if err != nil {
		p.logger.ErrorContext(ctx, "Error fetching trade data",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpFetchTrades,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldCountry, q.Country,
			applog.FieldTradeType, q.TradeType,
			applog.FieldCategory, q.Category)
		return nil, fmt.Errorf("fetch trade data: %w", err)
	}

	series := core.ProcessTradeData(records)
	c, err := p.canvas.Render(series)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "Chart rendered",
		applog.FieldChartID, c.ID(),
		applog.FieldSequence, seq,
		applog.FieldRecords, len(records),
		applog.FieldSegments, c.Len())
	return c, nil
}

// ContainerOpacity returns the chart container opacity: OpacityLoading
// while a submission is in flight, OpacityIdle otherwise.
func (p *Page) ContainerOpacity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opacity
}

// Chart returns the live chart, or nil before the first render.
func (p *Page) Chart() *chart.Chart {
	return p.canvas.Current()
}

// Legend returns the live chart's legend entries.
func (p *Page) Legend() []chart.LegendItem {
	c := p.canvas.Current()
	if c == nil {
		return nil
	}
	return c.Legend().Items()
}

// ClickLegend toggles segment i of the live chart.
func (p *Page) ClickLegend(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.canvas.Current()
	if c == nil {
		return chart.ErrChartDisposed
	}
	return c.Legend().Click(i)
}
