package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeviz/internal/chart"
	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
	"tradeviz/internal/trade"
)

// ErrHistoryDisabled is returned by History when no history store is configured.
var ErrHistoryDisabled = errors.New("chart history is disabled")

type (
	// SnapshotStore keeps copies of the category list.
	SnapshotStore interface {
		SaveCategorySnapshot(ctx context.Context, cats []core.Category, fetchedAt time.Time) (bool, error)
	}

	// HistoryStore records and lists rendered charts.
	HistoryStore interface {
		RecordChart(ctx context.Context, ev core.ChartEvent) (bool, error)
		ListRecentCharts(ctx context.Context, limit int) ([]core.ChartEvent, error)
	}

	// EventPublisher announces rendered charts.
	EventPublisher interface {
		PublishChartRendered(ctx context.Context, ev core.ChartEvent) error
	}
)

// ChartService orchestrates the data source, aggregation, chart building
// and the optional snapshot, history and event side effects.
type ChartService struct {
	source    trade.Source
	snapshots SnapshotStore
	history   HistoryStore
	publisher EventPublisher
	requestID func(context.Context) string
	now       func() time.Time
	logger    *applog.StructuredLogger
}

type Option func(*ChartService)

func WithSnapshots(s SnapshotStore) Option { return func(cs *ChartService) { cs.snapshots = s } }

// WithHistory enables History. Without a publisher, rendered charts are
// recorded directly instead of through the worker.
func WithHistory(h HistoryStore) Option { return func(cs *ChartService) { cs.history = h } }

func WithPublisher(p EventPublisher) Option { return func(cs *ChartService) { cs.publisher = p } }

func WithRequestID(fn func(context.Context) string) Option {
	return func(cs *ChartService) { cs.requestID = fn }
}

func WithClock(now func() time.Time) Option { return func(cs *ChartService) { cs.now = now } }

func WithLogger(l *applog.Logger) Option {
	return func(cs *ChartService) { cs.logger = applog.NewStructuredLogger(l) }
}

func NewChartService(source trade.Source, opts ...Option) *ChartService {
	cs := &ChartService{
		source:    source,
		requestID: func(context.Context) string { return "" },
		now:       time.Now,
		logger:    applog.NewStructuredLogger(applog.New(applog.DefaultConfig())),
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// Categories returns the provider's categories and keeps a snapshot when a
// snapshot store is configured. Snapshot failures are logged only.
func (s *ChartService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []core.Category{}
	}

	if s.snapshots != nil {
		if _, err := s.snapshots.SaveCategorySnapshot(ctx, cats, s.now()); err != nil {
			s.logger.LogError(ctx, "Failed to save category snapshot", err,
				applog.ComponentStorage, applog.OpFetchCategories, applog.NewFields())
		}
	}
	return cats, nil
}

// TradeData returns the raw trade flows for q.
func (s *ChartService) TradeData(ctx context.Context, q core.TradeQuery) ([]core.TradeRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	records, err := s.source.Trades(ctx, q)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.TradeRecord{}
	}
	return records, nil
}

// BuildChart fetches and aggregates the trade flows for q into a detached
// chart with the given segments hidden.
func (s *ChartService) BuildChart(ctx context.Context, q core.TradeQuery, hidden []int) (*chart.Chart, int, error) {
	records, err := s.TradeData(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	series := core.ProcessTradeData(records)
	c, err := chart.Build(series, hidden)
	if err != nil {
		return nil, 0, err
	}
	return c, len(records), nil
}

// RenderView builds the chart for q and returns its view. The render is
// announced to the event bus, or recorded directly when no bus is configured.
func (s *ChartService) RenderView(ctx context.Context, q core.TradeQuery) (chart.View, error) {
	c, records, err := s.BuildChart(ctx, q, nil)
	if err != nil {
		return chart.View{}, err
	}
	view, err := chart.NewView(c)
	if err != nil {
		return chart.View{}, fmt.Errorf("build view: %w", err)
	}

	ev := core.NewChartEvent(c.ID(), s.requestID(ctx), q, records, c.Series(), s.now())
	s.logger.LogChartRendered(ctx, q.Country, q.TradeType, q.Category, c.ID(), records, ev.Segments, ev.Total)
	s.announce(ctx, ev)

	return view, nil
}

func (s *ChartService) announce(ctx context.Context, ev core.ChartEvent) {
	switch {
	case s.publisher != nil:
		if err := s.publisher.PublishChartRendered(ctx, ev); err != nil {
			s.logger.LogError(ctx, "Failed to publish chart event", err,
				applog.ComponentAMQP, applog.OpRecord, applog.NewFields().WithRequestID(ev.RequestID).WithChart(ev.ChartID, ev.Segments, ev.Total))
		}
	case s.history != nil:
		if _, err := s.history.RecordChart(ctx, ev); err != nil {
			s.logger.LogError(ctx, "Failed to record chart history", err,
				applog.ComponentStorage, applog.OpRecord, applog.NewFields().WithRequestID(ev.RequestID).WithChart(ev.ChartID, ev.Segments, ev.Total))
		}
	}
}

// History returns the most recently rendered charts.
func (s *ChartService) History(ctx context.Context, limit int) ([]core.ChartEvent, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListRecentCharts(ctx, limit)
}
