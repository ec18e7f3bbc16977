package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradeviz/internal/amqp"
	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
	"tradeviz/internal/trade"
)

// Store is the part of the history database the worker writes to.
type Store interface {
	RecordChart(ctx context.Context, ev core.ChartEvent) (bool, error)
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
	SaveCategorySnapshot(ctx context.Context, cats []core.Category, fetchedAt time.Time) (bool, error)
}

// HistoryWorker persists chart-rendered events and keeps the history table
// within its retention window.
type HistoryWorker struct {
	store      Store
	categories trade.CategoryReader
	retention  time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewHistoryWorker(store Store, categories trade.CategoryReader, retention time.Duration) *HistoryWorker {
	return &HistoryWorker{
		store:      store,
		categories: categories,
		retention:  retention,
		now:        time.Now,
		logger:     slog.Default().With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleChartRendered records one chart. Duplicate deliveries are no-ops.
func (w *HistoryWorker) HandleChartRendered(ctx context.Context, msg *amqp.ChartRenderedMessage) error {
	if msg == nil {
		return errors.New("nil chart message")
	}

	inserted, err := w.store.RecordChart(ctx, msg.Event)
	if err != nil {
		return fmt.Errorf("record chart %s: %w", msg.Event.ChartID, err)
	}

	if !inserted {
		w.logger.DebugContext(ctx, "Chart already recorded", applog.FieldChartID, msg.Event.ChartID)
		return nil
	}
	w.logger.InfoContext(ctx, "Chart recorded",
		applog.FieldChartID, msg.Event.ChartID,
		applog.FieldRequestID, msg.Event.RequestID,
		applog.FieldSegments, msg.Event.Segments)
	return nil
}

// Prune deletes history older than the retention window.
func (w *HistoryWorker) Prune(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.PruneHistory(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	if deleted > 0 {
		w.logger.InfoContext(ctx, "History pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// RefreshCategories stores a snapshot of the provider's category list.
// It is a no-op when the worker has no category source.
func (w *HistoryWorker) RefreshCategories(ctx context.Context) error {
	if w.categories == nil {
		return nil
	}
	cats, err := w.categories.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	if _, err := w.store.SaveCategorySnapshot(ctx, cats, w.now()); err != nil {
		return fmt.Errorf("save category snapshot: %w", err)
	}
	return nil
}

// Run prunes and refreshes categories once, then again on every tick,
// until ctx is cancelled. Failures are logged and retried on the next tick.
func (w *HistoryWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.maintain(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.maintain(ctx)
		}
	}
}

func (w *HistoryWorker) maintain(ctx context.Context) {
	if _, err := w.Prune(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Periodic prune failed", applog.FieldError, err, applog.FieldOperation, applog.OpPrune)
	}
	if err := w.RefreshCategories(ctx); err != nil {
		w.logger.WarnContext(ctx, "Category refresh failed", applog.FieldError, err, applog.FieldOperation, applog.OpFetchCategories)
	}
}
