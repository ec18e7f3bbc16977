package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
)

type fakeSource struct {
	cats    []core.Category
	records []core.TradeRecord
	err     error
	queries []core.TradeQuery
}

func (f *fakeSource) Categories(ctx context.Context) ([]core.Category, error) {
	return f.cats, f.err
}

func (f *fakeSource) Trades(ctx context.Context, q core.TradeQuery) ([]core.TradeRecord, error) {
	f.queries = append(f.queries, q)
	return f.records, f.err
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots [][]core.Category
	events    []core.ChartEvent
	err       error
}

func (f *fakeStore) SaveCategorySnapshot(ctx context.Context, cats []core.Category, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.snapshots = append(f.snapshots, cats)
	return true, nil
}

func (f *fakeStore) RecordChart(ctx context.Context, ev core.ChartEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.events = append(f.events, ev)
	return true, nil
}

func (f *fakeStore) ListRecentCharts(ctx context.Context, limit int) ([]core.ChartEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ChartEvent(nil), f.events...), f.err
}

type fakePublisher struct {
	events []core.ChartEvent
	err    error
}

func (f *fakePublisher) PublishChartRendered(ctx context.Context, ev core.ChartEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func records(pairs ...any) []core.TradeRecord {
	var out []core.TradeRecord
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.TradeRecord{
			Country2: pairs[i].(string),
			Value:    decimal.NewFromInt(int64(pairs[i+1].(int))),
		})
	}
	return out
}

func quietLogger(buf *bytes.Buffer) Option {
	return WithLogger(applog.NewText(buf, applog.ParseLevel("debug"), applog.ComponentChart))
}

var italyExport = core.TradeQuery{Country: "italy", TradeType: "export", Category: "TOTAL"}

func TestChartService_Categories(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{}
	src := &fakeSource{cats: []core.Category{{Name: "Meat"}}}
	svc := NewChartService(src, WithSnapshots(store), quietLogger(&logs))

	cats, err := svc.Categories(context.Background())
	if err != nil || len(cats) != 1 {
		t.Fatalf("Categories() = %v, %v", cats, err)
	}
	if len(store.snapshots) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(store.snapshots))
	}

	t.Run("nil list becomes empty", func(t *testing.T) {
		svc := NewChartService(&fakeSource{}, quietLogger(&logs))
		cats, err := svc.Categories(context.Background())
		if err != nil || cats == nil || len(cats) != 0 {
			t.Fatalf("Categories() = %#v, %v", cats, err)
		}
	})

	t.Run("snapshot failure is not fatal", func(t *testing.T) {
		logs.Reset()
		svc := NewChartService(src, WithSnapshots(&fakeStore{err: errors.New("disk full")}), quietLogger(&logs))
		if _, err := svc.Categories(context.Background()); err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if !bytes.Contains(logs.Bytes(), []byte("Failed to save category snapshot")) {
			t.Fatalf("expected snapshot failure to be logged, got %q", logs.String())
		}
	})

	t.Run("upstream error propagates", func(t *testing.T) {
		want := errors.New("boom")
		svc := NewChartService(&fakeSource{err: want}, WithSnapshots(store), quietLogger(&logs))
		if _, err := svc.Categories(context.Background()); !errors.Is(err, want) {
			t.Fatalf("Categories() error = %v", err)
		}
	})
}

func TestChartService_TradeDataValidates(t *testing.T) {
	src := &fakeSource{}
	svc := NewChartService(src)

	_, err := svc.TradeData(context.Background(), core.TradeQuery{Country: "italy"})
	if !errors.Is(err, core.ErrMissingParams) {
		t.Fatalf("TradeData() error = %v, want ErrMissingParams", err)
	}
	if len(src.queries) != 0 {
		t.Fatal("an invalid query must not reach the source")
	}

	got, err := svc.TradeData(context.Background(), italyExport)
	if err != nil || got == nil {
		t.Fatalf("TradeData() = %#v, %v", got, err)
	}
}

func TestChartService_RenderView(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{records: records("DE", 600, "FR", 300, "DE", 100, "ES", 0)}

	t.Run("publishes when a publisher is set", func(t *testing.T) {
		var logs bytes.Buffer
		pub := &fakePublisher{}
		store := &fakeStore{}
		svc := NewChartService(src,
			WithPublisher(pub),
			WithHistory(store),
			WithClock(func() time.Time { return at }),
			WithRequestID(func(context.Context) string { return "req-1" }),
			quietLogger(&logs))

		view, err := svc.RenderView(context.Background(), italyExport)
		if err != nil {
			t.Fatalf("RenderView() error = %v", err)
		}
		if len(view.Segments) != 3 || view.Segments[0].Label != "DE" || view.Segments[0].Percentage != 70 {
			t.Fatalf("unexpected segments %+v", view.Segments)
		}
		if view.TotalText != "$1,000" {
			t.Fatalf("TotalText = %q", view.TotalText)
		}
		if len(pub.events) != 1 || len(store.events) != 0 {
			t.Fatalf("expected publish only, got %d published %d recorded", len(pub.events), len(store.events))
		}
		ev := pub.events[0]
		if ev.ChartID != view.ChartID || ev.RequestID != "req-1" || ev.Records != 4 || ev.Total != "1000" || !ev.RenderedAt.Equal(at) {
			t.Fatalf("unexpected event %+v", ev)
		}
		if !bytes.Contains(logs.Bytes(), []byte("Chart rendered")) {
			t.Fatalf("expected render log, got %q", logs.String())
		}
	})

	t.Run("records directly without a publisher", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewChartService(src, WithHistory(store), quietLogger(&bytes.Buffer{}))
		if _, err := svc.RenderView(context.Background(), italyExport); err != nil {
			t.Fatalf("RenderView() error = %v", err)
		}
		if len(store.events) != 1 {
			t.Fatalf("expected one recorded chart, got %d", len(store.events))
		}
		history, err := svc.History(context.Background(), 10)
		if err != nil || len(history) != 1 {
			t.Fatalf("History() = %v, %v", history, err)
		}
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		var logs bytes.Buffer
		svc := NewChartService(src, WithPublisher(&fakePublisher{err: errors.New("channel closed")}), quietLogger(&logs))
		if _, err := svc.RenderView(context.Background(), italyExport); err != nil {
			t.Fatalf("RenderView() error = %v", err)
		}
		if !bytes.Contains(logs.Bytes(), []byte("Failed to publish chart event")) {
			t.Fatalf("expected publish failure to be logged, got %q", logs.String())
		}
	})
}

func TestChartService_BuildChartHidden(t *testing.T) {
	svc := NewChartService(&fakeSource{records: records("DE", 600, "FR", 300)})

	c, n, err := svc.BuildChart(context.Background(), italyExport, []int{1})
	if err != nil {
		t.Fatalf("BuildChart() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("records = %d, want 2", n)
	}
	if hidden := c.Hidden(); hidden[0] || !hidden[1] {
		t.Fatalf("Hidden() = %v", hidden)
	}

	if _, _, err := svc.BuildChart(context.Background(), italyExport, []int{5}); err == nil {
		t.Fatal("expected out-of-range hidden index to fail")
	}
}

func TestChartService_HistoryDisabled(t *testing.T) {
	svc := NewChartService(&fakeSource{})
	if _, err := svc.History(context.Background(), 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("History() error = %v, want ErrHistoryDisabled", err)
	}
}
