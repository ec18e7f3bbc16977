package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tradeviz/internal/core"
)

func TestNewFromFiles_Seed(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("NewFromFiles() error: %v", err)
	}
	cats, _ := s.Categories(context.Background())
	if len(cats) == 0 {
		t.Fatal("expected seed categories")
	}

	records, err := s.Trades(context.Background(), core.TradeQuery{Country: "italy", TradeType: "export", Category: "total"})
	if err != nil {
		t.Fatalf("Trades() error: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("expected 12 seed records, got %d", len(records))
	}
}

func TestNewFromFiles_ReadsFixtures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(CategoriesFile, `[{"id":"09","name":"Coffee"},{"id":"09","name":"Coffee"},{"name":" "}]`)
	write(TradesFile, `[
		{"country1":"Brazil","country2":"United States","type":"Export","category":"09","value":10},
		{"country1":"Brazil","country2":"Germany","type":"Import","category":"09","value":20}
	]`)

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles() error: %v", err)
	}
	cats, _ := s.Categories(context.Background())
	if len(cats) != 1 || cats[0].Name != "Coffee" {
		t.Fatalf("categories = %+v", cats)
	}
	records, _ := s.Trades(context.Background(), core.TradeQuery{Country: "BRAZIL", TradeType: "export", Category: "09"})
	if len(records) != 1 || records[0].Country2 != "United States" {
		t.Fatalf("records = %+v", records)
	}
}

func TestNewFromFiles_Malformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TradesFile), []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTrades(t *testing.T) {
	s := New(nil, nil)
	s.Add(core.TradeRecord{Country1: "Japan", Country2: "China", Type: "Import", Category: "27", Value: decimal.NewFromInt(5)})

	if _, err := s.Trades(context.Background(), core.TradeQuery{Country: "japan"}); !errors.Is(err, core.ErrMissingParams) {
		t.Fatalf("error = %v, want ErrMissingParams", err)
	}

	records, err := s.Trades(context.Background(), core.TradeQuery{Country: "japan", TradeType: "export", Category: "27"})
	if err != nil {
		t.Fatalf("Trades() error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", records)
	}
}

func TestTrades_CategoryByName(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("NewFromFiles() error: %v", err)
	}
	records, err := s.Trades(context.Background(), core.TradeQuery{Country: "Italy", TradeType: "Export", Category: "all commodities"})
	if err != nil {
		t.Fatalf("Trades() error: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("expected category name to resolve to its id, got %d records", len(records))
	}
}
