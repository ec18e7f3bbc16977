// Package memory serves categories and trade flows from local JSON fixtures.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"tradeviz/internal/core"
	"tradeviz/internal/trade"
)

const (
	CategoriesFile = "categories.json"
	TradesFile     = "trades.json"
)

// Ensure interface conformance
var _ trade.Source = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	cats    []core.Category
	records []core.TradeRecord
}

func New(cats []core.Category, records []core.TradeRecord) *Store {
	return &Store{cats: dedupeCategories(cats), records: append([]core.TradeRecord(nil), records...)}
}

// NewFromFiles loads categories.json and trades.json from base. Missing
// files fall back to a small built-in seed; malformed files are an error.
func NewFromFiles(base string) (*Store, error) {
	var cats []core.Category
	if err := readJSON(filepath.Join(base, CategoriesFile), &cats); err != nil {
		return nil, err
	}
	var records []core.TradeRecord
	if err := readJSON(filepath.Join(base, TradesFile), &records); err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		cats = seedCategories()
	}
	if len(records) == 0 {
		records = seedRecords()
	}
	return New(cats, records), nil
}

// Add appends records, for tests and fixture tooling.
func (s *Store) Add(records ...core.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Categories returns the known categories in file order.
func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.cats...), nil
}

// Trades returns records whose reporter, flow type and category match q,
// compared case-insensitively. The category matches by id or by name.
func (s *Store) Trades(_ context.Context, q core.TradeQuery) ([]core.TradeRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// a category may be selected by name while records carry its id
	categories := []string{q.Category}
	for _, c := range s.cats {
		if c.ID != "" && strings.EqualFold(c.Name, q.Category) {
			categories = append(categories, c.ID)
		}
	}

	out := []core.TradeRecord{}
	for _, r := range s.records {
		if strings.EqualFold(r.Country1, q.Country) &&
			strings.EqualFold(r.Type, q.TradeType) &&
			matchesAny(r.Category, categories) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesAny(v string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(v, c) {
			return true
		}
	}
	return false
}

func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func dedupeCategories(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		key := strings.TrimSpace(c.ID + "\x00" + c.Name)
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func seedCategories() []core.Category {
	return []core.Category{
		{ID: "TOTAL", Name: "All commodities", PrettyName: "All Commodities"},
		{ID: "01", Name: "Live animals", PrettyName: "Live Animals"},
		{ID: "27", Name: "Mineral fuels, oils, distillation products", PrettyName: "Mineral Fuels"},
	}
}

func seedRecords() []core.TradeRecord {
	partners := []struct {
		name  string
		value int64
	}{
		{"Germany", 73_100_000_000}, {"France", 56_200_000_000}, {"United States", 53_800_000_000},
		{"Spain", 29_500_000_000}, {"Switzerland", 28_700_000_000}, {"United Kingdom", 27_000_000_000},
		{"Belgium", 19_600_000_000}, {"Poland", 18_900_000_000}, {"Netherlands", 16_000_000_000},
		{"China", 15_900_000_000}, {"Austria", 13_800_000_000}, {"Turkey", 12_400_000_000},
	}
	out := make([]core.TradeRecord, 0, len(partners))
	for _, p := range partners {
		out = append(out, core.TradeRecord{
			Country1: "Italy",
			Country2: p.name,
			Type:     "Export",
			Category: "TOTAL",
			Value:    decimal.NewFromInt(p.value),
		})
	}
	return out
}
