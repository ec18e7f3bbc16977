package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// TradeRecord is one observed trade flow to a partner country. Only
	// Country2 and Value take part in aggregation; the other fields are
	// passed through from the upstream feed.
	TradeRecord struct {
		Symbol   string          `json:"symbol,omitempty"`
		Country1 string          `json:"country1,omitempty"`
		Country2 string          `json:"country2"`
		Type     string          `json:"type,omitempty"`
		Category string          `json:"category,omitempty"`
		Date     string          `json:"date,omitempty"`
		Value    decimal.Decimal `json:"value"`
	}

	// Category is a selectable filter option.
	Category struct {
		Name       string `json:"name"`
		PrettyName string `json:"pretty_name,omitempty"`
		ID         string `json:"id,omitempty"`
	}

	// TradeQuery is the filter submitted by the trade form.
	TradeQuery struct {
		Country   string `json:"country"`
		TradeType string `json:"tradeType"`
		Category  string `json:"category"`
	}
)

var (
	ErrMissingParams = errors.New("missing required parameters")
)

// Label returns the text shown for the category in a selection control.
func (c Category) Label() string {
	if strings.TrimSpace(c.PrettyName) != "" {
		return c.PrettyName
	}
	return c.Name
}

// Validate reports which of the three filter fields are empty.
func (q TradeQuery) Validate() error {
	var missing []string
	if strings.TrimSpace(q.Country) == "" {
		missing = append(missing, "country")
	}
	if strings.TrimSpace(q.TradeType) == "" {
		missing = append(missing, "tradeType")
	}
	if strings.TrimSpace(q.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParams, strings.Join(missing, ", "))
	}
	return nil
}

// Key returns a stable cache/log key for the query.
func (q TradeQuery) Key() string {
	return q.TradeType + "/" + q.Country + "/" + q.Category
}
