// Package trade defines the ports through which the dashboard reads
// categories and trade flows from a data provider.
package trade

import (
	"context"
	"errors"
	"fmt"

	"tradeviz/internal/core"
)

// Ports for outbound adapters.
type (
	CategoryReader interface {
		// Categories returns the selectable product categories.
		Categories(ctx context.Context) ([]core.Category, error)
	}

	TradeReader interface {
		// Trades returns the trade flows matching q.
		Trades(ctx context.Context, q core.TradeQuery) ([]core.TradeRecord, error)
	}

	// Source is a complete data provider.
	Source interface {
		CategoryReader
		TradeReader
	}
)

// ErrUpstreamStatus is returned when the provider answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("upstream returned an error status")

// StatusError carries the provider's status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUpstreamStatus, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }
