package backend

import (
	"context"
	"time"

	"tradeviz/internal/cache"
	"tradeviz/internal/trade"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the data source and the resources it owns
type BackendResult struct {
	Source trade.Source
	// Cache is non-nil when the source keeps an expiring cache that
	// should be registered with a cache.Manager
	Cache   cache.Cleaner
	Cleanup CleanupFunc
}

// Factory creates data sources based on configuration
type Factory interface {
	// CreateBackend creates a source instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// Trading Economics specific
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	CategoryCacheTTL time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	TradingEconomicsBackend BackendType = "tradingeconomics"
	MemoryBackend           BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case TradingEconomicsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
