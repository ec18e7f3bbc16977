package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tradeviz/internal/trade/memory"
	"tradeviz/internal/trade/tradingeconomics"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case TradingEconomicsBackend:
		return f.createTradingEconomicsBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createTradingEconomicsBackend(config Config) (*BackendResult, error) {
	opts := []tradingeconomics.Option{
		tradingeconomics.WithCategoryTTL(config.CategoryCacheTTL),
		tradingeconomics.WithLogger(f.logger),
	}
	if config.Timeout > 0 {
		opts = append(opts, tradingeconomics.WithTimeout(config.Timeout))
	}

	client, err := tradingeconomics.New(config.BaseURL, config.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Trading Economics client: %w", err)
	}

	f.logger.Info("Initialized Trading Economics backend",
		"base_url", config.BaseURL,
		"timeout", config.Timeout,
		"category_cache_ttl", config.CategoryCacheTTL)

	return &BackendResult{
		Source: client,
		Cache:  client.CacheCleaner(),
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend fixtures: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Source: store,
	}, nil
}
