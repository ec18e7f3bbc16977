package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendTradingEconomics = "tradingeconomics"
	BackendMemory           = "memory"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Upstream trade data
	APIKey           string
	TradeAPIBaseURL  string
	DataBackend      string
	DataDir          string
	UpstreamTimeout  time.Duration
	CategoryCacheTTL time.Duration

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	HistoryRetention time.Duration
	PruneInterval    time.Duration

	// Rate limiting
	RateLimitPerMinute int
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIKey:           os.Getenv("API_KEY"),
		TradeAPIBaseURL:  getEnv("TRADE_API_BASE_URL", "https://api.tradingeconomics.com"),
		DataBackend:      getEnv("DATA_BACKEND", BackendTradingEconomics),
		DataDir:          getEnv("DATA_DIR", "./data"),
		UpstreamTimeout:  getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		CategoryCacheTTL: getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		SQLiteDBPath: getEnvAllowEmpty("SQLITE_DB_PATH", "./data/tradeviz.db"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tradeviz"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "chart_events"),

		HistoryRetention: getEnvDuration("HISTORY_RETENTION", 720*time.Hour),
		PruneInterval:    getEnvDuration("PRUNE_INTERVAL", time.Hour),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	return cfg
}

// HistoryEnabled reports whether chart history and category snapshots are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.SQLiteDBPath != ""
}

// EventsEnabled reports whether rendered charts are published to AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{BackendTradingEconomics, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendTradingEconomics {
		if strings.TrimSpace(c.APIKey) == "" {
			errors = append(errors, "API_KEY is required when using tradingeconomics backend")
		}
		if parsedURL, err := url.Parse(c.TradeAPIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trade API base URL '%s': %v", c.TradeAPIBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid trade API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.DataBackend == BackendMemory {
		if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data directory does not exist: %s", c.DataDir))
		}
	}

	if c.UpstreamTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be at least 1 second", c.UpstreamTimeout))
	} else if c.UpstreamTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be at most 5 minutes", c.UpstreamTimeout))
	}

	if c.CategoryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must not be negative", c.CategoryCacheTTL))
	}

	// SQLite is optional; an empty path disables history
	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.HistoryRetention < time.Hour {
		errors = append(errors, fmt.Sprintf("invalid history retention %v: must be at least 1 hour", c.HistoryRetention))
	}
	if c.PruneInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid prune interval %v: must be at least 1 minute", c.PruneInterval))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	} else if c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at most 10000 requests per minute", c.RateLimitPerMinute))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
