// Package tradingeconomics reads categories and trade flows from the
// Trading Economics comtrade API.
package tradingeconomics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"tradeviz/internal/cache"
	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
	"tradeviz/internal/trade"
)

const (
	DefaultBaseURL = "https://api.tradingeconomics.com"

	categoriesKey = "categories"

	// maxResponseBytes bounds upstream bodies read into memory.
	maxResponseBytes = 32 << 20
)

// Ensure interface conformance
var _ trade.Source = (*Client)(nil)

type Client struct {
	baseURL     *url.URL
	apiKey      string
	httpClient  *http.Client
	timeout     time.Duration
	categories  *cache.LRUCache[[]core.Category]
	categoryTTL time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall per-request timeout. It applies to the
// client given by WithHTTPClient too, whatever the option order, without
// modifying the caller's client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCategoryTTL sets how long the category list is cached. Zero disables caching.
func WithCategoryTTL(ttl time.Duration) Option {
	return func(c *Client) { c.categoryTTL = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API at baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing API key")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	c := &Client{
		baseURL:     u,
		apiKey:      apiKey,
		httpClient:  newHTTPClientWithPooling(),
		categoryTTL: 10 * time.Minute,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.logger = c.logger.With(applog.FieldComponent, applog.ComponentUpstream)
	if c.categoryTTL > 0 {
		c.categories = cache.NewLRUCache[[]core.Category](1, c.categoryTTL)
	}
	return c, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling,
// keep-alive and bounded timeouts for the single upstream host
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   15 * time.Second,
	}
}

// CacheCleaner exposes the category cache for periodic cleanup, or nil when
// caching is disabled.
func (c *Client) CacheCleaner() cache.Cleaner {
	if c.categories == nil {
		return nil
	}
	return c.categories
}

// Categories returns the comtrade categories. Concurrent callers share one
// upstream request and the result is cached for the configured TTL.
func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	if c.categories != nil {
		if cats, ok := c.categories.Get(categoriesKey); ok {
			return cats, nil
		}
	}

	v, err, shared := c.group.Do(categoriesKey, func() (any, error) {
		// the shared fetch must not die with whichever caller arrived first
		fetchCtx := context.WithoutCancel(ctx)
		var cats []core.Category
		if err := c.getJSON(fetchCtx, &cats, "comtrade", "categories"); err != nil {
			return nil, err
		}
		if c.categories != nil {
			c.categories.Set(categoriesKey, cats)
		}
		return cats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	if shared {
		c.logger.DebugContext(ctx, "Shared in-flight category request")
	}
	return v.([]core.Category), nil
}

// Trades returns the trade flows for q.
func (c *Client) Trades(ctx context.Context, q core.TradeQuery) ([]core.TradeRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var records []core.TradeRecord
	if err := c.getJSON(ctx, &records, "comtrade", q.TradeType, q.Country, q.Category); err != nil {
		return nil, fmt.Errorf("fetch trades %s: %w", q.Key(), err)
	}
	return records, nil
}

// getJSON issues GET {base}/{segments...}?c=KEY&f=json and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, out any, segments ...string) error {
	u := c.baseURL.JoinPath(segments...)
	path := "/" + strings.Join(segments, "/")
	query := url.Values{}
	query.Set("c", c.apiKey)
	query.Set("f", "json")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, including the API key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		c.logger.ErrorContext(ctx, "Upstream request failed",
			applog.FieldPath, path,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err)
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	c.logger.InfoContext(ctx, "Upstream response",
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		"size", humanize.Bytes(uint64(len(body))),
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &trade.StatusError{Code: resp.StatusCode}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
