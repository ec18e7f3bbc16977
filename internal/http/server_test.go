package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
	"tradeviz/internal/services"
	"tradeviz/internal/trade"
	"tradeviz/internal/trade/memory"
)

type failingSource struct{ err error }

func (f failingSource) Categories(ctx context.Context) ([]core.Category, error) { return nil, f.err }
func (f failingSource) Trades(ctx context.Context, q core.TradeQuery) ([]core.TradeRecord, error) {
	return nil, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func quietLogger() *applog.Logger {
	return applog.NewText(io.Discard, slog.LevelError, applog.ComponentHTTP)
}

func newTestServer(t *testing.T, src trade.Source, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Addr:               ":0",
		Service:            services.NewChartService(src, services.WithLogger(quietLogger())),
		RateLimitPerMinute: 100,
		Logger:             quietLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := NewServer(opts)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func seedServer(t *testing.T) *Server {
	store, err := memory.NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	return newTestServer(t, store, nil)
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

const italyExport = `{"country":"Italy","tradeType":"Export","category":"TOTAL"}`

func TestIndexAndHealth(t *testing.T) {
	srv := seedServer(t)

	rr := do(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, id := range []string{`id="trade-chart"`, `id="custom-legend"`, `id="category"`, `id="trade-form"`, `src="https://unpkg.com/chart.js@`} {
		if !strings.Contains(body, id) {
			t.Errorf("index body missing %s", id)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing security or trace headers: %v", rr.Header())
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/app.js", "/static/style.css"} {
		if rr := do(srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(srv, http.MethodGet, "/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestPageScriptDrivesChartLibrary(t *testing.T) {
	srv := newTestServer(t, memory.New(nil, nil), nil)

	rr := do(srv, http.MethodGet, "/static/app.js", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("app.js status=%d", rr.Code)
	}
	script := rr.Body.String()
	for _, call := range []string{"new Chart(canvas,", ".destroy()", ".toggleDataVisibility(", ".update()", "callbacks"} {
		if !strings.Contains(script, call) {
			t.Errorf("app.js missing %q", call)
		}
	}
	if strings.Contains(script, "ctx.arc(") {
		t.Error("app.js must not draw the donut by hand")
	}
}

func TestReadyReportsDatabase(t *testing.T) {
	srv := newTestServer(t, memory.New(nil, nil), func(o *Options) {
		o.DB = fakePinger{err: errors.New("database is locked")}
	})
	rr := do(srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Fatalf("readyz body = %s", rr.Body.String())
	}
}

func TestGetCategories(t *testing.T) {
	srv := seedServer(t)
	rr := do(srv, http.MethodPost, "/api/get-categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var cats []core.Category
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil || len(cats) == 0 {
		t.Fatalf("categories = %s (%v)", rr.Body.String(), err)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("API responses must not be cached")
	}

	if rr := do(srv, http.MethodGet, "/api/get-categories", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d, want 405", rr.Code)
	}
}

func TestGetTradeData(t *testing.T) {
	srv := seedServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		contains string
	}{
		{"invalid json", `{"country":`, http.StatusBadRequest, "invalid JSON body"},
		{"missing params", `{"country":"Italy"}`, http.StatusBadRequest, "tradeType, category"},
		{"empty body", ``, http.StatusBadRequest, "missing required parameters"},
		{"success", italyExport, http.StatusOK, `"value":73100000000`},
		{"no matches", `{"country":"Peru","tradeType":"Export","category":"TOTAL"}`, http.StatusOK, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/api/get-trade-data", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Fatalf("body %s should contain %s", rr.Body.String(), tt.contains)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("Content-Type = %q", ct)
			}
		})
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, failingSource{err: &trade.StatusError{Code: 500}}, nil)

	for _, path := range []string{"/api/get-categories", "/api/get-trade-data"} {
		rr := do(srv, http.MethodPost, path, italyExport)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error == "" {
			t.Fatalf("%s error body = %s", path, rr.Body.String())
		}
	}
}

func TestServiceErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		path     string
		wantCode int
		wantMsg  string
	}{
		{"categories network failure", errors.New("connection refused"), "/api/get-categories", http.StatusBadGateway, "error fetching categories"},
		{"trade data network failure", errors.New("connection refused"), "/api/get-trade-data", http.StatusBadGateway, "error fetching trade data"},
		{"chart network failure", errors.New("connection refused"), "/api/trade-chart", http.StatusBadGateway, "error fetching trade data"},
		{"client went away", context.Canceled, "/api/get-categories", StatusClientClosedRequest, "request canceled"},
		{"upstream timeout", context.DeadlineExceeded, "/api/get-trade-data", http.StatusGatewayTimeout, "trade data provider timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, failingSource{err: tt.err}, nil)
			rr := do(srv, http.MethodPost, tt.path, italyExport)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantCode)
			}
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error != tt.wantMsg {
				t.Fatalf("error body = %s, want %q", rr.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestTradeChart(t *testing.T) {
	srv := seedServer(t)
	rr := do(srv, http.MethodPost, "/api/trade-chart", italyExport)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var view struct {
		ChartID  string `json:"chart_id"`
		Segments []struct {
			Label   string  `json:"label"`
			Color   string  `json:"color"`
			Legend  string  `json:"legend"`
			Opacity float64 `json:"opacity"`
		} `json:"segments"`
		Config struct {
			Type string `json:"type"`
		} `json:"config"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Segments) != 10 || view.Segments[9].Label != core.OthersLabel {
		t.Fatalf("segments = %+v", view.Segments)
	}
	if view.Segments[0].Color != "hsl(0, 70%, 60%)" || view.Segments[0].Opacity != 1 {
		t.Fatalf("first segment = %+v", view.Segments[0])
	}
	if view.Config.Type != "doughnut" || !strings.HasPrefix(view.ChartID, "chart-") {
		t.Fatalf("view = %+v", view)
	}
}

func TestChartSVG(t *testing.T) {
	srv := seedServer(t)
	base := "/chart.svg?country=Italy&tradeType=Export&category=TOTAL"

	rr := do(srv, http.MethodGet, base+"&hidden=0,3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "<svg") {
		t.Fatalf("body is not an svg: %.40s", rr.Body.String())
	}

	for _, hidden := range []string{"x", "42", "-1"} {
		if rr := do(srv, http.MethodGet, base+"&hidden="+hidden, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("hidden=%s status=%d", hidden, rr.Code)
		}
	}

	if rr := do(srv, http.MethodGet, "/chart.svg?country=Peru&tradeType=Export&category=TOTAL", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty chart status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/chart.svg", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing params status=%d", rr.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	srv := seedServer(t)
	if rr := do(srv, http.MethodGet, "/api/history", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRateLimitPOST(t *testing.T) {
	srv := newTestServer(t, memory.New(nil, nil), func(o *Options) { o.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/api/get-categories", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/api/get-categories", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d headers=%v", rr.Code, rr.Header())
	}
	// GETs are not limited
	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}
