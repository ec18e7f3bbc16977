package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"tradeviz/internal/chart"
	"tradeviz/internal/core"
	"tradeviz/internal/dashboard"
	applog "tradeviz/internal/log"
	"tradeviz/internal/services"
	"tradeviz/internal/storage"
)

// tradeRecordJSON is the wire form of a trade record. Values are emitted as
// JSON numbers, as the provider sends them.
type tradeRecordJSON struct {
	Symbol   string      `json:"symbol,omitempty"`
	Country1 string      `json:"country1,omitempty"`
	Country2 string      `json:"country2"`
	Type     string      `json:"type,omitempty"`
	Category string      `json:"category,omitempty"`
	Date     string      `json:"date,omitempty"`
	Value    json.Number `json:"value"`
}

func toWire(records []core.TradeRecord) []tradeRecordJSON {
	out := make([]tradeRecordJSON, len(records))
	for i, r := range records {
		out[i] = tradeRecordJSON{
			Symbol:   r.Symbol,
			Country1: r.Country1,
			Country2: r.Country2,
			Type:     r.Type,
			Category: r.Category,
			Date:     r.Date,
			Value:    json.Number(r.Value.String()),
		}
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		CanvasID      string
		CategoriesKey string
	}{
		CanvasID:      dashboard.CanvasID,
		CategoriesKey: dashboard.CategoriesKey,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err, "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, "categories", "Error fetching categories", err)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleGetTradeData(w http.ResponseWriter, r *http.Request) {
	q, err := decodeTradeQuery(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	records, err := s.service.TradeData(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, "trade data", "Error fetching trade data", err)
		return
	}
	NewJSONResponse().Body(toWire(records)).Write(w)
}

func (s *Server) handleTradeChart(w http.ResponseWriter, r *http.Request) {
	q, err := decodeTradeQuery(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	view, err := s.service.RenderView(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, "trade data", "Error rendering trade chart", err)
		return
	}
	atomic.AddInt64(&s.chartsServed, 1)
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	hidden, err := parseHidden(values.Get("hidden"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	c, _, err := s.service.BuildChart(r.Context(), queryFromValues(values), hidden)
	if err != nil {
		writeServiceError(w, r, "trade data", "Error building chart", err)
		return
	}

	opts := chart.DefaultSVGOptions()
	opts.Title = values.Get("title")

	// render to a buffer so a failed render can still answer with JSON
	var buf bytes.Buffer
	if err := c.RenderSVG(&buf, opts); err != nil {
		writeServiceError(w, r, "trade data", "Error rendering chart SVG", err)
		return
	}
	atomic.AddInt64(&s.svgsServed, 1)
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), storage.DefaultHistoryLimit, 500)
	charts, err := s.service.History(r.Context(), limit)
	if errors.Is(err, services.ErrHistoryDisabled) {
		ErrorResponse(http.StatusNotFound, err.Error()).Write(w)
		return
	}
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Error listing chart history",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeDatabase)
		ErrorResponse(http.StatusInternalServerError, "error listing chart history").Write(w)
		return
	}
	NewJSONResponse().Body(charts).Write(w)
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and, when configured, the history database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.db == nil {
		checks["database"] = "not_configured"
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request, security and chart counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Total number of 5xx responses", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", limitMetrics.TotalHits)
	metric("rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", limitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "Requests matching suspicious patterns", "counter", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "Requests blocked by the detector", "counter", securityMetrics.BlockedRequests)
	metric("charts_rendered_total", "Chart views served", "counter", atomic.LoadInt64(&s.chartsServed))
	metric("chart_svgs_rendered_total", "Chart SVG images served", "counter", atomic.LoadInt64(&s.svgsServed))
	metric("uptime_seconds", "Seconds since the server started", "gauge", int64(time.Since(s.started).Seconds()))
}
