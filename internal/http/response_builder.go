package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tradeviz/internal/chart"
	"tradeviz/internal/core"
	applog "tradeviz/internal/log"
	"tradeviz/internal/trade"
)

// JSONResponse is a small builder for JSON responses.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponse {
	return &JSONResponse{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(key, value string) *JSONResponse {
	b.headers[key] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Write encodes the body. Encoding failures after the header is sent can
// only be logged.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Encoding JSON response failed", applog.FieldError, err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds a JSON error body with the given status.
func ErrorResponse(code int, msg string) *JSONResponse {
	return NewJSONResponse().Status(code).Body(errorBody{Error: msg})
}

func BadRequestError(msg string) *JSONResponse {
	return ErrorResponse(http.StatusBadRequest, msg)
}

func MethodNotAllowedError(allowed string) *JSONResponse {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Header("Allow", allowed)
}

// StatusClientClosedRequest is logged when the client went away before the
// response was ready. Nothing useful reaches the client at that point.
const StatusClientClosedRequest = 499

// statusFor maps a service error to the status and message shown to clients.
// subject names what was being fetched, e.g. "categories". Upstream details
// stay in the logs.
func statusFor(err error, subject string) (int, string, string) {
	switch {
	case errors.Is(err, core.ErrMissingParams):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, chart.ErrSegmentOutOfRange):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, chart.ErrNothingToDraw):
		return http.StatusUnprocessableEntity, "no trade data to draw", applog.ErrorTypeValidation
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "request canceled", applog.ErrorTypeCanceled
	case errors.Is(err, trade.ErrUpstreamStatus):
		return http.StatusBadGateway, "trade data provider returned an error", applog.ErrorTypeUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "trade data provider timed out", applog.ErrorTypeTimeout
	default:
		return http.StatusBadGateway, "error fetching " + subject, applog.ErrorTypeNetwork
	}
}

// writeServiceError logs err with the request logger and writes the mapped
// JSON error. Canceled requests are logged at debug level.
func writeServiceError(w http.ResponseWriter, r *http.Request, subject, msg string, err error) {
	code, public, errType := statusFor(err, subject)
	level := slog.LevelError
	switch {
	case code == StatusClientClosedRequest:
		level = slog.LevelDebug
	case code < 500:
		level = slog.LevelWarn
	}
	applog.FromContext(r.Context()).Log(r.Context(), level, msg,
		applog.FieldError, err,
		applog.FieldErrorType, errType,
		applog.FieldStatusCode, code)
	ErrorResponse(code, public).Write(w)
}
