package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldCountry       = "country"
	FieldTradeType     = "trade_type"
	FieldCategory      = "category"
	FieldSegments      = "segments"
	FieldRecords       = "records"
	FieldTotal         = "total"
	FieldChartID       = "chart_id"
	FieldSequence      = "sequence"
	FieldErrorType     = "error_type"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentChart     = "chart"
	ComponentDashboard = "dashboard"
	ComponentUpstream  = "upstream"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpFetchCategories = "fetch_categories"
	OpFetchTrades     = "fetch_trades"
	OpAggregate       = "aggregate"
	OpRender          = "render"
	OpDispose         = "dispose"
	OpToggle          = "toggle"
	OpRecord          = "record"
	OpPrune           = "prune"
	OpValidate        = "validate"
	OpParse           = "parse"
	OpShutdown        = "shutdown"
	OpStartup         = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeUpstream      = "upstream_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeCanceled      = "canceled"
	ErrorTypeStale         = "stale_response"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithQuery adds the trade filter fields
func (f LogFields) WithQuery(country, tradeType, category string) LogFields {
	f[FieldCountry] = country
	f[FieldTradeType] = tradeType
	f[FieldCategory] = category
	return f
}

// WithChart adds chart identity and size fields
func (f LogFields) WithChart(chartID string, segments int, total string) LogFields {
	f[FieldChartID] = chartID
	f[FieldSegments] = segments
	f[FieldTotal] = total
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
