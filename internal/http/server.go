package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "tradeviz/internal/log"
	"tradeviz/internal/middleware/ratelimit"
	"tradeviz/internal/middleware/security"
	"tradeviz/internal/middleware/trace"
	"tradeviz/internal/services"
	appweb "tradeviz/web"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Service is required; the rest is optional.
type Options struct {
	Addr               string
	Service            *services.ChartService
	DB                 Pinger
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	service   *services.ChartService
	db        Pinger
	detector  *security.Detector
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	logger    *applog.Logger

	started      time.Time
	chartsServed int64
	svgsServed   int64
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		service:  opts.Service,
		db:       opts.DB,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		logger:  logger,
		started: time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger.Logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	api := func(h http.HandlerFunc) http.Handler { return security.NoStoreMiddleware(h) }

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("POST /api/get-categories", api(s.handleGetCategories))
	mux.Handle("POST /api/get-trade-data", api(s.handleGetTradeData))
	mux.Handle("POST /api/trade-chart", api(s.handleTradeChart))
	mux.Handle("GET /api/history", api(s.handleHistory))
	mux.Handle("GET /chart.svg", api(s.handleChartSVG))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = s.detector.Middleware(logger.Logger)(handler)
	handler = trace.LoggerMiddleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldComponent, applog.ComponentRateLimit)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown gracefully stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestLogger returns the request logger, falling back to the server logger.
func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(applog.LoggerContextKey).(*applog.Logger); ok {
		return l.Logger
	}
	return s.logger.Logger
}
