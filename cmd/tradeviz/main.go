package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tradeviz/internal/amqp"
	"tradeviz/internal/cache"
	"tradeviz/internal/cli"
	apphttp "tradeviz/internal/http"
	applog "tradeviz/internal/log"
	"tradeviz/internal/middleware/trace"
	"tradeviz/internal/services"
	"tradeviz/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	ctx := context.Background()

	source := cli.InitBackend(ctx, logger.Logger, cfg)

	caches := cache.NewManager(logger.Logger)
	if source.Cache != nil {
		caches.Register(source.Cache)
	}
	caches.StartCleanup(5 * time.Minute)

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithRequestID(trace.GetRequestID),
	}

	var repo *storage.SQLiteRepository
	if cfg.HistoryEnabled() {
		repo = cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
		opts = append(opts, services.WithSnapshots(repo), services.WithHistory(repo))
		logger.Info("Chart history enabled", "path", cfg.SQLiteDBPath)
	} else {
		logger.Info("Chart history disabled - no SQLITE_DB_PATH")
	}

	var bus *amqp.Client
	if cfg.EventsEnabled() {
		var err error
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		opts = append(opts, services.WithPublisher(bus))
		logger.Info("Chart events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	serverOpts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		Service:            services.NewChartService(source.Source, opts...),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}
	if repo != nil {
		serverOpts.DB = repo
	}
	srv := apphttp.NewServer(serverOpts)

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if bus != nil {
			if err := bus.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if repo != nil {
			if err := repo.Close(); err != nil {
				logger.Warn("SQLite close error", applog.FieldError, err)
			}
		}
		if source.Cleanup != nil {
			if err := source.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting tradeviz server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
