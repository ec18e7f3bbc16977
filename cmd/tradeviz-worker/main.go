package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tradeviz/internal/amqp"
	"tradeviz/internal/cli"
	applog "tradeviz/internal/log"
	"tradeviz/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting tradeviz-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger)
	if !cfg.HistoryEnabled() {
		logger.Error("SQLITE_DB_PATH is required for the worker")
		os.Exit(1)
	}
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	source := cli.InitBackend(ctx, logger.Logger, cfg)
	if source.Cleanup != nil {
		defer source.Cleanup()
	}

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer bus.Close()

	history := worker.NewHistoryWorker(repo, source.Source, cfg.HistoryRetention)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bus.Consume(gctx, history.HandleChartRendered)
	})
	g.Go(func() error {
		return history.Run(gctx, cfg.PruneInterval)
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"retention", cfg.HistoryRetention.String(),
		"prune_interval", cfg.PruneInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
