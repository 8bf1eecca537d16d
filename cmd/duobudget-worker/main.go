package main

import (
	"context"
	"errors"
	"os"
	"time"

	"duobudget/internal/backend"
	"duobudget/internal/cli"
	"duobudget/internal/log"
	"duobudget/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting duobudget-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("The worker needs AMQP_URL to receive change notices")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The worker only reads; the server owns seeding.
	backendCfg.Seed = false
	backendCfg.ReadOnly = true

	be, err := backend.NewOpener(logger).Open(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	if be.Feed == nil {
		logger.Error("AMQP broker unreachable")
		_ = be.Close()
		os.Exit(1)
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	alerts := worker.NewAlertWorker(be.Records, logger.Logger)

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	logger.Info("Performing startup budget check...")
	if err := alerts.StartupCheck(ctx); err != nil {
		// Keep going; the feed and the periodic check retry.
		logger.Error("Failed startup budget check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return be.Feed.ConsumeChanges(gctx, alerts.HandleChange)
	})
	g.Go(func() error {
		return alerts.Run(gctx, cfg.AlertCheckInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
