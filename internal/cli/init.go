// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/duobudget and cmd/duobudget-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duobudget/internal/config"
	"duobudget/internal/log"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging from cfg and sets it as the
// default logger. Invalid settings fall back to info level text output.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lvl, levelErr := config.ParseLevel(cfg.LogLevel)
	format, formatErr := log.ParseFormat(cfg.LogFormat)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: component,
		Format:    format,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	for _, err := range []error{levelErr, formatErr} {
		if err != nil {
			logger.Warn("Falling back to default logging", log.FieldError, err)
		}
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration load failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM, after cleanup has
// run with a context bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
	}()

	return ctx
}
