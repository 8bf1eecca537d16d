package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"duobudget/internal/advisor"
	"duobudget/internal/aggregate"
	"duobudget/internal/backend"
	"duobudget/internal/cache"
	"duobudget/internal/cli"
	apphttp "duobudget/internal/http"
	"duobudget/internal/log"
	"duobudget/internal/services"
	gsheet "duobudget/internal/sheets/google"
	mem "duobudget/internal/sheets/memory"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewOpener(logger).Open(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	normalizer, err := aggregate.ParseNormalizer(cfg.SavingsNormalization)
	if err != nil {
		logger.Error("Invalid savings normalization", log.FieldError, err)
		os.Exit(1)
	}

	opts := []services.Option{services.WithLogger(logger.Logger)}
	if be.Feed != nil {
		opts = append(opts, services.WithPublisher(be.Feed))
	}
	chain := advisor.Chain{}
	if cfg.LLMEnabled() {
		llm := advisor.NewOpenAI(advisor.OpenAIConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
		chain = append(chain, llm)
		opts = append(opts, services.WithInsights(llm))
		logger.Info("LLM advisor enabled", "model", cfg.LLMModel)
	}
	chain = append(chain, advisor.NewHeuristic())
	opts = append(opts, services.WithAdvisor(chain))

	data := services.NewDataService(be.Records, opts...)

	var sheetsPort apphttp.SheetsPort
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sheetsPort = client
		logger.Info("Google Sheets enabled")
	} else if cfg.SheetsDir != "" {
		sheetsPort = mem.NewFromDir(cfg.SheetsDir)
		logger.Info("Serving spreadsheets from directory", "dir", cfg.SheetsDir)
	}

	deps := apphttp.Deps{
		Data:       data,
		Records:    be.Records,
		Sheets:     sheetsPort,
		Normalizer: normalizer,
		Logger:     logger.WithComponent(log.ComponentHTTP),
	}
	if be.History != nil {
		deps.History = be.History
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	caches := cache.NewManager()
	be.Records.RegisterCaches(caches)

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting duobudget server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"normalization", normalizer.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = data.Close()
		os.Exit(1)
	}

	if err := data.Close(); err != nil {
		logger.Error("Failed to release resources", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
