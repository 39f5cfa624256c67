package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"otchet/internal/backend"
	"otchet/internal/cli"
	apphttp "otchet/internal/http"
	applog "otchet/internal/log"
	"otchet/internal/storage"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	// The dashboard serves a snapshot; new data shows up on restart.
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	periods, err := res.Reader.ListPeriods(loadCtx)
	cancel()
	if err != nil {
		logger.Error("Failed to load report periods", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		ChartWidth:         cfg.ChartWidth,
		ChartHeight:        cfg.ChartHeight,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Checks:             readinessChecks(res),
	}, periods)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting otchet server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldPeriods, len(periods))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

func readinessChecks(res *backend.BackendResult) []apphttp.Check {
	var checks []apphttp.Check
	if res.Health != nil {
		checks = append(checks, apphttp.Check{
			Name: "backend",
			Probe: func(ctx context.Context) (string, error) {
				return "", res.Health(ctx)
			},
		})
	}
	if res.LastImport != nil {
		checks = append(checks, apphttp.Check{
			Name: "last_import",
			Probe: func(ctx context.Context) (string, error) {
				run, err := res.LastImport(ctx)
				if errors.Is(err, storage.ErrNoImports) {
					return "none", nil
				}
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("#%d from %s, %d periods at %s",
					run.ID, run.Source, run.Periods, run.ImportedAt.Format(time.RFC3339)), nil
			},
		})
	}
	return checks
}
