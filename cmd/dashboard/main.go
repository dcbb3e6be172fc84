// dashboard serves the launch overview page and JSON API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/config"
	"github.com/onnwee/spacex-launch-tracker/internal/errorreporting"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/secrets"
	"github.com/onnwee/spacex-launch-tracker/internal/server"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Settings{
		ServiceName: "spacex-dashboard",
		Version:     version,
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(ctx)
		}()
	}

	if err := errorreporting.Init(errorreporting.Settings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("failed to initialize error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	store, err := cache.NewFileStore(cfg.CacheDir, cache.WithTTL(cfg.CacheTTL))
	if err != nil {
		logger.Error("failed to open cache", "error", err, "dir", cfg.CacheDir)
		os.Exit(1)
	}
	client := spacex.NewFromConfig(store, cfg, true)
	if _, err := client.PurgeStale(cfg.CacheMaxAge); err != nil {
		logger.Warn("could not purge old cache files", "error", err)
	}

	logger.Info("starting dashboard",
		"addr", cfg.DashboardAddr,
		"api", secrets.MaskURL(cfg.APIBaseURL),
		"refresh_schedule", cfg.RefreshSchedule,
		"sentry_dsn", secrets.MaskURL(cfg.SentryDSN))
	srv, err := server.New(cfg, client, tracker.New(client))
	if err != nil {
		logger.Error("failed to build dashboard", "error", err)
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("dashboard stopped", "error", err)
		errorreporting.CaptureError(err)
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}
}
