// tracker fetches SpaceX launch data, caches it on disk and prints
// filtered reports or exports.
//
// Usage:
//
//	tracker [--refresh] [--start-date=YYYY-MM-DD] [--end-date=YYYY-MM-DD] [--rocket=NAME]
//	        [--success=yes|no] [--site=NAME] [--show-launches] [--show-success-rates]
//	        [--show-sites] [--show-time] [--show-summary] [--export=FILE] [--export-json=FILE] ...
//	tracker cache clear [endpoint]
//	tracker cache purge [--max-age=24h]
//	tracker cache status
//	tracker serve [--addr=:8000]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/config"
	"github.com/onnwee/spacex-launch-tracker/internal/errorreporting"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/secrets"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags override configuration for every command.
type globalFlags struct {
	cacheDir string
	cacheTTL time.Duration
}

// app holds what PersistentPreRunE sets up for the subcommands.
type app struct {
	flags    globalFlags
	cfg      *config.Config
	shutdown func(context.Context) error

	// flush sends buffered error reports; nil means errorreporting.Flush.
	flush        func(time.Duration) bool
	teardownOnce sync.Once
}

// run executes the command line and always tears down tracing and error
// reporting afterwards, including when the command fails.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var show showFlags

	root := &cobra.Command{
		Use:   "tracker",
		Short: "Track SpaceX launches from the public API",
		Long: "tracker downloads launches, rockets and launch sites from the SpaceX API,\n" +
			"caches the responses on disk and prints statistics for the launches you select.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd, show)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.cacheDir, "cache-dir", "", "Directory for cached API responses (default $SPACEX_CACHE_DIR or .cache)")
	pf.DurationVar(&a.flags.cacheTTL, "cache-ttl", 0, "How long cached responses are used without a remote call (default $SPACEX_CACHE_TTL_SEC or 1h)")

	show.register(root)

	root.AddCommand(newCacheCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// setup loads configuration and starts logging, tracing and error reporting.
func (a *app) setup(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
	cfg := config.Load()
	if a.flags.cacheDir != "" {
		cfg.CacheDir = a.flags.cacheDir
	}
	if a.flags.cacheTTL > 0 {
		cfg.CacheTTL = a.flags.cacheTTL
	}
	a.cfg = cfg

	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	shutdown, err := tracing.Init(ctx, tracing.Settings{
		ServiceName: "spacex-launch-tracker",
		Version:     version,
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	a.shutdown = shutdown

	if err := errorreporting.Init(errorreporting.Settings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("error reporting disabled", "error", err)
	}
	logger.Debug("configuration loaded",
		"api", secrets.MaskURL(cfg.APIBaseURL),
		"cache_dir", cfg.CacheDir,
		"cache_ttl", cfg.CacheTTL,
		"sentry_dsn", secrets.MaskURL(cfg.SentryDSN))
	return nil
}

// teardown flushes error reports and stops tracing. Only the first call
// does anything.
func (a *app) teardown() {
	a.teardownOnce.Do(func() {
		flush := a.flush
		if flush == nil {
			flush = errorreporting.Flush
		}
		flush(2 * time.Second)
		if a.shutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.shutdown(ctx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}
	})
}

// openClient opens the file cache. withBreaker is set for long-running commands.
func (a *app) openClient(withBreaker bool) (*spacex.Client, error) {
	store, err := cache.NewFileStore(a.cfg.CacheDir, cache.WithTTL(a.cfg.CacheTTL))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return spacex.NewFromConfig(store, a.cfg, withBreaker), nil
}

// newClient is openClient followed by removing entries past the max age.
func (a *app) newClient(withBreaker bool) (*spacex.Client, error) {
	client, err := a.openClient(withBreaker)
	if err != nil {
		return nil, err
	}
	if _, err := client.PurgeStale(a.cfg.CacheMaxAge); err != nil {
		logger.Warn("could not purge old cache files", "error", err)
	}
	return client, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, &app{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
