// Package server runs the launch dashboard: the HTTP API, its response
// cache and rate limiter, the cache metrics collector and the scheduled
// data refresh.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/api"
	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/config"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
	"github.com/onnwee/spacex-launch-tracker/internal/middleware"
	"github.com/onnwee/spacex-launch-tracker/internal/scheduler"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

const (
	shutdownTimeout   = 10 * time.Second
	collectInterval   = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Server owns the dashboard's long-lived pieces.
type Server struct {
	cfg       *config.Config
	client    *spacex.Client
	tracker   *tracker.Tracker
	responses *cache.ResponseCache
	limiter   *middleware.RateLimiter
	collector *metrics.Collector
	refresher *scheduler.Refresher // nil when scheduled refresh is off
	http      *http.Server
	log       *slog.Logger
	closeOnce sync.Once
}

// New wires the dashboard around an existing client and tracker.
func New(cfg *config.Config, client *spacex.Client, trk *tracker.Tracker) (*Server, error) {
	var sched *scheduler.Schedule
	if cfg.RefreshSchedule != "" {
		parsed, err := scheduler.Parse(cfg.RefreshSchedule)
		if err != nil {
			return nil, fmt.Errorf("refresh schedule: %w", err)
		}
		sched = &parsed
	}
	responses, err := cache.NewResponseCache(cfg.ResponseCacheMaxMB, cfg.ResponseCacheEntries, cfg.ResponseCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}
	s := &Server{
		cfg:       cfg,
		client:    client,
		tracker:   trk,
		responses: responses,
		log:       logger.WithComponent("server"),
	}
	if cfg.EnableRateLimit {
		s.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			GlobalRate:  cfg.RateLimitGlobal,
			GlobalBurst: cfg.RateLimitGlobalBurst,
			IPRate:      cfg.RateLimitPerIP,
			IPBurst:     cfg.RateLimitPerIPBurst,
			Exempt:      []string{"/health", "/metrics"},
		})
	}
	s.collector = metrics.NewCollector(s.cacheSnapshot, collectInterval)
	if sched != nil {
		s.refresher = scheduler.NewRefresher(*sched, s.refresh, nil)
	}
	s.http = &http.Server{
		Addr: cfg.DashboardAddr,
		Handler: api.NewRouter(api.Deps{
			Data:        trk,
			Lookup:      trk,
			Cache:       client,
			Breaker:     client,
			Responses:   responses,
			RateLimiter: s.limiter,
			MaxAge:      cfg.ResponseCacheTTL,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) cacheSnapshot() (metrics.CacheSnapshot, error) {
	st, err := s.client.Store().Stats()
	if err != nil {
		return metrics.CacheSnapshot{}, err
	}
	snap := metrics.CacheSnapshot{Entries: st.Entries, Bytes: st.Bytes}
	if !st.Oldest.IsZero() {
		snap.OldestAge = time.Since(st.Oldest)
	}
	return snap, nil
}

// refresh reloads launch data from the API and drops rendered responses
// built from the previous load.
func (s *Server) refresh(ctx context.Context) error {
	records, err := s.tracker.Load(ctx, true)
	if err != nil {
		return err
	}
	s.responses.Clear()
	s.log.Info("launch data refreshed", "launches", len(records))
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully. Launch data
// is loaded in the background so the listener comes up immediately.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	go s.collector.Start(ctx)
	if s.refresher != nil {
		go s.refresher.Start(ctx)
	}
	go func() {
		records, err := s.tracker.Load(ctx, false)
		if err != nil {
			s.log.Warn("initial launch load failed", "error", err)
			return
		}
		s.log.Info("launch data loaded", "launches", len(records))
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) close() {
	s.closeOnce.Do(func() {
		s.collector.Stop()
		if s.refresher != nil {
			s.refresher.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.responses.Close()
	})
}
