package spacex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/circuitbreaker"
	"github.com/onnwee/spacex-launch-tracker/internal/config"
	"github.com/onnwee/spacex-launch-tracker/internal/httpx"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
)

// Endpoint keys double as cache keys and URL paths below the base URL.
const (
	EndpointLaunches         = "/launches"
	EndpointPastLaunches     = "/launches/past"
	EndpointUpcomingLaunches = "/launches/upcoming"
	EndpointRockets          = "/rockets"
	EndpointLaunchpads       = "/launchpads"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 32 << 20
)

// Options configures a Client. Zero values fall back to the defaults noted.
type Options struct {
	BaseURL     string        // default config.DefaultBaseURL
	UserAgent   string        // default "spacex-launch-tracker"
	Timeout     time.Duration // per request; default 10s
	MaxAttempts int           // total tries per fetch; default 1
	RetryBase   time.Duration
	LogAttempts bool
	// RPS paces outgoing requests; 0 disables pacing.
	RPS   float64
	Burst int
	// Breaker guards the remote API when set.
	Breaker *circuitbreaker.CircuitBreaker
	// ServeStaleOnError returns an expired entry instead of a FetchError.
	ServeStaleOnError bool
	Clock             clockwork.Clock
	HTTPClient        *http.Client
}

// Client resolves endpoints from the cache store or the remote API.
type Client struct {
	store      cache.Store
	http       *http.Client
	baseURL    string
	userAgent  string
	breaker    *circuitbreaker.CircuitBreaker
	serveStale bool
	clock      clockwork.Clock
	reqOpts    httpx.Options
	log        *slog.Logger
}

// New returns a client backed by store.
func New(store cache.Store, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "spacex-launch-tracker"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		store:      store,
		http:       hc,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		breaker:    opts.Breaker,
		serveStale: opts.ServeStaleOnError,
		clock:      opts.Clock,
		reqOpts: httpx.Options{
			MaxAttempts: opts.MaxAttempts,
			RetryBase:   opts.RetryBase,
			LogAttempts: opts.LogAttempts,
		},
		log: logger.WithComponent("spacex"),
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.reqOpts.Pre = httpx.LimiterPre(rate.NewLimiter(rate.Limit(opts.RPS), burst))
	}
	return c
}

// NewFromConfig wires a client from environment configuration. withBreaker
// adds a circuit breaker, which long-running processes want.
func NewFromConfig(store cache.Store, cfg *config.Config, withBreaker bool) *Client {
	opts := Options{
		BaseURL:           cfg.APIBaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.HTTPTimeout,
		MaxAttempts:       cfg.HTTPMaxAttempts,
		RetryBase:         cfg.HTTPRetryBase,
		LogAttempts:       cfg.LogHTTPAttempts,
		RPS:               cfg.APIRPS,
		Burst:             cfg.APIBurst,
		ServeStaleOnError: cfg.ServeStaleOnErr,
	}
	if withBreaker {
		opts.Breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:             "spacex_api",
			FailureThreshold: cfg.BreakerFailures,
			Timeout:          cfg.BreakerTimeout,
			IsFailure:        countsAgainstUpstream,
		})
	}
	return New(store, opts)
}

// Store exposes the backing cache.
func (c *Client) Store() cache.Store { return c.store }

// BreakerState reports the circuit breaker state, or "disabled" without one.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.GetState().String()
}

// Fetch returns the raw payload for endpoint. A fresh cache entry is returned
// as stored without a remote call unless forceRefresh is set. Otherwise one
// remote request is made and a successful body is written back; a failed
// write is logged and the body still returned.
func (c *Client) Fetch(ctx context.Context, endpoint string, forceRefresh bool) (json.RawMessage, error) {
	endpoint = NormalizeEndpoint(endpoint)
	ctx, span := tracing.StartSpan(ctx, "spacex.Fetch", trace.WithAttributes(
		attribute.String("spacex.endpoint", endpoint),
		attribute.Bool("spacex.force_refresh", forceRefresh),
	))
	defer span.End()

	if forceRefresh {
		metrics.CacheMisses.WithLabelValues(endpoint, "bypass").Inc()
	} else if payload, ok := c.cached(ctx, endpoint); ok {
		span.SetAttributes(attribute.String("spacex.source", "cache"))
		metrics.APIFetchesTotal.WithLabelValues(endpoint, "cache").Inc()
		return payload, nil
	}

	start := c.clock.Now()
	body, err := c.fetchRemote(ctx, endpoint)
	metrics.APIFetchDuration.WithLabelValues(endpoint).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		tracing.Fail(span, err)
		if payload, ok := c.stale(ctx, endpoint, err); ok {
			span.SetAttributes(attribute.String("spacex.source", "stale"))
			return payload, nil
		}
		metrics.APIFetchesTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	if _, werr := c.store.Put(endpoint, body); werr != nil {
		metrics.CacheWriteErrors.WithLabelValues(endpoint).Inc()
		c.log.WarnContext(ctx, "cache write failed", "endpoint", endpoint, "error", werr)
	}
	span.SetAttributes(attribute.String("spacex.source", "remote"), attribute.Int("spacex.bytes", len(body)))
	metrics.APIFetchesTotal.WithLabelValues(endpoint, "remote").Inc()
	return body, nil
}

func (c *Client) cached(ctx context.Context, endpoint string) (json.RawMessage, bool) {
	e, ok, err := c.store.Get(endpoint)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(endpoint, "unreadable").Inc()
		c.log.WarnContext(ctx, "ignoring unreadable cache entry", "endpoint", endpoint, "error", err)
		return nil, false
	}
	if ok {
		metrics.CacheHits.WithLabelValues(endpoint).Inc()
		c.log.DebugContext(ctx, "cache hit", "endpoint", endpoint, "age", e.Age(c.clock.Now()).Round(time.Second))
		return e.Payload, true
	}
	reason := "absent"
	if _, present, _ := c.store.Peek(endpoint); present {
		reason = "stale"
	}
	metrics.CacheMisses.WithLabelValues(endpoint, reason).Inc()
	return nil, false
}

// stale returns an expired entry for fetch failures when allowed.
func (c *Client) stale(ctx context.Context, endpoint string, cause error) (json.RawMessage, bool) {
	var fe *FetchError
	if !c.serveStale || !errors.As(cause, &fe) {
		return nil, false
	}
	e, ok, err := c.store.Peek(endpoint)
	if err != nil || !ok {
		return nil, false
	}
	metrics.APIFetchesTotal.WithLabelValues(endpoint, "stale").Inc()
	c.log.WarnContext(ctx, "serving stale cache entry after fetch failure",
		"endpoint", endpoint, "age", e.Age(c.clock.Now()).Round(time.Second), "error", cause)
	return e.Payload, true
}

func (c *Client) fetchRemote(ctx context.Context, endpoint string) (json.RawMessage, error) {
	target := c.baseURL + endpoint
	c.log.InfoContext(ctx, "fetching from API", "url", target)

	var body json.RawMessage
	call := func() error {
		resp, err := httpx.Do(ctx, c.http, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/json")
			return req, nil
		}, c.reqOpts)
		if err != nil {
			return &FetchError{Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classifyResponse(endpoint, resp)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			metrics.APIDecodeErrors.WithLabelValues(endpoint).Inc()
			return &DecodeError{Endpoint: endpoint, Index: -1, Err: err}
		}
		body = buf.Bytes()
		return nil
	}

	if c.breaker == nil {
		if err := call(); err != nil {
			return nil, err
		}
		return body, nil
	}
	if err := c.breaker.Call(call); err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, &FetchError{Endpoint: endpoint, Err: err}
		}
		return nil, err
	}
	return body, nil
}

// ClearCache removes the cached entry for one endpoint.
func (c *Client) ClearCache(endpoint string) error {
	endpoint = NormalizeEndpoint(endpoint)
	if err := c.store.Invalidate(endpoint); err != nil {
		return fmt.Errorf("clear %s: %w", endpoint, err)
	}
	c.log.Info("cleared cache", "endpoint", endpoint)
	return nil
}

// ClearAll removes every cached entry.
func (c *Client) ClearAll() (int, error) {
	n, err := c.store.ClearAll()
	metrics.CachePurged.Add(float64(n))
	if err != nil {
		return n, fmt.Errorf("clear cache: %w", err)
	}
	c.log.Info("cleared all cache", "removed", n)
	return n, nil
}

// PurgeStale removes entries older than maxAge.
func (c *Client) PurgeStale(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = cache.DefaultMaxAge
	}
	n, err := c.store.PurgeStale(maxAge)
	metrics.CachePurged.Add(float64(n))
	if err != nil {
		return n, fmt.Errorf("purge cache: %w", err)
	}
	if n > 0 {
		c.log.Info("removed old cache files", "removed", n, "max_age", maxAge)
	}
	return n, nil
}

// NormalizeEndpoint turns "launches/past" or "/launches/past/" into
// "/launches/past".
func NormalizeEndpoint(endpoint string) string {
	return "/" + strings.Trim(strings.TrimSpace(endpoint), "/")
}

func byID(collection, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id is required")
	}
	return collection + "/" + url.PathEscape(id), nil
}
