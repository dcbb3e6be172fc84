package config

import (
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the public SpaceX v4 REST API.
const DefaultBaseURL = "https://api.spacexdata.com/v4"

// Config holds application configuration derived from environment variables.
type Config struct {
	// SpaceX API
	APIBaseURL string
	UserAgent  string
	// File cache
	CacheDir        string
	CacheTTL        time.Duration // how long an entry is served without a remote call
	CacheMaxAge     time.Duration // entries older than this are purged at startup
	ServeStaleOnErr bool          // serve an expired entry when the remote call fails
	// HTTP transport
	HTTPTimeout     time.Duration
	HTTPMaxAttempts int
	HTTPRetryBase   time.Duration
	LogHTTPAttempts bool
	APIRPS          float64 // client-side pacing of requests to the SpaceX API
	APIBurst        int
	// Circuit breaker around the SpaceX API (dashboard only)
	BreakerFailures int
	BreakerTimeout  time.Duration
	// Dashboard
	DashboardAddr        string
	ResponseCacheMaxMB   int64
	ResponseCacheEntries int64
	ResponseCacheTTL     time.Duration
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int     // burst size for global rate limit
	RateLimitPerIP       float64 // requests per second per IP
	RateLimitPerIPBurst  int     // burst size for per-IP rate limit
	EnableRateLimit      bool
	RefreshSchedule      string // @hourly, @daily, @every 30m...; empty when disabled
	// Observability settings
	Env               string
	LogLevel          string  // log level: debug, info, warn, error
	LogFormat         string  // text or json
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		APIBaseURL:      envString("SPACEX_API_BASE_URL", DefaultBaseURL),
		UserAgent:       envString("SPACEX_USER_AGENT", "spacex-launch-tracker/0.1"),
		CacheDir:        envString("SPACEX_CACHE_DIR", ".cache"),
		CacheTTL:        envSeconds("SPACEX_CACHE_TTL_SEC", 3600),
		CacheMaxAge:     time.Duration(envInt("SPACEX_CACHE_MAX_AGE_HOURS", 24)) * time.Hour,
		ServeStaleOnErr: envBool("SPACEX_SERVE_STALE", false),
		HTTPTimeout:     envMillis("HTTP_TIMEOUT_MS", 10000),
		HTTPMaxAttempts: envInt("HTTP_MAX_ATTEMPTS", 1),
		HTTPRetryBase:   envMillis("HTTP_RETRY_BASE_MS", 1000),
		LogHTTPAttempts: envBool("LOG_HTTP_ATTEMPTS", false),
		APIRPS:          envFloat("SPACEX_API_RPS", 5),
		APIBurst:        envInt("SPACEX_API_BURST", 3),
		BreakerFailures: envInt("BREAKER_FAILURES", 5),
		BreakerTimeout:  envSeconds("BREAKER_TIMEOUT_SEC", 60),
		DashboardAddr:   envString("DASHBOARD_ADDR", ":8000"),
		// The dashboard renders a handful of small JSON documents; keep the LRU modest.
		ResponseCacheMaxMB:   int64(envInt("RESPONSE_CACHE_MAX_MB", 16)),
		ResponseCacheEntries: int64(envInt("RESPONSE_CACHE_MAX_ENTRIES", 500)),
		ResponseCacheTTL:     envSeconds("RESPONSE_CACHE_TTL_SEC", 30),
		RateLimitGlobal:      envFloat("RATE_LIMIT_GLOBAL", 50.0),
		RateLimitGlobalBurst: envInt("RATE_LIMIT_GLOBAL_BURST", 100),
		RateLimitPerIP:       envFloat("RATE_LIMIT_PER_IP", 5.0),
		RateLimitPerIPBurst:  envInt("RATE_LIMIT_PER_IP_BURST", 10),
		EnableRateLimit:      envBool("ENABLE_RATE_LIMIT", true),
		RefreshSchedule:      envString("DASHBOARD_REFRESH_SCHEDULE", "@hourly"),
		// Observability settings
		Env:               strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))),
		LogLevel:          strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		OTELEnabled:       envBool("OTEL_ENABLED", false),
		OTELEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELSampleRate:    envFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  envFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.LogFormat == "" {
		if cached.Env == "production" {
			cached.LogFormat = "json"
		} else {
			cached.LogFormat = "text"
		}
	}
	if cached.SentryEnvironment == "" {
		if cached.Env != "" {
			cached.SentryEnvironment = cached.Env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	if cached.HTTPMaxAttempts < 1 {
		cached.HTTPMaxAttempts = 1
	}
	cached.APIBaseURL = strings.TrimRight(cached.APIBaseURL, "/")
	if strings.EqualFold(cached.RefreshSchedule, "off") {
		cached.RefreshSchedule = ""
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
