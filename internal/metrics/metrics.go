package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SpaceX API client metrics
	APIFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_api_fetches_total",
			Help: "Total number of endpoint fetches by how they were resolved",
		},
		[]string{"endpoint", "source"}, // source: cache, remote, stale, error
	)

	APIHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_api_http_requests_total",
			Help: "Total number of HTTP attempts made to the SpaceX API",
		},
		[]string{"status"}, // status: success, retry, error
	)

	APIHTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spacex_api_http_retries_total",
			Help: "Total number of HTTP request retries",
		},
	)

	APIRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spacex_api_rate_limit_waits_total",
			Help: "Total number of times the client waited for its pacing limiter",
		},
	)

	APIFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spacex_api_fetch_duration_seconds",
			Help:    "Duration of remote fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	APIDecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_api_decode_errors_total",
			Help: "Total number of payloads rejected by schema validation",
		},
		[]string{"endpoint"},
	)

	// File cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cache_hits_total",
			Help: "Total number of fresh file cache reads",
		},
		[]string{"endpoint"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cache_misses_total",
			Help: "Total number of file cache misses (absent, stale or unreadable)",
		},
		[]string{"endpoint", "reason"}, // reason: absent, stale, unreadable, bypass
	)

	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cache_write_errors_total",
			Help: "Total number of failed file cache writes",
		},
		[]string{"endpoint"},
	)

	CachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "file_cache_purged_total",
			Help: "Total number of cache files removed by purge or clear",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "file_cache_entries",
			Help: "Current number of cache files",
		},
	)

	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "file_cache_size_bytes",
			Help: "Current size of the cache directory in bytes",
		},
	)

	CacheOldestAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "file_cache_oldest_entry_age_seconds",
			Help: "Age of the oldest cache entry in seconds",
		},
	)

	// Dashboard response cache metrics
	ResponseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of dashboard response cache hits",
		},
		[]string{"route"},
	)

	ResponseCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of dashboard response cache misses",
		},
		[]string{"route"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Tracker metrics
	LaunchesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_launches_loaded",
			Help: "Number of launch records in the last successful load",
		},
	)

	TrackerLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_loads_total",
			Help: "Total number of data loads",
		},
		[]string{"status"}, // status: success, partial, failed
	)

	// Dashboard request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "Duration of dashboard requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of dashboard requests",
		},
		[]string{"route", "method", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)
)
