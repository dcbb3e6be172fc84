package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/spacex-launch-tracker/internal/api/handlers"
	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
	"github.com/onnwee/spacex-launch-tracker/internal/middleware"
)

// Deps are the collaborators the dashboard routes need.
type Deps struct {
	Data    handlers.LaunchData
	Cache   handlers.CacheControl
	Breaker handlers.BreakerReporter
	// Lookup answers single-record and past/upcoming requests; nil limits
	// them to the loaded data.
	Lookup handlers.Lookup
	// Responses caches rendered GET bodies; nil disables it.
	Responses *cache.ResponseCache
	// RateLimiter is applied to everything but /health and /metrics; nil disables it.
	RateLimiter *middleware.RateLimiter
	// MaxAge is the Cache-Control max-age sent with GET responses.
	MaxAge time.Duration
}

// NewRouter builds the dashboard handler with its middleware chain.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Observe)

	etag := middleware.ETag(d.MaxAge)
	get := func(path string, h http.HandlerFunc) {
		r.Handle(path, etag(cached(d.Responses, path, h))).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", handlers.Health(d.Data, d.Breaker)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	get("/", handlers.Dashboard(d.Data))
	get("/api/launches", handlers.GetLaunches(d.Data))
	// The fixed subsets must be registered before {id}.
	get("/api/launches/past", handlers.GetLaunchSubset(d.Data, d.Lookup, false))
	get("/api/launches/upcoming", handlers.GetLaunchSubset(d.Data, d.Lookup, true))
	get("/api/launches/{id}", handlers.GetLaunch(d.Data, d.Lookup))
	get("/api/rockets", handlers.GetRockets(d.Data))
	get("/api/rockets/{id}", handlers.GetRocket(d.Data, d.Lookup))
	get("/api/launchpads", handlers.GetLaunchpads(d.Data))
	get("/api/launchpads/{id}", handlers.GetLaunchpad(d.Data, d.Lookup))

	// Stats
	get("/api/stats/summary", handlers.GetSummary(d.Data))
	get("/api/stats/rockets", handlers.GetRocketStats(d.Data))
	get("/api/stats/sites", handlers.GetSiteStats(d.Data))
	get("/api/stats/periods", handlers.GetPeriodStats(d.Data))
	get("/api/stats/trend", handlers.GetTrend(d.Data))

	// Export is not cached: bodies can be large and are rendered on demand.
	r.Handle("/api/export", etag(handlers.ExportLaunches(d.Data))).Methods(http.MethodGet)

	var clearer handlers.ResponseClearer
	if d.Responses != nil {
		clearer = d.Responses
	}
	r.HandleFunc("/api/refresh", handlers.Refresh(d.Data, clearer)).Methods(http.MethodPost)

	// Admin
	admin := handlers.NewCacheAdminHandler(d.Cache, d.Responses)
	r.HandleFunc("/api/admin/cache/invalidate", admin.InvalidateCache).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/cache/stats", admin.GetCacheStats).Methods(http.MethodGet)

	var h http.Handler = middleware.Compress(r)
	if d.RateLimiter != nil {
		h = d.RateLimiter.Limit(h)
	}
	h = middleware.ValidateRequest(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	return middleware.RequestID(h)
}

// bufferedWriter captures a response so a 200 can be stored.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// cached serves GET bodies from rc keyed by route and query.
func cached(rc *cache.ResponseCache, route string, next http.Handler) http.Handler {
	if rc == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cache.ResponseKey(r.URL.Path, r.URL.Query())
		if resp, ok := rc.Get(key); ok {
			metrics.ResponseCacheHits.WithLabelValues(route).Inc()
			w.Header().Set("Content-Type", resp.ContentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(resp.Body)
			return
		}
		metrics.ResponseCacheMisses.WithLabelValues(route).Inc()
		w.Header().Set("X-Cache", "MISS")
		// A refresh that lands while the handler runs clears the cache; the
		// body may predate it and is then not stored.
		gen := rc.Generation()
		bw := &bufferedWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)
		if bw.status == http.StatusOK {
			rc.SetIfGeneration(gen, key, w.Header().Get("Content-Type"), bw.buf.Bytes())
		}
	})
}
