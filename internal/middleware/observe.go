package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
)

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Observe records request metrics and an access log line. Register it
// with Router.Use so the matched route template is available as a
// low-cardinality label.
func Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		route := routeTemplate(r)
		status := strconv.Itoa(rec.status)
		elapsed := time.Since(start)

		metrics.APIRequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(route, r.Method, status).Observe(elapsed.Seconds())

		log := logger.WithRequestID(r.Context())
		args := []any{"method", r.Method, "route", route, "status", rec.status, "bytes", rec.bytes, "duration_ms", elapsed.Milliseconds()}
		if rec.status >= http.StatusInternalServerError {
			log.Warn("request failed", args...)
		} else {
			log.Debug("request served", args...)
		}
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
