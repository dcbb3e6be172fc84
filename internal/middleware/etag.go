package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// etagStaleWhileRevalidate defines how long clients can use stale content while revalidating
const etagStaleWhileRevalidate = 300 * time.Second

// etagResponseWriter captures response body to generate ETag.
type etagResponseWriter struct {
	http.ResponseWriter
	buf    *bytes.Buffer
	status int
}

func (w *etagResponseWriter) WriteHeader(status int) {
	w.status = status
}

func (w *etagResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// ETag returns a middleware that hashes GET response bodies into an ETag
// and answers 304 Not Modified when If-None-Match already holds it.
// Successful responses are cacheable by clients for maxAge, which should
// not exceed the dashboard's response cache TTL.
func ETag(maxAge time.Duration) func(http.Handler) http.Handler {
	cacheControl := fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(maxAge.Seconds()), int(etagStaleWhileRevalidate.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bytes.Buffer{}
			etw := &etagResponseWriter{
				ResponseWriter: w,
				buf:            buf,
				status:         http.StatusOK,
			}
			next.ServeHTTP(etw, r)

			// Errors are neither tagged nor cacheable.
			if etw.status != http.StatusOK {
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(etw.status)
				_, _ = w.Write(buf.Bytes())
				return
			}

			hash := sha256.Sum256(buf.Bytes())
			etag := fmt.Sprintf(`"%x"`, hash[:16])
			w.Header().Set("ETag", etag)
			w.Header().Set("Cache-Control", cacheControl)

			if etagMatches(r.Header.Get("If-None-Match"), etag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(buf.Bytes())
		})
	}
}

// etagMatches reports whether an If-None-Match list names etag, ignoring
// weak validators' W/ prefix.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
