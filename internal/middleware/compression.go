package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

const brotliLevel = 5

var (
	gzipPool = sync.Pool{
		New: func() interface{} { return gzip.NewWriter(io.Discard) },
	}
	brotliPool = sync.Pool{
		New: func() interface{} { return brotli.NewWriterLevel(io.Discard, brotliLevel) },
	}
)

// compressWriter defers the choice to compress until the status is known,
// so 304s from ETag and bodiless responses pass through untouched.
type compressWriter struct {
	http.ResponseWriter
	encoding    string
	enc         io.WriteCloser
	wroteHeader bool
	passthrough bool
}

func (w *compressWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified || h.Get("Content-Encoding") != "" {
		w.passthrough = true
	} else {
		h.Set("Content-Encoding", w.encoding)
		h.Del("Content-Length") // Length will change after compression
		w.enc = acquireEncoder(w.encoding, w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	return w.enc.Write(b)
}

func (w *compressWriter) close() {
	if w.enc == nil {
		return
	}
	_ = w.enc.Close()
	releaseEncoder(w.encoding, w.enc)
}

func acquireEncoder(encoding string, dst io.Writer) io.WriteCloser {
	if encoding == "br" {
		bw := brotliPool.Get().(*brotli.Writer)
		bw.Reset(dst)
		return bw
	}
	gz := gzipPool.Get().(*gzip.Writer)
	gz.Reset(dst)
	return gz
}

func releaseEncoder(encoding string, enc io.WriteCloser) {
	switch e := enc.(type) {
	case *brotli.Writer:
		brotliPool.Put(e)
	case *gzip.Writer:
		gzipPool.Put(e)
	}
}

// Compress compresses responses with brotli or gzip, whichever the client
// prefers through Accept-Encoding (brotli wins ties).
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		encoding := preferredEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{ResponseWriter: w, encoding: encoding}
		defer cw.close()
		next.ServeHTTP(cw, r)
	})
}

// preferredEncoding picks "br" or "gzip" from an Accept-Encoding header,
// honoring q-values. It returns "" when neither is acceptable.
func preferredEncoding(header string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "br" && name != "gzip" && name != "*" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		if q <= 0 {
			continue
		}
		if name == "*" {
			name = "br"
		}
		if q > bestQ || (q == bestQ && name == "br") {
			best, bestQ = name, q
		}
	}
	return best
}
