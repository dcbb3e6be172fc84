package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
)

// CacheControl is the cache side of the SpaceX client.
type CacheControl interface {
	ClearCache(endpoint string) error
	ClearAll() (int, error)
	Store() cache.Store
}

// CacheAdminHandler handles cache administration endpoints.
type CacheAdminHandler struct {
	files     CacheControl
	responses *cache.ResponseCache
	now       func() time.Time
}

// NewCacheAdminHandler creates a new cache admin handler. responses may be nil.
func NewCacheAdminHandler(files CacheControl, responses *cache.ResponseCache) *CacheAdminHandler {
	return &CacheAdminHandler{files: files, responses: responses, now: time.Now}
}

type invalidateRequest struct {
	Endpoint string `json:"endpoint"`
}

// InvalidateCache removes one endpoint from the file cache, or all of them
// when the body names none. Rendered responses are always dropped.
// POST /api/admin/cache/invalidate
func (h *CacheAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}
	}

	resp := map[string]any{"status": "ok"}
	if endpoint := strings.TrimSpace(req.Endpoint); endpoint != "" {
		if err := h.files.ClearCache(endpoint); err != nil {
			logger.ErrorContext(r.Context(), "cache invalidate failed", "error", err, "endpoint", endpoint)
			apierr.WriteErrorWithContext(w, r, apierr.CacheFailed("Failed to clear cache entry"))
			return
		}
		resp["endpoint"] = endpoint
	} else {
		n, err := h.files.ClearAll()
		if err != nil {
			logger.ErrorContext(r.Context(), "cache clear failed", "error", err, "removed", n)
			apierr.WriteErrorWithContext(w, r, apierr.CacheFailed("Failed to clear cache"))
			return
		}
		resp["removed"] = n
	}
	if h.responses != nil {
		h.responses.Clear()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CacheEntryInfo describes one cached endpoint.
type CacheEntryInfo struct {
	Endpoint   string    `json:"endpoint"`
	Bytes      int       `json:"bytes"`
	FetchedAt  time.Time `json:"fetched_at"`
	AgeSeconds int64     `json:"age_seconds"`
}

// CacheStatsResponse is the body of GET /api/admin/cache/stats.
type CacheStatsResponse struct {
	Files     cache.Stats          `json:"files"`
	Entries   []CacheEntryInfo     `json:"entries"`
	Responses *cache.ResponseStats `json:"responses,omitempty"`
}

// GetCacheStats returns file cache contents and response cache statistics.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	store := h.files.Store()
	st, err := store.Stats()
	if err != nil {
		logger.ErrorContext(r.Context(), "cache stats failed", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.CacheFailed("Failed to read cache"))
		return
	}
	entries, err := store.List()
	if err != nil {
		logger.ErrorContext(r.Context(), "cache list failed", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.CacheFailed("Failed to read cache"))
		return
	}

	now := h.now()
	out := CacheStatsResponse{Files: st, Entries: make([]CacheEntryInfo, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, CacheEntryInfo{
			Endpoint:   e.Key,
			Bytes:      len(e.Payload),
			FetchedAt:  e.FetchedAt,
			AgeSeconds: int64(e.Age(now).Seconds()),
		})
	}
	if h.responses != nil {
		rs := h.responses.Stats()
		out.Responses = &rs
	}
	writeJSON(w, http.StatusOK, out)
}
