package handlers

import (
	"net/http"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
)

// ResponseClearer drops rendered responses after the data changes.
type ResponseClearer interface {
	Clear()
}

// RefreshResponse is the body of POST /api/refresh.
type RefreshResponse struct {
	Status   string    `json:"status"`
	Launches int       `json:"launches"`
	LoadedAt time.Time `json:"loaded_at"`
	Partial  bool      `json:"partial,omitempty"`
}

// Refresh bypasses the file cache and reloads every endpoint.
// POST /api/refresh
func Refresh(data LaunchData, responses ResponseClearer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := data.Load(r.Context(), true)
		if err != nil {
			writeLoadError(w, r, err)
			return
		}
		if responses != nil {
			responses.Clear()
		}
		snap := data.Snapshot()
		logger.WithRequestID(r.Context()).Info("launch data refreshed", "launches", len(records), "partial", snap.Partial)
		writeJSON(w, http.StatusOK, RefreshResponse{
			Status:   "ok",
			Launches: len(records),
			LoadedAt: snap.LoadedAt,
			Partial:  snap.Partial,
		})
	}
}
