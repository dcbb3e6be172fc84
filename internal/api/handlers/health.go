package handlers

import (
	"net/http"
	"time"
)

// BreakerReporter exposes the upstream circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string     `json:"status"`
	Launches int        `json:"launches"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Partial  bool       `json:"partial,omitempty"`
	Breaker  string     `json:"breaker,omitempty"`
}

// Health reports liveness along with the state of the last load. It never
// triggers a load. Status is "starting" before the first successful load and
// "degraded" when reference data is missing or the breaker is not closed.
func Health(data LaunchData, breaker BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := data.Snapshot()
		resp := HealthResponse{Status: "ok", Launches: len(snap.Records), Partial: snap.Partial}
		if breaker != nil {
			resp.Breaker = breaker.BreakerState()
		}
		switch {
		case snap.LoadedAt.IsZero():
			resp.Status = "starting"
		case snap.Partial, resp.Breaker == "open", resp.Breaker == "half-open":
			resp.Status = "degraded"
		}
		if !snap.LoadedAt.IsZero() {
			at := snap.LoadedAt
			resp.LoadedAt = &at
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
