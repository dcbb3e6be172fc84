package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/errorreporting"
	"github.com/onnwee/spacex-launch-tracker/internal/filter"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// LaunchData is the read side of the tracker used by the dashboard.
type LaunchData interface {
	Load(ctx context.Context, forceRefresh bool) ([]tracker.LaunchRecord, error)
	Snapshot() tracker.Snapshot
	Rockets() []spacex.Rocket
	Launchpads() []spacex.Launchpad
}

// Lookup finds records that may be missing from the loaded data.
type Lookup interface {
	Launch(ctx context.Context, id string) (tracker.LaunchRecord, error)
	Rocket(ctx context.Context, id string) (spacex.Rocket, error)
	Launchpad(ctx context.Context, id string) (spacex.Launchpad, error)
	LaunchSubset(ctx context.Context, upcoming bool) ([]tracker.LaunchRecord, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loadRecords returns the current launch records, loading them on first use.
// On failure the error has already been written to w.
func loadRecords(w http.ResponseWriter, r *http.Request, data LaunchData) ([]tracker.LaunchRecord, bool) {
	records, err := data.Load(r.Context(), false)
	if err != nil {
		writeLoadError(w, r, err)
		return nil, false
	}
	return records, true
}

func writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierr.FromError(err)
	if apiErr.Status() >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "launch data unavailable", "error", err, "path", r.URL.Path)
		if !errors.Is(err, context.Canceled) {
			errorreporting.CaptureErrorWithContext(err, map[string]string{"http.route": r.URL.Path}, nil)
		}
	}
	apierr.WriteErrorWithContext(w, r, apiErr)
}

// criteriaFromQuery reads start_date, end_date, rocket, success and site.
func criteriaFromQuery(r *http.Request) (filter.Criteria, *apierr.Error) {
	q := r.URL.Query()
	start := strings.TrimSpace(q.Get("start_date"))
	end := strings.TrimSpace(q.Get("end_date"))
	success := strings.TrimSpace(q.Get("success"))

	if start != "" {
		if _, err := filter.ParseDate(start); err != nil {
			return filter.Criteria{}, apierr.FilterInvalidDate("start_date")
		}
	}
	if end != "" {
		if _, err := filter.ParseDate(end); err != nil {
			return filter.Criteria{}, apierr.FilterInvalidDate("end_date")
		}
	}
	if success != "" {
		if _, err := filter.ParseOutcome(success); err != nil {
			return filter.Criteria{}, apierr.FilterInvalidOutcome()
		}
	}
	c, err := filter.Parse(start, end, q.Get("rocket"), success, q.Get("site"))
	if err != nil {
		return filter.Criteria{}, apierr.FilterInvalidParams(err.Error())
	}
	return c, nil
}

// filteredRecords loads records and applies the query filters.
func filteredRecords(w http.ResponseWriter, r *http.Request, data LaunchData) ([]tracker.LaunchRecord, bool) {
	c, apiErr := criteriaFromQuery(r)
	if apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return nil, false
	}
	records, ok := loadRecords(w, r, data)
	if !ok {
		return nil, false
	}
	return filter.Apply(records, c), true
}
