package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// GetRockets returns the rockets from the last load.
// GET /api/rockets
func GetRockets(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := loadRecords(w, r, data); !ok {
			return
		}
		rockets := data.Rockets()
		if rockets == nil {
			rockets = []spacex.Rocket{}
		}
		writeJSON(w, http.StatusOK, rockets)
	}
}

// GetLaunchpads returns the launch sites from the last load.
// GET /api/launchpads
func GetLaunchpads(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := loadRecords(w, r, data); !ok {
			return
		}
		pads := data.Launchpads()
		if pads == nil {
			pads = []spacex.Launchpad{}
		}
		writeJSON(w, http.StatusOK, pads)
	}
}

// GetRocket returns one rocket by id.
// GET /api/rockets/{id}
func GetRocket(data LaunchData, lookup Lookup) http.HandlerFunc {
	var find func(context.Context, string) (spacex.Rocket, error)
	if lookup != nil {
		find = lookup.Rocket
	}
	return getOne(data, "rocket", find, func(id string) (spacex.Rocket, bool) {
		for _, rk := range data.Rockets() {
			if rk.ID == id {
				return rk, true
			}
		}
		return spacex.Rocket{}, false
	})
}

// GetLaunchpad returns one launch site by id.
// GET /api/launchpads/{id}
func GetLaunchpad(data LaunchData, lookup Lookup) http.HandlerFunc {
	var find func(context.Context, string) (spacex.Launchpad, error)
	if lookup != nil {
		find = lookup.Launchpad
	}
	return getOne(data, "launchpad", find, func(id string) (spacex.Launchpad, bool) {
		for _, p := range data.Launchpads() {
			if p.ID == id {
				return p, true
			}
		}
		return spacex.Launchpad{}, false
	})
}

// getOne serves a single reference record. find, when set, replaces the
// search of the loaded data.
func getOne[T any](data LaunchData, kind string, find func(context.Context, string) (T, error), loaded func(string) (T, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if _, ok := loadRecords(w, r, data); !ok {
			return
		}
		notFound := apierr.ResourceNotFound(kind).WithDetails(map[string]interface{}{"resource_type": kind, "id": id})
		if find == nil {
			if v, ok := loaded(id); ok {
				writeJSON(w, http.StatusOK, v)
				return
			}
			apierr.WriteErrorWithContext(w, r, notFound)
			return
		}
		v, err := find(r.Context(), id)
		switch {
		case errors.Is(err, tracker.ErrNotFound):
			apierr.WriteErrorWithContext(w, r, notFound)
		case err != nil:
			writeLoadError(w, r, err)
		default:
			writeJSON(w, http.StatusOK, v)
		}
	}
}
