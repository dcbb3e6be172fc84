package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/filter"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// LaunchList is the body of GET /api/launches.
type LaunchList struct {
	Count    int                    `json:"count"`
	Launches []tracker.LaunchRecord `json:"launches"`
}

// GetLaunches returns the launches matching the filter query parameters.
// GET /api/launches?start_date=&end_date=&rocket=&success=&site=
func GetLaunches(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		if records == nil {
			records = []tracker.LaunchRecord{}
		}
		writeJSON(w, http.StatusOK, LaunchList{Count: len(records), Launches: records})
	}
}

// GetLaunch returns one launch by id. Launches missing from the loaded data
// are looked up upstream when lookup is set.
// GET /api/launches/{id}
func GetLaunch(data LaunchData, lookup Lookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		records, ok := loadRecords(w, r, data)
		if !ok {
			return
		}
		if lookup != nil {
			rec, err := lookup.Launch(r.Context(), id)
			switch {
			case errors.Is(err, tracker.ErrNotFound):
				apierr.WriteErrorWithContext(w, r, apierr.LaunchNotFound(id))
			case err != nil:
				writeLoadError(w, r, err)
			default:
				writeJSON(w, http.StatusOK, rec)
			}
			return
		}
		for _, rec := range records {
			if rec.ID == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		apierr.WriteErrorWithContext(w, r, apierr.LaunchNotFound(id))
	}
}

// GetLaunchSubset returns the past or upcoming launches matching the filter
// query parameters.
// GET /api/launches/past, GET /api/launches/upcoming
func GetLaunchSubset(data LaunchData, lookup Lookup, upcoming bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, apiErr := criteriaFromQuery(r)
		if apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		records, ok := loadRecords(w, r, data)
		if !ok {
			return
		}
		if lookup != nil {
			var err error
			if records, err = lookup.LaunchSubset(r.Context(), upcoming); err != nil {
				writeLoadError(w, r, err)
				return
			}
		} else {
			records = splitUpcoming(records, upcoming)
		}
		records = filter.Apply(records, c)
		if records == nil {
			records = []tracker.LaunchRecord{}
		}
		writeJSON(w, http.StatusOK, LaunchList{Count: len(records), Launches: records})
	}
}

func splitUpcoming(records []tracker.LaunchRecord, upcoming bool) []tracker.LaunchRecord {
	var out []tracker.LaunchRecord
	for _, rec := range records {
		if rec.Upcoming == upcoming {
			out = append(out, rec)
		}
	}
	return out
}
