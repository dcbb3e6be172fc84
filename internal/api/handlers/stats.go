package handlers

import (
	"net/http"
	"sort"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/stats"
)

// RocketStats is one row of GET /api/stats/rockets.
type RocketStats struct {
	Rocket string `json:"rocket"`
	stats.RocketRate
}

// GetSummary returns headline totals for the filtered launches.
// GET /api/stats/summary
func GetSummary(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, stats.Summarize(records))
	}
}

// GetRocketStats returns success rates per rocket ordered by name.
// GET /api/stats/rockets
func GetRocketStats(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		rates := stats.SuccessRateByRocket(records)
		out := make([]RocketStats, 0, len(rates))
		for name, rr := range rates {
			out = append(out, RocketStats{Rocket: name, RocketRate: rr})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Rocket < out[j].Rocket })
		writeJSON(w, http.StatusOK, out)
	}
}

// GetSiteStats returns launch counts per site, busiest first.
// GET /api/stats/sites
func GetSiteStats(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, stats.Ranked(stats.CountsBySite(records)))
	}
}

// GetPeriodStats returns launch counts per period.
// GET /api/stats/periods?granularity=year|month|month_of_year
func GetPeriodStats(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := stats.Year
		if raw := r.URL.Query().Get("granularity"); raw != "" {
			parsed, err := stats.ParseGranularity(raw)
			if err != nil {
				apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("granularity", err.Error()))
				return
			}
			g = parsed
		}
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"granularity": g.String(),
			"periods":     stats.CountsByPeriod(records, g),
		})
	}
}

// GetTrend returns the yearly success rate of decided launches.
// GET /api/stats/trend
func GetTrend(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, stats.SuccessTrendByYear(records))
	}
}
