package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/report"
	"github.com/onnwee/spacex-launch-tracker/internal/stats"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// recentLaunches is how many launches the overview lists.
const recentLaunches = 20

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"percent": report.Percent,
	"status":  report.Status,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02")
	},
}).Parse(dashboardHTML))

type dashboardView struct {
	Summary  stats.Summary
	Rockets  []RocketStats
	Sites    []stats.NameCount
	Trend    []stats.YearRate
	Recent   []tracker.LaunchRecord
	LoadedAt time.Time
	Partial  bool
}

// Dashboard renders the HTML overview of the filtered launches.
// GET /
func Dashboard(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := filteredRecords(w, r, data)
		if !ok {
			return
		}
		snap := data.Snapshot()
		view := dashboardView{
			Summary:  stats.Summarize(records),
			Sites:    stats.Ranked(stats.CountsBySite(records)),
			Trend:    stats.SuccessTrendByYear(records),
			Recent:   latest(records, recentLaunches),
			LoadedAt: snap.LoadedAt,
			Partial:  snap.Partial,
		}
		for name, rr := range stats.SuccessRateByRocket(records) {
			view.Rockets = append(view.Rockets, RocketStats{Rocket: name, RocketRate: rr})
		}
		sort.Slice(view.Rockets, func(i, j int) bool { return view.Rockets[i].Rocket < view.Rockets[j].Rocket })

		var buf bytes.Buffer
		if err := dashboardTmpl.Execute(&buf, view); err != nil {
			logger.ErrorContext(r.Context(), "failed to render dashboard", "error", err)
			http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// latest returns up to n records, newest first.
func latest(records []tracker.LaunchRecord, n int) []tracker.LaunchRecord {
	out := append([]tracker.LaunchRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>SpaceX Launch Tracker</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 2rem; }
th, td { border-bottom: 1px solid #ddd; padding: 0.3rem 0.8rem; text-align: left; }
td.num { text-align: right; }
.note { color: #a60; }
</style>
</head>
<body>
<h1>SpaceX Launch Tracker</h1>
<p>Data loaded {{date .LoadedAt}}{{if .Partial}} <span class="note">(rocket or launch site names unavailable)</span>{{end}}</p>

<h2>Summary</h2>
<table>
<tr><th>Total launches</th><td class="num">{{.Summary.Total}}</td></tr>
<tr><th>Upcoming</th><td class="num">{{.Summary.Upcoming}}</td></tr>
<tr><th>Completed</th><td class="num">{{.Summary.Completed}}</td></tr>
<tr><th>Successful</th><td class="num">{{.Summary.Successful}}</td></tr>
<tr><th>Failed</th><td class="num">{{.Summary.Failed}}</td></tr>
<tr><th>Success rate</th><td class="num">{{percent .Summary.SuccessRate}}</td></tr>
<tr><th>Most used rocket</th><td>{{with .Summary.MostUsed.Name}}{{.}} ({{$.Summary.MostUsed.Count}}){{else}}-{{end}}</td></tr>
<tr><th>Busiest launch site</th><td>{{with .Summary.BusiestSite.Name}}{{.}} ({{$.Summary.BusiestSite.Count}}){{else}}-{{end}}</td></tr>
<tr><th>First launch</th><td>{{date .Summary.First}}</td></tr>
<tr><th>Last launch</th><td>{{date .Summary.Last}}</td></tr>
</table>

<h2>Success rate by rocket</h2>
<table>
<tr><th>Rocket</th><th>Successes</th><th>Failures</th><th>Unknown</th><th>Rate</th></tr>
{{range .Rockets}}<tr><td>{{.Rocket}}</td><td class="num">{{.Successes}}</td><td class="num">{{.Failures}}</td><td class="num">{{.Unknown}}</td><td class="num">{{percent .Rate}}</td></tr>
{{else}}<tr><td colspan="5">No launches</td></tr>
{{end}}</table>

<h2>Launch sites</h2>
<table>
<tr><th>Site</th><th>Launches</th></tr>
{{range .Sites}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{else}}<tr><td colspan="2">No launches</td></tr>
{{end}}</table>

<h2>Success trend</h2>
<table>
<tr><th>Year</th><th>Successes</th><th>Failures</th><th>Rate</th></tr>
{{range .Trend}}<tr><td>{{.Year}}</td><td class="num">{{.Successes}}</td><td class="num">{{.Failures}}</td><td class="num">{{percent .Rate}}</td></tr>
{{end}}</table>

<h2>Latest launches</h2>
<table>
<tr><th>Date</th><th>Name</th><th>Rocket</th><th>Site</th><th>Status</th></tr>
{{range .Recent}}<tr><td>{{date .Date}}</td><td>{{.Name}}</td><td>{{.RocketName}}</td><td>{{.LaunchSite}}</td><td>{{status .}}</td></tr>
{{end}}</table>
</body>
</html>
`
