// Package report renders launch records and statistics as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/stats"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// Printer writes report sections to an output stream.
type Printer struct {
	w    io.Writer
	mode Mode
}

// New returns a printer writing to w.
func New(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

func (p *Printer) newTable(title string) table.Writer {
	t := table.NewWriter()
	if p.mode == ASCII {
		t.SetStyle(table.StyleLight)
		t.SetTitle(title)
	}
	return t
}

func (p *Printer) render(title string, t table.Writer) {
	var out string
	if p.mode == Markdown {
		out = "### " + title + "\n\n" + t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, out)
}

// Launches prints one row per launch, oldest first.
func (p *Printer) Launches(records []tracker.LaunchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.w, "No launches found matching the criteria.")
		return
	}
	sorted := make([]tracker.LaunchRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DateUnix < sorted[j].DateUnix })

	t := p.newTable("LAUNCH LIST")
	t.AppendHeader(table.Row{"Date", "Mission", "Rocket", "Status", "Site"})
	for _, r := range sorted {
		t.AppendRow(table.Row{r.Date.UTC().Format("2006-01-02"), r.Name, r.RocketName, Status(r), r.LaunchSite})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 30},
		{Number: 3, WidthMax: 15},
		{Number: 5, WidthMax: 20},
	})
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d launches", len(sorted))})
	p.render("LAUNCH LIST", t)
}

// SuccessRates prints the success rate of every rocket, best first.
func (p *Printer) SuccessRates(records []tracker.LaunchRecord) {
	rates := stats.SuccessRateByRocket(records)
	if len(rates) == 0 {
		fmt.Fprintln(p.w, "No success rate data available.")
		return
	}
	names := make([]string, 0, len(rates))
	for name := range rates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := rates[names[i]], rates[names[j]]
		if a.Rate != b.Rate {
			return a.Rate > b.Rate
		}
		return names[i] < names[j]
	})

	t := p.newTable("SUCCESS RATES BY ROCKET")
	t.AppendHeader(table.Row{"Rocket", "Success Rate", "Successes", "Failures", "Unknown"})
	for _, name := range names {
		rr := rates[name]
		t.AppendRow(table.Row{name, Percent(rr.Rate), rr.Successes, rr.Failures, rr.Unknown})
	}
	t.SetColumnConfigs(rightAlign(2, 3, 4, 5))
	p.render("SUCCESS RATES BY ROCKET", t)
}

// Sites prints launch counts per site, busiest first.
func (p *Printer) Sites(records []tracker.LaunchRecord) {
	ranked := stats.Ranked(stats.CountsBySite(records))
	if len(ranked) == 0 {
		fmt.Fprintln(p.w, "No launch site data available.")
		return
	}
	t := p.newTable("LAUNCHES BY SITE")
	t.AppendHeader(table.Row{"Launch Site", "Launches"})
	for _, nc := range ranked {
		t.AppendRow(table.Row{nc.Name, nc.Count})
	}
	t.SetColumnConfigs(rightAlign(2))
	p.render("LAUNCHES BY SITE", t)
}

// TimeStats prints launches per year and per calendar month.
func (p *Printer) TimeStats(records []tracker.LaunchRecord) {
	p.periods("LAUNCHES BY YEAR", "Year", stats.CountsByPeriod(records, stats.Year))
	p.periods("LAUNCHES BY MONTH", "Month", stats.CountsByPeriod(records, stats.MonthOfYear))
	if trend := stats.SuccessTrendByYear(records); len(trend) > 0 {
		t := p.newTable("SUCCESS TREND BY YEAR")
		t.AppendHeader(table.Row{"Year", "Success Rate", "Successes", "Failures"})
		for _, yr := range trend {
			t.AppendRow(table.Row{yr.Year, Percent(yr.Rate), yr.Successes, yr.Failures})
		}
		t.SetColumnConfigs(rightAlign(2, 3, 4))
		p.render("SUCCESS TREND BY YEAR", t)
	}
}

func (p *Printer) periods(title, label string, counts []stats.PeriodCount) {
	t := p.newTable(title)
	t.AppendHeader(table.Row{label, "Launches"})
	for _, pc := range counts {
		t.AppendRow(table.Row{pc.Period, pc.Count})
	}
	t.SetColumnConfigs(rightAlign(2))
	p.render(title, t)
}

// Summary prints the headline numbers.
func (p *Printer) Summary(records []tracker.LaunchRecord) {
	s := stats.Summarize(records)
	t := p.newTable("LAUNCH SUMMARY")
	t.AppendRows([]table.Row{
		{"Total launches", s.Total},
		{"Upcoming launches", s.Upcoming},
		{"Completed launches", s.Completed},
		{"Successful launches", s.Successful},
		{"Failed launches", s.Failed},
		{"Overall success rate", Percent(s.SuccessRate)},
		{"Most used rocket", nameCount(s.MostUsed)},
		{"Busiest launch site", nameCount(s.BusiestSite)},
	})
	p.render("LAUNCH SUMMARY", t)
}

// CacheStatus prints one row per cached endpoint with its age and whether it
// is still served without a remote call.
func (p *Printer) CacheStatus(entries []cache.Entry, ttl time.Duration, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(p.w, "Cache is empty.")
		return
	}
	t := p.newTable("CACHE STATUS")
	t.AppendHeader(table.Row{"Endpoint", "Bytes", "Fetched (UTC)", "Age", "State"})
	for _, e := range entries {
		age := e.Age(now)
		state := "fresh"
		if age >= ttl {
			state = "stale"
		}
		t.AppendRow(table.Row{e.Key, len(e.Payload), e.FetchedAt.UTC().Format("2006-01-02 15:04:05"), age.Truncate(time.Second).String(), state})
	}
	t.SetColumnConfigs(rightAlign(2))
	p.render("CACHE STATUS", t)
}

// Status is the display label for a launch outcome.
func Status(r tracker.LaunchRecord) string {
	switch {
	case r.Success == spacex.OutcomeSuccess:
		return "SUCCESS"
	case r.Success == spacex.OutcomeFailure:
		return "FAILURE"
	case r.Upcoming:
		return "UPCOMING"
	default:
		return "UNKNOWN"
	}
}

// Percent formats a 0..1 rate as "97.5%".
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func nameCount(nc stats.NameCount) string {
	if nc.Name == "" {
		return "Unknown"
	}
	noun := "launches"
	if nc.Count == 1 {
		noun = "launch"
	}
	return fmt.Sprintf("%s (%d %s)", nc.Name, nc.Count, noun)
}

func rightAlign(cols ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	return cfgs
}

// ParseMode accepts table (or ascii) and markdown.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return ASCII, fmt.Errorf("unknown output mode %q", s)
	}
}
