// Package stats aggregates launch records. Results are recomputed on every
// call and never stored.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// RocketRate counts outcomes for one rocket. Rate is Successes over decided
// launches (successes plus failures) and 0 when none are decided.
type RocketRate struct {
	Successes int     `json:"successes" yaml:"successes"`
	Failures  int     `json:"failures" yaml:"failures"`
	Unknown   int     `json:"unknown" yaml:"unknown"`
	Rate      float64 `json:"rate" yaml:"rate"`
}

func (r *RocketRate) add(o spacex.Outcome) {
	switch o {
	case spacex.OutcomeSuccess:
		r.Successes++
	case spacex.OutcomeFailure:
		r.Failures++
	default:
		r.Unknown++
	}
}

func (r *RocketRate) finish() {
	r.Rate = rate(r.Successes, r.Failures)
}

// SuccessRateByRocket groups outcomes by rocket name. Records without a
// resolved rocket are skipped.
func SuccessRateByRocket(records []tracker.LaunchRecord) map[string]RocketRate {
	out := make(map[string]RocketRate)
	for _, r := range records {
		if r.RocketName == "" {
			continue
		}
		rr := out[r.RocketName]
		rr.add(r.Success)
		out[r.RocketName] = rr
	}
	for name, rr := range out {
		rr.finish()
		out[name] = rr
	}
	return out
}

// CountsBySite counts launches per resolved launch site.
func CountsBySite(records []tracker.LaunchRecord) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		if r.LaunchSite != "" {
			out[r.LaunchSite]++
		}
	}
	return out
}

// Granularity selects how CountsByPeriod buckets dates.
type Granularity int

const (
	// Year buckets by calendar year, labeled "2006".
	Year Granularity = iota
	// Month buckets by year and month, labeled "2006-01".
	Month
	// MonthOfYear folds all years together, labeled "January".
	MonthOfYear
)

func (g Granularity) String() string {
	switch g {
	case Month:
		return "month"
	case MonthOfYear:
		return "month_of_year"
	default:
		return "year"
	}
}

// ParseGranularity accepts year, month and month_of_year.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "year", "yearly":
		return Year, nil
	case "month", "monthly":
		return Month, nil
	case "month_of_year", "month-of-year", "moy":
		return MonthOfYear, nil
	default:
		return Year, fmt.Errorf("unknown granularity %q", s)
	}
}

// PeriodCount is one bucket of CountsByPeriod.
type PeriodCount struct {
	Period string `json:"period" yaml:"period"`
	Count  int    `json:"count" yaml:"count"`
}

// CountsByPeriod counts launches per period in chronological order. Empty
// periods are omitted.
func CountsByPeriod(records []tracker.LaunchRecord, g Granularity) []PeriodCount {
	counts := make(map[int]int)
	for _, r := range records {
		counts[periodOrdinal(r.Date.UTC(), g)]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]PeriodCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, PeriodCount{Period: periodLabel(k, g), Count: counts[k]})
	}
	return out
}

func periodOrdinal(t time.Time, g Granularity) int {
	switch g {
	case Month:
		return t.Year()*12 + int(t.Month()) - 1
	case MonthOfYear:
		return int(t.Month())
	default:
		return t.Year()
	}
}

func periodLabel(k int, g Granularity) string {
	switch g {
	case Month:
		return fmt.Sprintf("%04d-%02d", k/12, k%12+1)
	case MonthOfYear:
		return time.Month(k).String()
	default:
		return fmt.Sprintf("%04d", k)
	}
}

// NameCount pairs a rocket or site with its launch count.
type NameCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Ranked orders counts descending, ties by name.
func Ranked(counts map[string]int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MostLaunchedRocket returns the rocket with the most launches. ok is false
// when no record has a resolved rocket.
func MostLaunchedRocket(records []tracker.LaunchRecord) (NameCount, bool) {
	counts := make(map[string]int)
	for _, r := range records {
		if r.RocketName != "" {
			counts[r.RocketName]++
		}
	}
	return top(counts)
}

// BusiestSite returns the launch site with the most launches.
func BusiestSite(records []tracker.LaunchRecord) (NameCount, bool) {
	return top(CountsBySite(records))
}

func top(counts map[string]int) (NameCount, bool) {
	ranked := Ranked(counts)
	if len(ranked) == 0 {
		return NameCount{}, false
	}
	return ranked[0], true
}

// YearRate is the success rate of decided launches in one year.
type YearRate struct {
	Year      int     `json:"year" yaml:"year"`
	Successes int     `json:"successes" yaml:"successes"`
	Failures  int     `json:"failures" yaml:"failures"`
	Rate      float64 `json:"rate" yaml:"rate"`
}

// SuccessTrendByYear returns per-year success rates for years with at least
// one decided launch, oldest first.
func SuccessTrendByYear(records []tracker.LaunchRecord) []YearRate {
	byYear := make(map[int]*YearRate)
	for _, r := range records {
		if r.Upcoming || r.Success == spacex.OutcomeUnknown {
			continue
		}
		y := r.Date.UTC().Year()
		yr, ok := byYear[y]
		if !ok {
			yr = &YearRate{Year: y}
			byYear[y] = yr
		}
		if r.Success == spacex.OutcomeSuccess {
			yr.Successes++
		} else {
			yr.Failures++
		}
	}
	out := make([]YearRate, 0, len(byYear))
	for _, yr := range byYear {
		yr.Rate = rate(yr.Successes, yr.Failures)
		out = append(out, *yr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Summary is the headline view of a record set.
type Summary struct {
	Total       int       `json:"total_launches" yaml:"total_launches"`
	Upcoming    int       `json:"upcoming_launches" yaml:"upcoming_launches"`
	Completed   int       `json:"completed_launches" yaml:"completed_launches"`
	Successful  int       `json:"successful_launches" yaml:"successful_launches"`
	Failed      int       `json:"failed_launches" yaml:"failed_launches"`
	SuccessRate float64   `json:"success_rate" yaml:"success_rate"`
	MostUsed    NameCount `json:"most_used_rocket" yaml:"most_used_rocket"`
	BusiestSite NameCount `json:"busiest_launch_site" yaml:"busiest_launch_site"`
	First       time.Time `json:"first_launch,omitempty" yaml:"first_launch,omitempty"`
	Last        time.Time `json:"last_launch,omitempty" yaml:"last_launch,omitempty"`
}

// Summarize computes totals over records. SuccessRate follows the rocket
// rate rule: successes over decided launches.
func Summarize(records []tracker.LaunchRecord) Summary {
	var s Summary
	s.Total = len(records)
	for _, r := range records {
		if r.Upcoming {
			s.Upcoming++
		} else {
			s.Completed++
		}
		switch r.Success {
		case spacex.OutcomeSuccess:
			s.Successful++
		case spacex.OutcomeFailure:
			s.Failed++
		}
		if s.First.IsZero() || r.Date.Before(s.First) {
			s.First = r.Date
		}
		if r.Date.After(s.Last) {
			s.Last = r.Date
		}
	}
	s.SuccessRate = rate(s.Successful, s.Failed)
	if nc, ok := MostLaunchedRocket(records); ok {
		s.MostUsed = nc
	}
	if nc, ok := BusiestSite(records); ok {
		s.BusiestSite = nc
	}
	return s
}

func rate(successes, failures int) float64 {
	if successes+failures == 0 {
		return 0
	}
	return float64(successes) / float64(successes+failures)
}
