// Package filter selects launch records by date range, rocket, launch site
// and outcome. All functions are pure and keep the input order.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// DateLayout is the accepted format for date bounds.
const DateLayout = "2006-01-02"

// ErrInvalidOutcome is returned by ParseOutcome for anything but yes or no.
var ErrInvalidOutcome = errors.New("success must be yes or no")

// Criteria holds optional constraints; every set field must match.
type Criteria struct {
	// Start and End are calendar days, both inclusive.
	Start *time.Time
	End   *time.Time
	// Rocket and Site match case-insensitive substrings of the resolved names.
	Rocket string
	Site   string
	// Success matches launches with that outcome. Launches with an unknown
	// outcome never match.
	Success *spacex.Outcome
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return c.Start == nil && c.End == nil && strings.TrimSpace(c.Rocket) == "" &&
		strings.TrimSpace(c.Site) == "" && c.Success == nil
}

// Match reports whether r satisfies every set constraint.
func (c Criteria) Match(r tracker.LaunchRecord) bool {
	if c.Start != nil && r.Date.Before(startOfDay(*c.Start)) {
		return false
	}
	if c.End != nil && !r.Date.Before(startOfDay(*c.End).AddDate(0, 0, 1)) {
		return false
	}
	if !containsFold(r.RocketName, c.Rocket) || !containsFold(r.LaunchSite, c.Site) {
		return false
	}
	if c.Success != nil && (r.Success == spacex.OutcomeUnknown || r.Success != *c.Success) {
		return false
	}
	return true
}

// Apply returns the records matching c in their original order. Applying
// the same criteria to the result returns it unchanged.
func Apply(records []tracker.LaunchRecord, c Criteria) []tracker.LaunchRecord {
	return Where(records, c.Match)
}

// Where returns the records for which keep reports true.
func Where(records []tracker.LaunchRecord, keep func(tracker.LaunchRecord) bool) []tracker.LaunchRecord {
	out := make([]tracker.LaunchRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseDate parses a YYYY-MM-DD day in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseOutcome maps "yes" and "no" to success and failure.
func ParseOutcome(s string) (spacex.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "success":
		return spacex.OutcomeSuccess, nil
	case "no", "false", "failure":
		return spacex.OutcomeFailure, nil
	default:
		return spacex.OutcomeUnknown, ErrInvalidOutcome
	}
}

// Parse builds criteria from the textual form shared by the CLI flags and
// dashboard query parameters. Empty strings leave a constraint unset.
func Parse(start, end, rocket, success, site string) (Criteria, error) {
	c := Criteria{Rocket: strings.TrimSpace(rocket), Site: strings.TrimSpace(site)}
	if strings.TrimSpace(start) != "" {
		t, err := ParseDate(start)
		if err != nil {
			return Criteria{}, fmt.Errorf("start date: %w", err)
		}
		c.Start = &t
	}
	if strings.TrimSpace(end) != "" {
		t, err := ParseDate(end)
		if err != nil {
			return Criteria{}, fmt.Errorf("end date: %w", err)
		}
		c.End = &t
	}
	if c.Start != nil && c.End != nil && c.End.Before(*c.Start) {
		return Criteria{}, fmt.Errorf("end date %s is before start date %s", c.End.Format(DateLayout), c.Start.Format(DateLayout))
	}
	if strings.TrimSpace(success) != "" {
		o, err := ParseOutcome(success)
		if err != nil {
			return Criteria{}, err
		}
		c.Success = &o
	}
	return c, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
