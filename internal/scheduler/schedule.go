package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule computes the next run time for a named or "@every" expression.
type Schedule struct {
	expr  string
	every time.Duration
}

// Parse accepts @hourly, @daily, @weekly, @monthly and "@every <duration>",
// where duration is a Go duration or a whole number of days such as "7d".
func Parse(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "@hourly", "@daily", "@weekly", "@monthly":
		return Schedule{expr: expr}, nil
	}
	if rest, ok := strings.CutPrefix(expr, "@every "); ok {
		d, err := parseEvery(strings.TrimSpace(rest))
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{expr: expr, every: d}, nil
	}
	return Schedule{}, fmt.Errorf("unsupported schedule %q: use @hourly, @daily, @weekly, @monthly or @every <duration>", expr)
}

func parseEvery(s string) (time.Duration, error) {
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		if d, err = time.ParseDuration(s); err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	}
	if d < time.Minute {
		return 0, fmt.Errorf("interval %s is shorter than a minute", d)
	}
	return d, nil
}

// String returns the expression the schedule was parsed from.
func (s Schedule) String() string { return s.expr }

// Next returns the first run time strictly after t. Named schedules fire at
// the start of the next hour, day, week (Sunday) or month in t's location.
func (s Schedule) Next(t time.Time) time.Time {
	if s.every > 0 {
		return t.Add(s.every)
	}
	switch s.expr {
	case "@hourly":
		return t.Add(time.Hour).Truncate(time.Hour)
	case "@daily":
		return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
	case "@weekly":
		days := (7 - int(t.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	}
}
