package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/cache"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

func sample() []tracker.LaunchRecord {
	return []tracker.LaunchRecord{
		{Name: "Crew-9", Date: time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC), DateUnix: 1727481600, RocketName: "Falcon 9",
			LaunchSite: "CCSFS SLC 40", Upcoming: true},
		{Name: "FalconSat", Date: time.Date(2006, 3, 24, 0, 0, 0, 0, time.UTC), DateUnix: 1143158400, RocketName: "Falcon 1",
			LaunchSite: "Kwajalein Atoll", Success: spacex.OutcomeFailure},
		{Name: "CRS-1", Date: time.Date(2012, 10, 8, 0, 0, 0, 0, time.UTC), DateUnix: 1349654400, RocketName: "Falcon 9",
			LaunchSite: "CCSFS SLC 40", Success: spacex.OutcomeSuccess},
	}
}

func TestLaunchesSortedByDate(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, ASCII).Launches(sample())
	out := buf.String()

	first := strings.Index(out, "FalconSat")
	second := strings.Index(out, "CRS-1")
	third := strings.Index(out, "Crew-9")
	if first < 0 || second < 0 || third < 0 || !(first < second && second < third) {
		t.Fatalf("launches not in date order:\n%s", out)
	}
	// go-pretty upper-cases footers in the light style.
	for _, want := range []string{"FAILURE", "SUCCESS", "UPCOMING", "3 LAUNCHES"} {
		if !strings.Contains(strings.ToUpper(out), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLaunchesEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, ASCII).Launches(nil)
	if !strings.Contains(buf.String(), "No launches found") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSuccessRatesAndSummary(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, ASCII)
	p.SuccessRates(sample())
	p.Summary(sample())
	out := buf.String()
	for _, want := range []string{"100.0%", "0.0%", "50.0%", "Falcon 9 (2 launches)", "CCSFS SLC 40 (2 launches)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownMode(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Markdown).Sites(sample())
	out := buf.String()
	if !strings.Contains(out, "### LAUNCHES BY SITE") || !strings.Contains(out, "| CCSFS SLC 40 |") {
		t.Errorf("unexpected markdown output:\n%s", out)
	}
}

func TestTimeStats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, ASCII).TimeStats(sample())
	out := buf.String()
	for _, want := range []string{"2006", "2012", "2024", "MARCH", "OCTOBER", "SEPTEMBER"} {
		if !strings.Contains(strings.ToUpper(out), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatus(t *testing.T) {
	if got := Status(tracker.LaunchRecord{}); got != "UNKNOWN" {
		t.Errorf("Status(past unknown) = %q", got)
	}
	if _, err := ParseMode("html"); err == nil {
		t.Error("expected error")
	}
}

func TestCacheStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []cache.Entry{
		{Key: "/launches", Payload: []byte(`[1,2,3]`), FetchedAt: now.Add(-2 * time.Hour)},
		{Key: "/rockets", Payload: []byte(`[]`), FetchedAt: now.Add(-5 * time.Minute)},
	}
	var buf bytes.Buffer
	New(&buf, Markdown).CacheStatus(entries, time.Hour, now)
	out := buf.String()
	for _, want := range []string{"### CACHE STATUS", "| /launches | 7 |", "2h0m0s | stale", "5m0s | fresh"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	New(&buf, ASCII).CacheStatus(nil, time.Hour, now)
	if !strings.Contains(buf.String(), "Cache is empty") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
