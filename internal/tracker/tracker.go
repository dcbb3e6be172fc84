package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/onnwee/spacex-launch-tracker/internal/errorreporting"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
)

// Source is the subset of the API client the tracker needs.
type Source interface {
	Launches(ctx context.Context, forceRefresh bool) ([]spacex.Launch, error)
	Rockets(ctx context.Context, forceRefresh bool) ([]spacex.Rocket, error)
	Launchpads(ctx context.Context, forceRefresh bool) ([]spacex.Launchpad, error)
}

// LaunchRecord is a launch with its rocket and launch site resolved.
type LaunchRecord struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Date         time.Time      `json:"date" yaml:"date"`
	DateUnix     int64          `json:"date_unix" yaml:"date_unix"`
	FlightNumber int            `json:"flight_number" yaml:"flight_number"`
	Upcoming     bool           `json:"upcoming" yaml:"upcoming"`
	RocketID     string         `json:"rocket_id,omitempty" yaml:"rocket_id,omitempty"`
	RocketName   string         `json:"rocket_name" yaml:"rocket_name"`
	LaunchpadID  string         `json:"launchpad_id,omitempty" yaml:"launchpad_id,omitempty"`
	LaunchSite   string         `json:"launch_site" yaml:"launch_site"`
	Success      spacex.Outcome `json:"success" yaml:"success"`
	Details      string         `json:"details,omitempty" yaml:"details,omitempty"`
}

// Snapshot is the result of the last successful load.
type Snapshot struct {
	Records    []LaunchRecord
	Rockets    []spacex.Rocket
	Launchpads []spacex.Launchpad
	LoadedAt   time.Time
	// Partial is set when reference data could not be loaded and names are unresolved.
	Partial bool
}

// Tracker loads launches with their reference data and keeps the last result.
type Tracker struct {
	src   Source
	clock clockwork.Clock
	log   *slog.Logger
	group singleflight.Group

	mu   sync.RWMutex
	last Snapshot
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock used for LoadedAt.
func WithClock(c clockwork.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// New returns a tracker reading from src.
func New(src Source, opts ...Option) *Tracker {
	t := &Tracker{
		src:   src,
		clock: clockwork.NewRealClock(),
		log:   logger.WithComponent("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load fetches rockets, launchpads and launches in that order and returns the
// resolved records. Reference data failures are logged and leave names
// unresolved; a launches failure fails the call. Concurrent callers share one
// in-flight load per refresh mode, and each may give up through its own ctx.
func (t *Tracker) Load(ctx context.Context, forceRefresh bool) ([]LaunchRecord, error) {
	key := "load"
	if forceRefresh {
		key = "refresh"
	}
	// The shared load must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := t.group.DoChan(key, func() (any, error) {
		return t.load(shared, forceRefresh)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		snap := res.Val.(Snapshot)
		return slices.Clone(snap.Records), nil
	}
}

func (t *Tracker) load(ctx context.Context, forceRefresh bool) (Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "tracker.Load")
	defer span.End()
	span.SetAttributes(attribute.Bool("tracker.force_refresh", forceRefresh))

	var snap Snapshot
	rockets, err := t.src.Rockets(ctx, forceRefresh)
	if err != nil {
		snap.Partial = true
		t.log.WarnContext(ctx, "failed to load rockets; rocket names unresolved", "error", err)
		errorreporting.AddBreadcrumb("tracker", "rockets unavailable: "+err.Error(), sentry.LevelWarning)
	}
	pads, err := t.src.Launchpads(ctx, forceRefresh)
	if err != nil {
		snap.Partial = true
		t.log.WarnContext(ctx, "failed to load launchpads; launch sites unresolved", "error", err)
		errorreporting.AddBreadcrumb("tracker", "launchpads unavailable: "+err.Error(), sentry.LevelWarning)
	}
	launches, err := t.src.Launches(ctx, forceRefresh)
	if err != nil {
		metrics.TrackerLoads.WithLabelValues("failed").Inc()
		tracing.Fail(span, err)
		return Snapshot{}, fmt.Errorf("load launches: %w", err)
	}

	snap.Records = BuildRecords(launches, rockets, pads)
	snap.Rockets = rockets
	snap.Launchpads = pads
	snap.LoadedAt = t.clock.Now()

	t.mu.Lock()
	t.last = snap
	t.mu.Unlock()

	status := "success"
	if snap.Partial {
		status = "partial"
	}
	metrics.TrackerLoads.WithLabelValues(status).Inc()
	metrics.LaunchesLoaded.Set(float64(len(snap.Records)))
	span.SetAttributes(attribute.Int("tracker.records", len(snap.Records)), attribute.Bool("tracker.partial", snap.Partial))
	t.log.InfoContext(ctx, "loaded launch data", "launches", len(snap.Records), "rockets", len(rockets), "launchpads", len(pads))
	return snap, nil
}

// Snapshot returns the last successful load. LoadedAt is zero before the first.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Rockets returns the rockets from the last load.
func (t *Tracker) Rockets() []spacex.Rocket {
	return slices.Clone(t.Snapshot().Rockets)
}

// Launchpads returns the launchpads from the last load.
func (t *Tracker) Launchpads() []spacex.Launchpad {
	return slices.Clone(t.Snapshot().Launchpads)
}

// BuildRecords joins launches with rocket and launchpad names, keeping
// launch order. Unknown references leave the name empty.
func BuildRecords(launches []spacex.Launch, rockets []spacex.Rocket, pads []spacex.Launchpad) []LaunchRecord {
	rocketNames := make(map[string]string, len(rockets))
	for _, r := range rockets {
		rocketNames[r.ID] = r.Name
	}
	padNames := make(map[string]string, len(pads))
	for _, p := range pads {
		padNames[p.ID] = p.Name
	}

	records := make([]LaunchRecord, 0, len(launches))
	for _, l := range launches {
		records = append(records, LaunchRecord{
			ID:           l.ID,
			Name:         l.Name,
			Date:         l.DateUTC,
			DateUnix:     l.DateUnix,
			FlightNumber: l.FlightNumber,
			Upcoming:     l.Upcoming,
			RocketID:     l.RocketID,
			RocketName:   rocketNames[l.RocketID],
			LaunchpadID:  l.LaunchpadID,
			LaunchSite:   padNames[l.LaunchpadID],
			Success:      l.Success,
			Details:      l.Details,
		})
	}
	return records
}
