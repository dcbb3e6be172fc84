package tracker

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
)

// ErrNotFound is returned when a record is neither loaded nor known upstream.
var ErrNotFound = errors.New("not found")

// Finder is implemented by sources that can fetch single records and the
// past or upcoming launch lists. The API client implements it.
type Finder interface {
	PastLaunches(ctx context.Context, forceRefresh bool) ([]spacex.Launch, error)
	UpcomingLaunches(ctx context.Context, forceRefresh bool) ([]spacex.Launch, error)
	LaunchByID(ctx context.Context, id string, forceRefresh bool) (spacex.Launch, error)
	RocketByID(ctx context.Context, id string, forceRefresh bool) (spacex.Rocket, error)
	LaunchpadByID(ctx context.Context, id string, forceRefresh bool) (spacex.Launchpad, error)
}

// API ids are Mongo object ids. Anything else is never sent upstream.
var objectID = regexp.MustCompile(`^[0-9a-f]{24}$`)

func (t *Tracker) finder(id string) (Finder, bool) {
	f, ok := t.src.(Finder)
	return f, ok && objectID.MatchString(id)
}

// Launch returns the launch with id from the last load, or fetches it when
// it is not there and the source is a Finder.
func (t *Tracker) Launch(ctx context.Context, id string) (LaunchRecord, error) {
	snap := t.Snapshot()
	for _, rec := range snap.Records {
		if rec.ID == id {
			return rec, nil
		}
	}
	f, ok := t.finder(id)
	if !ok {
		return LaunchRecord{}, ErrNotFound
	}

	ctx, span := tracing.StartSpan(ctx, "tracker.Launch")
	defer span.End()
	span.SetAttributes(attribute.String("launch.id", id))

	l, err := f.LaunchByID(ctx, id, false)
	if err != nil {
		tracing.Fail(span, err)
		return LaunchRecord{}, lookupErr("launch", id, err)
	}
	t.log.DebugContext(ctx, "launch fetched outside the loaded snapshot", "id", id)
	return BuildRecords([]spacex.Launch{l}, snap.Rockets, snap.Launchpads)[0], nil
}

// Rocket returns the rocket with id from the last load, or fetches it.
func (t *Tracker) Rocket(ctx context.Context, id string) (spacex.Rocket, error) {
	for _, r := range t.Snapshot().Rockets {
		if r.ID == id {
			return r, nil
		}
	}
	f, ok := t.finder(id)
	if !ok {
		return spacex.Rocket{}, ErrNotFound
	}
	r, err := f.RocketByID(ctx, id, false)
	if err != nil {
		return spacex.Rocket{}, lookupErr("rocket", id, err)
	}
	return r, nil
}

// Launchpad returns the launchpad with id from the last load, or fetches it.
func (t *Tracker) Launchpad(ctx context.Context, id string) (spacex.Launchpad, error) {
	for _, p := range t.Snapshot().Launchpads {
		if p.ID == id {
			return p, nil
		}
	}
	f, ok := t.finder(id)
	if !ok {
		return spacex.Launchpad{}, ErrNotFound
	}
	p, err := f.LaunchpadByID(ctx, id, false)
	if err != nil {
		return spacex.Launchpad{}, lookupErr("launchpad", id, err)
	}
	return p, nil
}

// LaunchSubset returns the upcoming or the past launches with names resolved
// from the last load. A Finder source is asked for its own list; otherwise
// the loaded records are split on their upcoming flag.
func (t *Tracker) LaunchSubset(ctx context.Context, upcoming bool) ([]LaunchRecord, error) {
	snap := t.Snapshot()
	f, ok := t.src.(Finder)
	if !ok {
		out := []LaunchRecord{}
		for _, rec := range snap.Records {
			if rec.Upcoming == upcoming {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	fetch, name := f.PastLaunches, "past"
	if upcoming {
		fetch, name = f.UpcomingLaunches, "upcoming"
	}
	ctx, span := tracing.StartSpan(ctx, "tracker.LaunchSubset")
	defer span.End()
	span.SetAttributes(attribute.String("tracker.subset", name))

	launches, err := fetch(ctx, false)
	if err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("load %s launches: %w", name, err)
	}
	return BuildRecords(launches, snap.Rockets, snap.Launchpads), nil
}

// lookupErr turns an upstream 404 into ErrNotFound.
func lookupErr(kind, id string, err error) error {
	var fe *spacex.FetchError
	if errors.As(err, &fe) && fe.Type() == spacex.ErrorNotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("fetch %s %s: %w", kind, id, err)
}
