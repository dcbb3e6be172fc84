// Package scheduler runs a job on a fixed schedule. The dashboard uses it to
// reload launch data so pages stay current without a request paying for it.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
)

// Job is one scheduled run. Errors are logged and the schedule continues.
type Job func(ctx context.Context) error

// Refresher runs a job each time its schedule fires.
type Refresher struct {
	schedule Schedule
	job      Job
	clock    clockwork.Clock
	log      *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRefresher creates a refresher; a nil clock means the wall clock.
func NewRefresher(s Schedule, job Job, clock clockwork.Clock) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{
		schedule: s,
		job:      job,
		clock:    clock,
		log:      logger.WithComponent("scheduler"),
		stop:     make(chan struct{}),
	}
}

// Start blocks, running the job at each scheduled time until ctx is done or
// Stop is called. The first run happens at the first scheduled time, not
// immediately.
func (r *Refresher) Start(ctx context.Context) {
	r.log.Info("scheduled refresh started", "schedule", r.schedule.String())
	for {
		now := r.clock.Now()
		next := r.schedule.Next(now)
		timer := r.clock.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}

		r.run(ctx)
	}
}

func (r *Refresher) run(ctx context.Context) {
	start := r.clock.Now()
	if err := r.job(ctx); err != nil {
		r.log.Warn("scheduled refresh failed", "error", err)
		return
	}
	r.log.Info("scheduled refresh done", "duration", r.clock.Since(start))
}

// Stop ends Start. It is safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
