package metrics

import (
	"context"
	"time"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
)

// CacheSnapshot is a point-in-time view of the on-disk cache.
type CacheSnapshot struct {
	Entries   int
	Bytes     int64
	OldestAge time.Duration
}

// SnapshotFunc reports the current cache state.
type SnapshotFunc func() (CacheSnapshot, error)

// Collector periodically samples the file cache into gauges.
type Collector struct {
	snapshot SnapshotFunc
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(snapshot SnapshotFunc, interval time.Duration) *Collector {
	return &Collector{
		snapshot: snapshot,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()

	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

// Collect takes one sample.
func (c *Collector) Collect() {
	snap, err := c.snapshot()
	if err != nil {
		logger.Warn("cache metrics collection failed", "error", err)
		MetricsCollectionErrors.WithLabelValues("file_cache").Inc()
		// Signal stale data
		CacheEntries.Set(-1)
		CacheBytes.Set(-1)
		CacheOldestAge.Set(-1)
		return
	}
	CacheEntries.Set(float64(snap.Entries))
	CacheBytes.Set(float64(snap.Bytes))
	CacheOldestAge.Set(snap.OldestAge.Seconds())
}
