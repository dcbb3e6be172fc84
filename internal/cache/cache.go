package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultTTL is how long an entry is served without a remote call.
	DefaultTTL = time.Hour
	// DefaultMaxAge is the age past which PurgeStale deletes an entry.
	DefaultMaxAge = 24 * time.Hour
)

// Store caches endpoint payloads with the time they were fetched.
type Store interface {
	// Get returns the entry for key if it is younger than the store TTL.
	// Stale entries report not found and are left in place. A non-nil error
	// is always a *ReadError and callers treat it as a miss.
	Get(key string) (Entry, bool, error)

	// Peek returns the entry for key regardless of its age.
	Peek(key string) (Entry, bool, error)

	// Put overwrites any existing entry and stamps it with the current time.
	Put(key string, payload []byte) (Entry, error)

	// Invalidate removes the entry for key. Missing keys are not an error.
	Invalidate(key string) error

	// PurgeStale removes every entry older than maxAge and reports how many.
	PurgeStale(maxAge time.Duration) (int, error)

	// ClearAll removes every entry and reports how many.
	ClearAll() (int, error)

	// List returns every readable entry ordered by key.
	List() ([]Entry, error)

	// Stats summarizes the current contents.
	Stats() (Stats, error)
}

// Entry is one cached payload.
type Entry struct {
	Key       string
	Payload   json.RawMessage
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Stats represents cache statistics.
type Stats struct {
	Entries int       `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
}

// ReadError reports a cache entry that exists but cannot be used.
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cache read %q: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed cache write. It is never fatal to a fetch.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cache write %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
