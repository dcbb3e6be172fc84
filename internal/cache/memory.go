package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// errFutureEntry mirrors the FileStore check on fetched_at.
var errFutureEntry = errors.New("fetched_at is in the future")

// MemoryStore is a map-backed Store for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]Entry
	ttl   time.Duration
	clock clockwork.Clock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		data:  make(map[string]Entry),
		ttl:   o.ttl,
		clock: o.clock,
	}
}

func (m *MemoryStore) Get(key string) (Entry, bool, error) {
	e, ok, err := m.Peek(key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if e.Age(m.clock.Now()) >= m.ttl {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *MemoryStore) Peek(key string) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if ok && e.FetchedAt.After(m.clock.Now()) {
		return Entry{}, false, &ReadError{Key: key, Err: errFutureEntry}
	}
	return e, ok, nil
}

func (m *MemoryStore) Put(key string, payload []byte) (Entry, error) {
	e := Entry{Key: key, Payload: append([]byte(nil), payload...), FetchedAt: m.clock.Now().UTC()}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return e, nil
}

// Seed stores an entry with an explicit timestamp.
func (m *MemoryStore) Seed(key string, payload []byte, fetchedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = Entry{Key: key, Payload: append([]byte(nil), payload...), FetchedAt: fetchedAt}
}

func (m *MemoryStore) Invalidate(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PurgeStale(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.data {
		if e.Age(now) > maxAge {
			delete(m.data, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) ClearAll() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.data)
	m.data = make(map[string]Entry)
	return n, nil
}

func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.data))
	for _, e := range m.data {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (m *MemoryStore) Stats() (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st Stats
	for _, e := range m.data {
		st.Entries++
		st.Bytes += int64(len(e.Payload))
		if st.Oldest.IsZero() || e.FetchedAt.Before(st.Oldest) {
			st.Oldest = e.FetchedAt
		}
		if e.FetchedAt.After(st.Newest) {
			st.Newest = e.FetchedAt
		}
	}
	return st, nil
}
