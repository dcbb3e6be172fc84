package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrInvalidKey is returned for keys that do not map to a file name.
var ErrInvalidKey = errors.New("invalid cache key")

const fileExt = ".json"

// envelope is the on-disk layout of one cache file.
type envelope struct {
	Key       string          `json:"key,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// FileStore keeps one JSON file per key under a root directory.
// It does no locking; concurrent processes sharing a root race with
// last-writer-wins semantics.
type FileStore struct {
	root  string
	ttl   time.Duration
	clock clockwork.Clock
}

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	ttl   time.Duration
	clock clockwork.Clock
}

// WithTTL sets the freshness window used by Get. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *storeOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *storeOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{ttl: DefaultTTL, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFileStore creates root if needed and returns a store rooted there.
func NewFileStore(root string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	o := buildOptions(opts)
	return &FileStore{root: root, ttl: o.ttl, clock: o.clock}, nil
}

// Root returns the cache directory.
func (s *FileStore) Root() string { return s.root }

// TTL returns the freshness window.
func (s *FileStore) TTL() time.Duration { return s.ttl }

// FileName maps an endpoint key such as "launches/past" to "launches_past.json".
func FileName(key string) (string, error) {
	name := strings.Trim(strings.ReplaceAll(key, "/", "_"), "_")
	if name == "" || strings.ContainsAny(name, `\`) || name == "." || name == ".." {
		return "", ErrInvalidKey
	}
	return name + fileExt, nil
}

func (s *FileStore) path(key string) (string, error) {
	name, err := FileName(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, name), nil
}

func (s *FileStore) Get(key string) (Entry, bool, error) {
	e, ok, err := s.Peek(key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if e.Age(s.clock.Now()) >= s.ttl {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *FileStore) Peek(key string) (Entry, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return Entry{}, false, &ReadError{Key: key, Err: err}
	}
	env, err := readEnvelope(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, &ReadError{Key: key, Err: err}
	}
	if env.FetchedAt.After(s.clock.Now()) {
		return Entry{}, false, &ReadError{Key: key, Err: fmt.Errorf("fetched_at %s is in the future", env.FetchedAt.Format(time.RFC3339))}
	}
	return Entry{Key: key, Payload: env.Payload, FetchedAt: env.FetchedAt}, true, nil
}

func readEnvelope(path string) (envelope, error) {
	var env envelope
	b, err := os.ReadFile(path)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return env, errors.New("envelope has no payload")
	}
	if env.FetchedAt.IsZero() {
		return env, errors.New("envelope has no fetched_at")
	}
	return env, nil
}

func (s *FileStore) Put(key string, payload []byte) (Entry, error) {
	p, err := s.path(key)
	if err != nil {
		return Entry{}, &WriteError{Key: key, Err: err}
	}
	now := s.clock.Now().UTC()
	raw := append(json.RawMessage(nil), payload...)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep payload bytes exactly as given.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{Key: key, FetchedAt: now, Payload: raw}); err != nil {
		return Entry{}, &WriteError{Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return Entry{}, &WriteError{Key: key, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Entry{}, &WriteError{Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Entry{}, &WriteError{Key: key, Err: err}
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return Entry{}, &WriteError{Key: key, Err: err}
	}
	return Entry{Key: key, Payload: raw, FetchedAt: now}, nil
}

func (s *FileStore) Invalidate(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
	}
	return nil
}

// cacheFile is one *.json file found under the root.
type cacheFile struct {
	path      string
	size      int64
	fetchedAt time.Time // from the envelope, or mtime when unreadable
	env       *envelope // nil when unreadable
}

func (s *FileStore) scan() ([]cacheFile, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}
	var files []cacheFile
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		f := cacheFile{
			path:      filepath.Join(s.root, d.Name()),
			size:      info.Size(),
			fetchedAt: info.ModTime(),
		}
		if env, err := readEnvelope(f.path); err == nil {
			f.env = &env
			f.fetchedAt = env.FetchedAt
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *FileStore) PurgeStale(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	files, err := s.scan()
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	removed := 0
	var errs []error
	for _, f := range files {
		if now.Sub(f.fetchedAt) <= maxAge {
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *FileStore) ClearAll() (int, error) {
	files, err := s.scan()
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// List returns the readable entries ordered by key.
func (s *FileStore) List() ([]Entry, error) {
	files, err := s.scan()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, f := range files {
		if f.env == nil {
			continue
		}
		key := f.env.Key
		if key == "" {
			key = strings.TrimSuffix(filepath.Base(f.path), fileExt)
		}
		entries = append(entries, Entry{Key: key, Payload: f.env.Payload, FetchedAt: f.env.FetchedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *FileStore) Stats() (Stats, error) {
	files, err := s.scan()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, f := range files {
		st.Entries++
		st.Bytes += f.size
		if st.Oldest.IsZero() || f.fetchedAt.Before(st.Oldest) {
			st.Oldest = f.fetchedAt
		}
		if f.fetchedAt.After(st.Newest) {
			st.Newest = f.fetchedAt
		}
	}
	return st, nil
}
