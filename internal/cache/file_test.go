package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

func newTestStore(t *testing.T) (*FileStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s, err := NewFileStore(t.TempDir(), WithClock(clock))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, clock
}

func TestFileName(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"launches", "launches.json", false},
		{"/launches/past", "launches_past.json", false},
		{"launches/5eb87cd9ffd86e000604b32a", "launches_5eb87cd9ffd86e000604b32a.json", false},
		{"", "", true},
		{"/", "", true},
		{`a\b`, "", true},
	}
	for _, tt := range tests {
		got, err := FileName(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("FileName(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFileStore_PutAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	payload := []byte(`[{"id":"a","details":"R&D <test>"}]`)

	if _, err := s.Put("launches", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, ok, err := s.Get("launches")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(e.Payload, payload) {
		t.Errorf("payload changed on round trip:\n got %s\nwant %s", e.Payload, payload)
	}

	if _, err := os.Stat(filepath.Join(s.Root(), "launches.json")); err != nil {
		t.Errorf("expected launches.json on disk: %v", err)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.Get("rockets")
	if ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestFileStore_PutOverwrites(t *testing.T) {
	s, clock := newTestStore(t)
	if _, err := s.Put("rockets", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Minute)
	if _, err := s.Put("rockets", []byte(`[2]`)); err != nil {
		t.Fatal(err)
	}
	e, ok, _ := s.Get("rockets")
	if !ok || string(e.Payload) != `[2]` {
		t.Fatalf("expected overwritten payload, got %s", e.Payload)
	}
	if !e.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", e.FetchedAt, clock.Now())
	}
}

func TestFileStore_ExpiryIsNotDeletion(t *testing.T) {
	s, clock := newTestStore(t)
	if _, err := s.Put("launches", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	clock.Advance(59 * time.Minute)
	if _, ok, _ := s.Get("launches"); !ok {
		t.Fatal("entry should still be fresh before the ttl")
	}

	clock.Advance(time.Minute)
	if _, ok, _ := s.Get("launches"); ok {
		t.Fatal("entry should be stale at exactly the ttl")
	}
	if _, ok, _ := s.Peek("launches"); !ok {
		t.Fatal("stale entry must stay on disk after Get")
	}
}

func TestFileStore_StaleButNotPurged(t *testing.T) {
	s, clock := newTestStore(t)
	if _, err := s.Put("launchpads", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(3 * time.Hour)

	if _, ok, _ := s.Get("launchpads"); ok {
		t.Fatal("entry older than 1h must be absent for serving")
	}
	n, err := s.PurgeStale(DefaultMaxAge)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("PurgeStale removed %d entries, want 0", n)
	}
	if _, ok, _ := s.Peek("launchpads"); !ok {
		t.Fatal("entry younger than 1 day must survive PurgeStale")
	}
}

func TestFileStore_PurgeStaleRemovesAllAndOnlyOld(t *testing.T) {
	s, clock := newTestStore(t)
	for _, k := range []string{"old1", "old2"} {
		if _, err := s.Put(k, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	clock.Advance(25 * time.Hour)
	for _, k := range []string{"fresh", "recent"} {
		if _, err := s.Put(k, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are never touched.
	other := filepath.Join(s.Root(), "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.PurgeStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n != 2 {
		t.Fatalf("PurgeStale removed %d, want 2", n)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	if diff := cmp.Diff([]string{"fresh", "recent"}, keys); diff != "" {
		t.Errorf("remaining keys mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("non-cache file was removed: %v", err)
	}
}

func TestFileStore_PurgeUsesMtimeForCorruptFiles(t *testing.T) {
	s, _ := newTestStore(t)
	p := filepath.Join(s.Root(), "broken.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The fake clock sits in 2024; push mtime two days before it.
	old := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(p, old, old); err != nil {
		t.Fatal(err)
	}
	n, err := s.PurgeStale(DefaultMaxAge)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected corrupt old file purged, removed %d", n)
	}
}

func TestFileStore_CorruptEntryIsReadError(t *testing.T) {
	s, _ := newTestStore(t)
	tests := map[string]string{
		"garbage":    "{not json",
		"no-payload": `{"fetched_at":"2024-03-01T11:00:00Z"}`,
		"no-time":    `{"payload":[1,2]}`,
		"future":     `{"fetched_at":"2030-01-01T00:00:00Z","payload":[]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(s.Root(), name+".json"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, ok, err := s.Get(name)
			if ok {
				t.Fatal("corrupt entry must not be served")
			}
			var re *ReadError
			if !errors.As(err, &re) {
				t.Fatalf("expected *ReadError, got %v", err)
			}
			if re.Key != name {
				t.Errorf("ReadError.Key = %q, want %q", re.Key, name)
			}
		})
	}
}

func TestFileStore_PutInvalidPayloadIsWriteError(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Put("launches", []byte(`{"unterminated"`))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if _, ok, _ := s.Peek("launches"); ok {
		t.Fatal("failed write must not leave an entry")
	}
}

func TestFileStore_PutUnwritableRoot(t *testing.T) {
	s, _ := newTestStore(t)
	if err := os.RemoveAll(s.Root()); err != nil {
		t.Fatal(err)
	}
	_, err := s.Put("launches", []byte(`[]`))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
}

func TestFileStore_InvalidateAndClearAll(t *testing.T) {
	s, _ := newTestStore(t)
	for _, k := range []string{"launches", "rockets", "launchpads"} {
		if _, err := s.Put(k, []byte(`[]`)); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Invalidate("rockets"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := s.Invalidate("rockets"); err != nil {
		t.Fatalf("Invalidate of a missing key should be a no-op: %v", err)
	}
	if _, ok, _ := s.Peek("rockets"); ok {
		t.Fatal("rockets should be gone")
	}

	n, err := s.ClearAll()
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("ClearAll removed %d, want 2", n)
	}
	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 0 {
		t.Fatalf("expected empty cache, got %d entries", st.Entries)
	}
}

func TestFileStore_Stats(t *testing.T) {
	s, clock := newTestStore(t)
	first := clock.Now()
	if _, err := s.Put("a", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Minute)
	if _, err := s.Put("b", []byte(`[2]`)); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 2 || st.Bytes == 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if !st.Oldest.Equal(first) || !st.Newest.Equal(clock.Now()) {
		t.Errorf("oldest/newest = %v/%v", st.Oldest, st.Newest)
	}
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatal("expected error for empty root")
	}
}
