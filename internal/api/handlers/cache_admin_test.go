package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/cache"
)

// fakeCacheControl records calls against an in-memory store.
type fakeCacheControl struct {
	store   *cache.MemoryStore
	cleared []string
	failAll bool
}

func (f *fakeCacheControl) ClearCache(endpoint string) error {
	f.cleared = append(f.cleared, endpoint)
	return f.store.Invalidate(endpoint)
}

func (f *fakeCacheControl) ClearAll() (int, error) {
	if f.failAll {
		return 0, errors.New("permission denied")
	}
	return f.store.ClearAll()
}

func (f *fakeCacheControl) Store() cache.Store { return f.store }

func newAdminFixture(t *testing.T) (*CacheAdminHandler, *fakeCacheControl, *cache.ResponseCache, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store := cache.NewMemoryStore(cache.WithClock(clock))
	store.Seed("/launches", []byte(`[{"id":"a"}]`), clock.Now().Add(-90*time.Second))
	store.Seed("/rockets", []byte(`[]`), clock.Now().Add(-10*time.Second))

	responses, err := cache.NewResponseCache(1, 100, time.Minute)
	if err != nil {
		t.Fatalf("response cache: %v", err)
	}
	t.Cleanup(responses.Close)

	files := &fakeCacheControl{store: store}
	h := NewCacheAdminHandler(files, responses)
	h.now = clock.Now
	return h, files, responses, clock
}

func TestInvalidateCache_Endpoint(t *testing.T) {
	h, files, responses, _ := newAdminFixture(t)
	responses.Set("/api/launches", "application/json", []byte(`{}`))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", bytes.NewBufferString(`{"endpoint":"/launches"}`))
	rr := httptest.NewRecorder()
	h.InvalidateCache(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(files.cleared) != 1 || files.cleared[0] != "/launches" {
		t.Errorf("unexpected cleared endpoints %v", files.cleared)
	}
	if _, ok, _ := files.store.Peek("/rockets"); !ok {
		t.Error("other endpoints should stay cached")
	}
	if _, ok := responses.Get("/api/launches"); ok {
		t.Error("rendered responses should be dropped")
	}
}

func TestInvalidateCache_All(t *testing.T) {
	h, files, _, _ := newAdminFixture(t)

	rr := httptest.NewRecorder()
	h.InvalidateCache(rr, httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["removed"] != float64(2) {
		t.Errorf("removed = %v, want 2", out["removed"])
	}
	if entries, _ := files.store.List(); len(entries) != 0 {
		t.Errorf("expected empty store, got %d entries", len(entries))
	}
}

func TestInvalidateCache_Errors(t *testing.T) {
	h, files, _, _ := newAdminFixture(t)

	rr := httptest.NewRecorder()
	h.InvalidateCache(rr, httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", bytes.NewBufferString(`{not json`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != apierr.ErrValidationInvalidJSON {
		t.Errorf("code = %s", code)
	}

	files.failAll = true
	rr = httptest.NewRecorder()
	h.InvalidateCache(rr, httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", bytes.NewBufferString(`{}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != apierr.ErrCacheFailed {
		t.Errorf("code = %s", code)
	}
}

func TestGetCacheStats(t *testing.T) {
	h, _, _, _ := newAdminFixture(t)

	rr := httptest.NewRecorder()
	h.GetCacheStats(rr, httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out CacheStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Files.Entries != 2 || len(out.Entries) != 2 {
		t.Fatalf("expected 2 entries, got files=%d list=%d", out.Files.Entries, len(out.Entries))
	}
	launches := out.Entries[0]
	if launches.Endpoint != "/launches" || launches.AgeSeconds != 90 || launches.Bytes != len(`[{"id":"a"}]`) {
		t.Errorf("unexpected entry %+v", launches)
	}
	if out.Responses == nil {
		t.Error("expected response cache stats")
	}
}
