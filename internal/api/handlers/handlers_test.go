package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// fakeData implements LaunchData for testing.
type fakeData struct {
	records  []tracker.LaunchRecord
	rockets  []spacex.Rocket
	pads     []spacex.Launchpad
	loadedAt time.Time
	partial  bool
	err      error

	loads  int
	forced int
}

func (f *fakeData) Load(ctx context.Context, forceRefresh bool) ([]tracker.LaunchRecord, error) {
	f.loads++
	if forceRefresh {
		f.forced++
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.loadedAt.IsZero() {
		f.loadedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}
	return append([]tracker.LaunchRecord(nil), f.records...), nil
}

func (f *fakeData) Snapshot() tracker.Snapshot {
	return tracker.Snapshot{Records: f.records, Rockets: f.rockets, Launchpads: f.pads, LoadedAt: f.loadedAt, Partial: f.partial}
}

func (f *fakeData) Rockets() []spacex.Rocket       { return f.rockets }
func (f *fakeData) Launchpads() []spacex.Launchpad { return f.pads }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func sampleData() *fakeData {
	return &fakeData{
		records: []tracker.LaunchRecord{
			{ID: "fh-1", Name: "Arabsat-6A", Date: day(2019, 4, 11), RocketName: "Falcon Heavy", LaunchSite: "KSC LC 39A", Success: spacex.OutcomeSuccess},
			{ID: "f9-1", Name: "Starlink-2", Date: day(2020, 1, 7), RocketName: "Falcon 9", LaunchSite: "CCSFS SLC 40", Success: spacex.OutcomeSuccess},
			{ID: "f9-2", Name: "Starlink-8", Date: day(2020, 6, 13), RocketName: "Falcon 9", LaunchSite: "KSC LC 39A", Success: spacex.OutcomeFailure},
			{ID: "up-1", Name: "Crew-12", Date: day(2030, 1, 1), Upcoming: true, RocketName: "Falcon 9", LaunchSite: "KSC LC 39A"},
		},
		rockets: []spacex.Rocket{{ID: "r1", Name: "Falcon 9"}, {ID: "r2", Name: "Falcon Heavy"}},
		pads:    []spacex.Launchpad{{ID: "p1", Name: "KSC LC 39A"}, {ID: "p2", Name: "CCSFS SLC 40"}},
	}
}

func serve(h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *apierr.Error {
	t.Helper()
	var resp apierr.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error == nil {
		t.Fatalf("missing error object in %q", rr.Body.String())
	}
	return resp.Error
}

func launchIDs(records []tracker.LaunchRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestGetLaunches_Filters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"fh-1", "f9-1", "f9-2", "up-1"}},
		{"rocket substring", "?rocket=falcon+9", []string{"f9-1", "f9-2", "up-1"}},
		{"date range inclusive", "?start_date=2020-01-07&end_date=2020-06-13", []string{"f9-1", "f9-2"}},
		{"success yes", "?success=yes", []string{"fh-1", "f9-1"}},
		{"success no", "?success=no", []string{"f9-2"}},
		{"site", "?site=39a&rocket=heavy", []string{"fh-1"}},
		{"nothing matches", "?rocket=Starship", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(GetLaunches(sampleData()), http.MethodGet, "/api/launches"+tt.query)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var out LaunchList
			if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Count != len(tt.want) {
				t.Errorf("count = %d, want %d", out.Count, len(tt.want))
			}
			if diff := cmp.Diff(tt.want, launchIDs(out.Launches)); diff != "" {
				t.Errorf("launch ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetLaunches_InvalidFilters(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  apierr.ErrorCode
		wantField string
	}{
		{"?start_date=2020-13-01", apierr.ErrFilterInvalidDate, "start_date"},
		{"?end_date=yesterday", apierr.ErrFilterInvalidDate, "end_date"},
		{"?success=maybe", apierr.ErrFilterInvalidOutcome, ""},
		{"?start_date=2021-01-01&end_date=2020-01-01", apierr.ErrFilterInvalidParams, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			data := sampleData()
			rr := serve(GetLaunches(data), http.MethodGet, "/api/launches"+tt.query)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			apiErr := decodeError(t, rr)
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", apiErr.Code, tt.wantCode)
			}
			if tt.wantField != "" && apiErr.Details["field"] != tt.wantField {
				t.Errorf("field = %v, want %s", apiErr.Details["field"], tt.wantField)
			}
			if data.loads != 0 {
				t.Errorf("invalid filters should not load data, got %d loads", data.loads)
			}
		})
	}
}

func TestGetLaunches_LoadFailure(t *testing.T) {
	data := &fakeData{err: &spacex.FetchError{Endpoint: "/launches", StatusCode: http.StatusInternalServerError}}
	rr := serve(GetLaunches(data), http.MethodGet, "/api/launches")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != apierr.ErrUpstreamUnavailable {
		t.Errorf("code = %s, want %s", code, apierr.ErrUpstreamUnavailable)
	}
}

func TestGetLaunch(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/launches/{id}", GetLaunch(sampleData(), nil))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/launches/f9-2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rec tracker.LaunchRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Name != "Starlink-8" || rec.Success != spacex.OutcomeFailure {
		t.Errorf("unexpected launch %+v", rec)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/launches/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != apierr.ErrLaunchNotFound {
		t.Errorf("code = %s, want %s", code, apierr.ErrLaunchNotFound)
	}
}

// fakeLookup serves one extra launch and fails rockets.
type fakeLookup struct {
	extra  tracker.LaunchRecord
	subset []tracker.LaunchRecord
	asked  []string
}

func (f *fakeLookup) Launch(ctx context.Context, id string) (tracker.LaunchRecord, error) {
	f.asked = append(f.asked, id)
	if id == f.extra.ID {
		return f.extra, nil
	}
	return tracker.LaunchRecord{}, tracker.ErrNotFound
}

func (f *fakeLookup) Rocket(ctx context.Context, id string) (spacex.Rocket, error) {
	return spacex.Rocket{}, &spacex.FetchError{Endpoint: "/rockets/" + id, StatusCode: 503, Err: errors.New("down")}
}

func (f *fakeLookup) Launchpad(ctx context.Context, id string) (spacex.Launchpad, error) {
	if id == "p9" {
		return spacex.Launchpad{ID: "p9", Name: "VAFB SLC 4E"}, nil
	}
	return spacex.Launchpad{}, fmt.Errorf("launchpad %s: %w", id, tracker.ErrNotFound)
}

func (f *fakeLookup) LaunchSubset(ctx context.Context, upcoming bool) ([]tracker.LaunchRecord, error) {
	return f.subset, nil
}

func TestGetLaunch_Lookup(t *testing.T) {
	lookup := &fakeLookup{extra: tracker.LaunchRecord{ID: "old-1", Name: "FalconSat"}}
	r := mux.NewRouter()
	r.HandleFunc("/api/launches/{id}", GetLaunch(sampleData(), lookup))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/launches/old-1", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "FalconSat") {
		t.Fatalf("expected the looked up launch, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/launches/gone", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != apierr.ErrLaunchNotFound {
		t.Errorf("code = %s, want %s", code, apierr.ErrLaunchNotFound)
	}
	if diff := cmp.Diff([]string{"old-1", "gone"}, lookup.asked); diff != "" {
		t.Errorf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLaunchSubset(t *testing.T) {
	tests := []struct {
		name     string
		lookup   Lookup
		upcoming bool
		query    string
		want     []string
	}{
		{"past from loaded data", nil, false, "", []string{"fh-1", "f9-1", "f9-2"}},
		{"upcoming from loaded data", nil, true, "", []string{"up-1"}},
		{"past filtered", nil, false, "?rocket=heavy", []string{"fh-1"}},
		{"upcoming from lookup", &fakeLookup{subset: []tracker.LaunchRecord{{ID: "u7", Upcoming: true}}}, true, "", []string{"u7"}},
		{"lookup returns nothing", &fakeLookup{}, false, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(GetLaunchSubset(sampleData(), tt.lookup, tt.upcoming), http.MethodGet, "/api/launches/past"+tt.query)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var out LaunchList
			if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, launchIDs(out.Launches)); diff != "" {
				t.Errorf("launch ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	rr := serve(GetLaunchSubset(sampleData(), nil, true), http.MethodGet, "/api/launches/upcoming?success=maybe")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad filter, got %d", rr.Code)
	}
}

func TestGetReferenceByID(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/loaded/rockets/{id}", GetRocket(sampleData(), nil))
	r.HandleFunc("/loaded/launchpads/{id}", GetLaunchpad(sampleData(), nil))
	r.HandleFunc("/lookup/rockets/{id}", GetRocket(sampleData(), &fakeLookup{}))
	r.HandleFunc("/lookup/launchpads/{id}", GetLaunchpad(sampleData(), &fakeLookup{}))

	tests := []struct {
		target   string
		wantCode int
		wantBody string
	}{
		{"/loaded/rockets/r2", http.StatusOK, "Falcon Heavy"},
		{"/loaded/rockets/r9", http.StatusNotFound, string(apierr.ErrResourceNotFound)},
		{"/loaded/launchpads/p1", http.StatusOK, "KSC LC 39A"},
		{"/lookup/launchpads/p9", http.StatusOK, "VAFB SLC 4E"},
		{"/lookup/launchpads/p0", http.StatusNotFound, `"id":"p0"`},
		{"/lookup/rockets/r1", http.StatusBadGateway, string(apierr.ErrUpstreamUnavailable)},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReferenceData(t *testing.T) {
	data := sampleData()

	rr := serve(GetRockets(data), http.MethodGet, "/api/rockets")
	var rockets []spacex.Rocket
	if err := json.Unmarshal(rr.Body.Bytes(), &rockets); err != nil {
		t.Fatalf("decode rockets: %v", err)
	}
	if diff := cmp.Diff(data.rockets, rockets); diff != "" {
		t.Errorf("rockets mismatch (-want +got):\n%s", diff)
	}

	rr = serve(GetLaunchpads(&fakeData{}), http.MethodGet, "/api/launchpads")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array for missing launchpads, got %q", rr.Body.String())
	}
}

func TestRefresh(t *testing.T) {
	data := sampleData()
	cleared := 0
	rr := serve(Refresh(data, clearFunc(func() { cleared++ })), http.MethodPost, "/api/refresh")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if data.forced != 1 {
		t.Errorf("expected one forced load, got %d", data.forced)
	}
	if cleared != 1 {
		t.Errorf("expected response cache cleared once, got %d", cleared)
	}
	var out RefreshResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ok" || out.Launches != 4 {
		t.Errorf("unexpected refresh response %+v", out)
	}
}

func TestRefresh_FailureKeepsResponses(t *testing.T) {
	data := &fakeData{err: &spacex.FetchError{Endpoint: "/launches", StatusCode: http.StatusTooManyRequests}}
	cleared := 0
	rr := serve(Refresh(data, clearFunc(func() { cleared++ })), http.MethodPost, "/api/refresh")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if cleared != 0 {
		t.Error("a failed refresh should not drop cached responses")
	}
}

type clearFunc func()

func (f clearFunc) Clear() { f() }

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		data    *fakeData
		breaker BreakerReporter
		want    string
	}{
		{"before first load", &fakeData{}, nil, "starting"},
		{"loaded", &fakeData{loadedAt: time.Now()}, breakerState("closed"), "ok"},
		{"partial", &fakeData{loadedAt: time.Now(), partial: true}, nil, "degraded"},
		{"breaker open", &fakeData{loadedAt: time.Now()}, breakerState("open"), "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(Health(tt.data, tt.breaker), http.MethodGet, "/health")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			var out HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Status != tt.want {
				t.Errorf("status = %s, want %s", out.Status, tt.want)
			}
			if tt.data.loads != 0 {
				t.Error("health must not trigger a load")
			}
		})
	}
}

type breakerState string

func (b breakerState) BreakerState() string { return string(b) }
