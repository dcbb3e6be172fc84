package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/spacex-launch-tracker/internal/circuitbreaker"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
)

func TestNew(t *testing.T) {
	err := New(ErrSystemTimeout, "timeout occurred", http.StatusGatewayTimeout)
	if err.Code != ErrSystemTimeout {
		t.Errorf("expected code %s, got %s", ErrSystemTimeout, err.Code)
	}
	if err.Message != "timeout occurred" {
		t.Errorf("expected message 'timeout occurred', got '%s'", err.Message)
	}
	if err.Status() != http.StatusGatewayTimeout {
		t.Errorf("expected status %d, got %d", http.StatusGatewayTimeout, err.Status())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrValidationInvalidValue, "invalid field", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": "rocket"})

	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if field, ok := err.Details["field"]; !ok || field != "rocket" {
		t.Errorf("expected field 'rocket', got %v", field)
	}
}

func TestWithRequestID(t *testing.T) {
	requestID := "test-request-123"
	err := New(ErrSystemInternal, "internal error", http.StatusInternalServerError).
		WithRequestID(requestID)

	if err.RequestID != requestID {
		t.Errorf("expected request ID %s, got %s", requestID, err.RequestID)
	}
}

func TestErrorInterface(t *testing.T) {
	err := New(ErrFilterInvalidDate, "bad start_date", http.StatusBadRequest)
	expected := "FILTER_INVALID_DATE: bad start_date"
	if err.Error() != expected {
		t.Errorf("expected error string %s, got %s", expected, err.Error())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	err := New(ErrUpstreamUnavailable, "timeout", http.StatusBadGateway).
		WithRequestID("req-123")

	WriteError(w, err)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Error == nil {
		t.Fatal("expected error in response")
	}
	if resp.Error.Code != ErrUpstreamUnavailable {
		t.Errorf("expected code %s, got %s", ErrUpstreamUnavailable, resp.Error.Code)
	}
	if resp.Error.Message != "timeout" {
		t.Errorf("expected message 'timeout', got '%s'", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("expected request ID 'req-123', got '%s'", resp.Error.RequestID)
	}
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		name       string
		createErr  func() *Error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"LaunchNotFound", func() *Error { return LaunchNotFound("5eb87cd9ffd86e000604b32a") }, ErrLaunchNotFound, http.StatusNotFound},
		{"LaunchLoadFailed", func() *Error { return LaunchLoadFailed("") }, ErrLaunchLoadFailed, http.StatusBadGateway},
		{"UpstreamUnavailable", func() *Error { return UpstreamUnavailable("") }, ErrUpstreamUnavailable, http.StatusBadGateway},
		{"UpstreamRateLimited", func() *Error { return UpstreamRateLimited() }, ErrUpstreamRateLimited, http.StatusServiceUnavailable},
		{"UpstreamCircuitOpen", func() *Error { return UpstreamCircuitOpen() }, ErrUpstreamCircuitOpen, http.StatusServiceUnavailable},
		{"CacheFailed", func() *Error { return CacheFailed("") }, ErrCacheFailed, http.StatusInternalServerError},
		{"FilterInvalidDate", func() *Error { return FilterInvalidDate("start_date") }, ErrFilterInvalidDate, http.StatusBadRequest},
		{"FilterInvalidOutcome", func() *Error { return FilterInvalidOutcome() }, ErrFilterInvalidOutcome, http.StatusBadRequest},
		{"FilterInvalidParams", func() *Error { return FilterInvalidParams("") }, ErrFilterInvalidParams, http.StatusBadRequest},
		{"SystemInternal", func() *Error { return SystemInternal("") }, ErrSystemInternal, http.StatusInternalServerError},
		{"SystemTimeout", func() *Error { return SystemTimeout("") }, ErrSystemTimeout, http.StatusGatewayTimeout},
		{"ValidationInvalidJSON", func() *Error { return ValidationInvalidJSON() }, ErrValidationInvalidJSON, http.StatusBadRequest},
		{"ValidationInvalidValue", func() *Error { return ValidationInvalidValue("granularity", "") }, ErrValidationInvalidValue, http.StatusBadRequest},
		{"ResourceNotFound", func() *Error { return ResourceNotFound("rocket") }, ErrResourceNotFound, http.StatusNotFound},
		{"RateLimitGlobal", func() *Error { return RateLimitGlobal() }, ErrRateLimitGlobal, http.StatusTooManyRequests},
		{"RateLimitIP", func() *Error { return RateLimitIP() }, ErrRateLimitIP, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.createErr()
			if err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, err.Code)
			}
			if err.Status() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, err.Status())
			}
			if err.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestFilterInvalidDateDetails(t *testing.T) {
	err := FilterInvalidDate("end_date")
	if field, ok := err.Details["field"]; !ok || field != "end_date" {
		t.Errorf("expected field 'end_date', got %v", field)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"server error", &spacex.FetchError{Endpoint: "/launches", StatusCode: 503, Err: errors.New("down")}, ErrUpstreamUnavailable, http.StatusBadGateway},
		{"transport", &spacex.FetchError{Endpoint: "/launches", Err: errors.New("connection refused")}, ErrUpstreamUnavailable, http.StatusBadGateway},
		{"rate limited", &spacex.FetchError{Endpoint: "/rockets", StatusCode: 429, Err: errors.New("slow down")}, ErrUpstreamRateLimited, http.StatusServiceUnavailable},
		{"not found", &spacex.FetchError{Endpoint: "/rockets/abc", StatusCode: 404, Err: errors.New("not found")}, ErrResourceNotFound, http.StatusNotFound},
		{"circuit open", &spacex.FetchError{Endpoint: "/launches", Err: circuitbreaker.ErrCircuitOpen}, ErrUpstreamCircuitOpen, http.StatusServiceUnavailable},
		{"deadline", &spacex.FetchError{Endpoint: "/launches", Err: context.DeadlineExceeded}, ErrSystemTimeout, http.StatusGatewayTimeout},
		{"decode", fmt.Errorf("load launches: %w", &spacex.DecodeError{Endpoint: "/launches", Index: 3, Field: "date_utc", Err: spacex.ErrMissingField}), ErrLaunchInvalidData, http.StatusBadGateway},
		{"api error passthrough", fmt.Errorf("wrapped: %w", FilterInvalidOutcome()), ErrFilterInvalidOutcome, http.StatusBadRequest},
		{"bare canceled", context.Canceled, ErrSystemTimeout, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), ErrLaunchLoadFailed, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.Code != tt.wantCode || got.Status() != tt.wantStatus {
				t.Errorf("FromError() = %s/%d, want %s/%d", got.Code, got.Status(), tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestFromErrorDetails(t *testing.T) {
	got := FromError(&spacex.FetchError{Endpoint: "/launchpads", StatusCode: 502, Err: errors.New("bad gateway")})
	if got.Details["endpoint"] != "/launchpads" || got.Details["upstream_status"] != 502 {
		t.Errorf("unexpected details: %v", got.Details)
	}
}

func TestWriteErrorWithContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/launches", nil)
	r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, "req-abc"))
	w := httptest.NewRecorder()

	WriteErrorWithContext(w, r, FilterInvalidDate("start_date"))

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.RequestID != "req-abc" {
		t.Errorf("expected request_id 'req-abc', got %q", resp.Error.RequestID)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	if reqID := GetRequestID(r.Context()); reqID != "" {
		t.Errorf("expected empty request ID, got %s", reqID)
	}
}
