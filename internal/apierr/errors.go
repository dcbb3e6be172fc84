package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/spacex-launch-tracker/internal/circuitbreaker"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// LAUNCH_ - Launch data errors
	ErrLaunchNotFound    ErrorCode = "LAUNCH_NOT_FOUND"
	ErrLaunchLoadFailed  ErrorCode = "LAUNCH_LOAD_FAILED"
	ErrLaunchInvalidData ErrorCode = "LAUNCH_INVALID_DATA"

	// UPSTREAM_ - SpaceX API errors
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	ErrUpstreamCircuitOpen ErrorCode = "UPSTREAM_CIRCUIT_OPEN"

	// CACHE_ - File cache errors
	ErrCacheFailed ErrorCode = "CACHE_FAILED"

	// FILTER_ - Filter and query parameter errors
	ErrFilterInvalidDate    ErrorCode = "FILTER_INVALID_DATE"
	ErrFilterInvalidOutcome ErrorCode = "FILTER_INVALID_OUTCOME"
	ErrFilterInvalidParams  ErrorCode = "FILTER_INVALID_PARAMS"

	// SYSTEM_ - System and server errors
	ErrSystemInternal ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemTimeout  ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// FromError maps a load, fetch or decode failure to an API error. Details
// carry the upstream endpoint so clients can tell which collection failed.
// Anything unrecognised is reported as LAUNCH_LOAD_FAILED.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var de *spacex.DecodeError
	if errors.As(err, &de) {
		return New(ErrLaunchInvalidData, "SpaceX API returned data that failed validation", http.StatusBadGateway).
			WithDetails(map[string]interface{}{"endpoint": de.Endpoint, "field": de.Field})
	}

	var fe *spacex.FetchError
	if errors.As(err, &fe) {
		details := map[string]interface{}{"endpoint": fe.Endpoint}
		if fe.StatusCode != 0 {
			details["upstream_status"] = fe.StatusCode
		}
		switch fe.Type() {
		case spacex.ErrorNotFound:
			return ResourceNotFound("launch data").WithDetails(details)
		case spacex.ErrorRateLimited:
			return UpstreamRateLimited().WithDetails(details)
		case spacex.ErrorCircuitOpen:
			return UpstreamCircuitOpen().WithDetails(details)
		case spacex.ErrorCanceled:
			return SystemTimeout("").WithDetails(details)
		default:
			return UpstreamUnavailable("").WithDetails(details)
		}
	}

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return UpstreamCircuitOpen()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SystemTimeout("")
	}
	return LaunchLoadFailed("")
}

// Helper functions for common errors

// LaunchNotFound creates a launch not found error
func LaunchNotFound(id string) *Error {
	return New(ErrLaunchNotFound, "Launch not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"id": id})
}

// LaunchLoadFailed creates a launch load failure error
func LaunchLoadFailed(message string) *Error {
	if message == "" {
		message = "Failed to load launch data"
	}
	return New(ErrLaunchLoadFailed, message, http.StatusBadGateway)
}

// UpstreamUnavailable creates an upstream unavailable error
func UpstreamUnavailable(message string) *Error {
	if message == "" {
		message = "SpaceX API unavailable"
	}
	return New(ErrUpstreamUnavailable, message, http.StatusBadGateway)
}

// UpstreamRateLimited creates an upstream rate limited error
func UpstreamRateLimited() *Error {
	return New(ErrUpstreamRateLimited, "SpaceX API rate limit exceeded - try again later", http.StatusServiceUnavailable)
}

// UpstreamCircuitOpen creates a circuit open error
func UpstreamCircuitOpen() *Error {
	return New(ErrUpstreamCircuitOpen, "SpaceX API temporarily disabled after repeated failures", http.StatusServiceUnavailable)
}

// CacheFailed creates a cache operation error
func CacheFailed(message string) *Error {
	if message == "" {
		message = "Cache operation failed"
	}
	return New(ErrCacheFailed, message, http.StatusInternalServerError)
}

// FilterInvalidDate creates an invalid date error
func FilterInvalidDate(field string) *Error {
	return New(ErrFilterInvalidDate, "Invalid date for "+field+" - expected YYYY-MM-DD", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// FilterInvalidOutcome creates an invalid success filter error
func FilterInvalidOutcome() *Error {
	return New(ErrFilterInvalidOutcome, "Invalid value for success - expected yes or no", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": "success"})
}

// FilterInvalidParams creates an invalid filter parameters error
func FilterInvalidParams(message string) *Error {
	if message == "" {
		message = "Invalid filter parameters"
	}
	return New(ErrFilterInvalidParams, message, http.StatusBadRequest)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusGatewayTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
