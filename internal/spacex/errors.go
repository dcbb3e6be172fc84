package spacex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/onnwee/spacex-launch-tracker/internal/circuitbreaker"
)

// ErrorType classifies a failed fetch.
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorTransport
	ErrorRateLimited
	ErrorNotFound
	ErrorBadRequest
	ErrorServerError
	ErrorCircuitOpen
	ErrorCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTransport:
		return "transport"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorNotFound:
		return "not_found"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorServerError:
		return "server_error"
	case ErrorCircuitOpen:
		return "circuit_open"
	case ErrorCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FetchError reports a network or HTTP failure for one endpoint.
// StatusCode is 0 when no response was received.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Type classifies the failure from the status code and cause.
func (e *FetchError) Type() ErrorType {
	switch {
	case errors.Is(e.Err, circuitbreaker.ErrCircuitOpen):
		return ErrorCircuitOpen
	case errors.Is(e.Err, context.Canceled), errors.Is(e.Err, context.DeadlineExceeded):
		return ErrorCanceled
	case e.StatusCode == 0:
		return ErrorTransport
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorRateLimited
	case e.StatusCode == http.StatusNotFound:
		return ErrorNotFound
	case e.StatusCode >= 500:
		return ErrorServerError
	case e.StatusCode >= 400:
		return ErrorBadRequest
	default:
		return ErrorUnknown
	}
}

// Retryable reports whether the same request could succeed later.
func (e *FetchError) Retryable() bool {
	switch e.Type() {
	case ErrorTransport, ErrorRateLimited, ErrorServerError, ErrorCircuitOpen:
		return true
	default:
		return false
	}
}

// countsAgainstUpstream tells the breaker which errors mean the API is unhealthy.
func countsAgainstUpstream(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Type() {
	case ErrorTransport, ErrorRateLimited, ErrorServerError:
		return true
	default:
		return false
	}
}

// apiErrorBody is the JSON error shape the API returns for failed requests.
type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const maxErrorBody = 4 << 10

// classifyResponse turns a non-2xx response into a FetchError. The body is
// consumed.
func classifyResponse(endpoint string, resp *http.Response) *FetchError {
	fe := &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode}

	var detail string
	if resp.Body != nil {
		if b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
			var body apiErrorBody
			if json.Unmarshal(b, &body) == nil && (body.Error != "" || body.Message != "") {
				detail = strings.TrimSpace(body.Error + " " + body.Message)
			} else {
				detail = strings.TrimSpace(string(b))
			}
		}
	}

	msg := strings.ToLower(http.StatusText(resp.StatusCode))
	if msg == "" {
		msg = "unexpected status"
	}
	if detail != "" {
		msg += ": " + detail
	}
	fe.Err = errors.New(msg)
	return fe
}

// ErrMissingField marks a required field absent from a payload.
var ErrMissingField = errors.New("missing required field")

// DecodeError reports a payload that does not match the expected schema.
// Index is the failing element for list endpoints and -1 otherwise.
type DecodeError struct {
	Endpoint string
	Index    int
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decode %s", e.Endpoint)
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ".%s", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// fieldError is returned by wire validation and lifted into a DecodeError.
type fieldError struct {
	Field string
	Err   error
}

func (e *fieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func missing(field string) error {
	return &fieldError{Field: field, Err: ErrMissingField}
}
