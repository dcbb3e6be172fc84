package errorreporting

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/onnwee/spacex-launch-tracker/internal/secrets"
	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
)

// PII patterns to scrub from error messages
var piiPatterns = []*regexp.Regexp{
	// Email addresses
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[a-zA-Z0-9_-]{16,}`),
	// IP addresses (dashboard clients)
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	// Home directories in cache and export paths
	regexp.MustCompile(`(/home/|/Users/)[^/\s"']+`),
}

var enabled atomic.Bool

// Settings configures the Sentry client.
type Settings struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// Init configures Sentry. An empty DSN disables reporting without error.
func Init(s Settings) error {
	if s.DSN == "" {
		return nil
	}
	if err := ValidateDSN(s.DSN); err != nil {
		return err
	}
	if s.Release == "" {
		s.Release = "dev"
	}
	if s.SampleRate <= 0 || s.SampleRate > 1 {
		s.SampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.DSN,
		Environment:      s.Environment,
		Release:          s.Release,
		SampleRate:       s.SampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

// beforeSend is called before sending events to Sentry
// It scrubs PII and sanitizes sensitive data
func beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}
	if event.Message != "" {
		event.Message = scrubPII(event.Message)
	}
	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}

	if event.Request != nil {
		if event.Request.Headers != nil {
			delete(event.Request.Headers, "Authorization")
			delete(event.Request.Headers, "Cookie")
			delete(event.Request.Headers, "X-Api-Key")
			delete(event.Request.Headers, "X-Forwarded-For")
			delete(event.Request.Headers, "X-Real-Ip")
		}
		event.Request.QueryString = ""
		event.Request.Env = nil
	}

	return event
}

// scrubPII removes personally identifiable information from strings
func scrubPII(text string) string {
	result := text
	for _, pattern := range piiPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// CaptureError captures an error and sends it to Sentry
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext captures an error with additional context. Fetch
// and decode failures are tagged with their endpoint and classification.
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range errorTags(err) {
			scope.SetTag(k, v)
		}
		// Extras are scrubbed by beforeSend
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

func errorTags(err error) map[string]string {
	tags := map[string]string{}
	var fe *spacex.FetchError
	if errors.As(err, &fe) {
		tags["spacex.endpoint"] = fe.Endpoint
		tags["spacex.error_type"] = fe.Type().String()
		if fe.StatusCode != 0 {
			tags["http.status_code"] = fmt.Sprint(fe.StatusCode)
		}
	}
	var de *spacex.DecodeError
	if errors.As(err, &de) {
		tags["spacex.endpoint"] = de.Endpoint
		tags["spacex.error_type"] = "decode"
		if de.Field != "" {
			tags["spacex.field"] = de.Field
		}
	}
	return tags
}

// Flush waits for all events to be sent to Sentry
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// AddBreadcrumb records a scrubbed breadcrumb that is attached to the next
// captured event. A no-op when reporting is disabled.
func AddBreadcrumb(category, message string, level sentry.Level) {
	if !enabled.Load() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   scrubPII(message),
		Level:     level,
		Timestamp: time.Now(),
	})
}

// ScrubPII exposes the PII scrubbing function for external use
func ScrubPII(text string) string {
	return scrubPII(text)
}

// IsEnabled reports whether Init configured a client.
func IsEnabled() bool {
	return enabled.Load()
}

// ValidateDSN checks that dsn has the shape scheme://publickey@host/project.
func ValidateDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid Sentry DSN %q: want https://<key>@<host>/<project>", secrets.MaskURL(dsn))
	}
	if u.User == nil || u.User.Username() == "" {
		return fmt.Errorf("invalid Sentry DSN %q: missing public key", secrets.MaskURL(dsn))
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("invalid Sentry DSN %q: missing host or project id", secrets.MaskURL(dsn))
	}
	return nil
}
