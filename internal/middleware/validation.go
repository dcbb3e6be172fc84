package middleware

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
)

// MaxRequestBodySize bounds POST bodies; the admin endpoints take tiny JSON objects.
const MaxRequestBodySize = 64 * 1024

// MaxQueryValueLen bounds each query parameter value.
const MaxQueryValueLen = 128

// ValidateRequest limits request bodies and rejects query strings with
// oversized or non-UTF-8 values before they reach filter parsing.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		if err := validateQuery(r); err != nil {
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				apiErr = apierr.FilterInvalidParams("")
			}
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateQuery(r *http.Request) error {
	for key, values := range r.URL.Query() {
		for _, v := range values {
			if !utf8.ValidString(v) {
				return apierr.ValidationInvalidValue(key, "Query parameter "+key+" is not valid UTF-8")
			}
			if len(v) > MaxQueryValueLen {
				return apierr.ValidationInvalidValue(key, "Query parameter "+key+" is too long")
			}
		}
	}
	return nil
}

// SanitizeString trims whitespace, drops invalid UTF-8 and caps the length
// in bytes without splitting a rune.
func SanitizeString(input string, maxLength int) string {
	input = strings.ToValidUTF8(strings.TrimSpace(input), "")
	if len(input) <= maxLength {
		return input
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(input[cut]) {
		cut--
	}
	return input[:cut]
}
