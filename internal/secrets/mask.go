// Package secrets redacts credentials before they reach logs.
package secrets

import "strings"

// Mask returns the first 4 characters of a secret followed by "...", or
// "***" for secrets of 8 characters or fewer.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..."
}

// MaskURL redacts the userinfo of a URL. A password is replaced with "***";
// a bare user, such as the public key of a Sentry DSN, goes through Mask.
// Strings without a scheme or userinfo are returned unchanged.
func MaskURL(rawURL string) string {
	schemeEnd := strings.Index(rawURL, "://")
	if schemeEnd == -1 {
		return rawURL
	}
	credStart := schemeEnd + 3

	// Last @, so passwords containing @ are covered.
	atIdx := strings.LastIndex(rawURL, "@")
	if atIdx < credStart {
		return rawURL
	}

	userinfo := rawURL[credStart:atIdx]
	if user, _, ok := strings.Cut(userinfo, ":"); ok {
		return rawURL[:credStart] + user + ":***" + rawURL[atIdx:]
	}
	return rawURL[:credStart] + Mask(userinfo) + rawURL[atIdx:]
}
