package utils

import "regexp"

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password portion of a connection string for logging.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskTail hides all but the last n characters of a sensitive value
// (secret ids, key fingerprints) so logs stay correlatable but safe.
func MaskTail(s string, n int) string {
	if len(s) <= n {
		return "***"
	}
	return "***" + s[len(s)-n:]
}
