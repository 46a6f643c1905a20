package payfort

import (
	"regexp"
	"strings"
)

// SanitizeText replaces every character matched by invalidPattern with
// replacement and applies the truncation policy. An empty pattern fails
// closed and yields an empty string.
//
// Truncation is asymmetric on purpose: when the pattern allows a literal dot
// (it contains `\.`), an over-long result is cut to maxLength-3 and given a
// "..." marker; otherwise it is hard-cut to exactly maxLength. This is a
// behavior contract with the gateway, not a bug.
func SanitizeText(text, invalidPattern string, maxLength int, replacement string) string {
	if invalidPattern == "" {
		return ""
	}

	sanitized := regexp.MustCompile(invalidPattern).ReplaceAllString(text, replacement)
	if maxLength <= 0 {
		return sanitized
	}

	runes := []rune(sanitized)
	if len(runes) <= maxLength {
		return sanitized
	}
	// The ellipsis needs room for itself; limits too small for the marker
	// fall back to a hard cut.
	if maxLength > 3 && strings.Contains(invalidPattern, `\.`) {
		return string(runes[:maxLength-3]) + "..."
	}
	return string(runes[:maxLength])
}
