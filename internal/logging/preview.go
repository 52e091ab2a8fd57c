package logging

import (
	"regexp"
	"strings"
)

const defaultPreviewLength = 60

// Patterns for credentials people paste into posts by accident.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(access_token|token|secret|password)[=:]["']?([a-zA-Z0-9+/=_-]{16,})["']?`),
	regexp.MustCompile(`(?i)(ghp_[a-zA-Z0-9]{36})`),
}

// Preview returns a single-line, length-limited, redacted excerpt of a post
// body suitable for log fields.
func Preview(body string, max int) string {
	if max <= 0 {
		max = defaultPreviewLength
	}
	text := strings.Join(strings.Fields(body), " ")
	for _, pattern := range secretPatterns {
		text = pattern.ReplaceAllString(text, "[REDACTED]")
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
