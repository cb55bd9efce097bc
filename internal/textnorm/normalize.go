// Package textnorm holds the single whitespace normalization routine used by every
// step that builds, compares or verifies snippet text.
package textnorm

import (
	"strings"
	"unicode"
)

// Ellipsis marks a snippet that was clipped to its length bound.
const Ellipsis = "…"

// Normalize collapses every run of Unicode whitespace into one ASCII space, drops other
// control characters and trims the result. Case and character order are preserved.
func Normalize(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	lastSpace := true
	for _, r := range input {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// Truncate clips text to maxChars runes and appends a single ellipsis rune when truncated.
func Truncate(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return Ellipsis, true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return Ellipsis, true
	}
	return clipped + Ellipsis, true
}

// StripEllipsis returns the part of a truncated snippet that precedes the ellipsis marker.
func StripEllipsis(snippet string) string {
	trimmed := strings.TrimSpace(snippet)
	return strings.TrimSpace(strings.TrimSuffix(trimmed, Ellipsis))
}

// ClaimKey is the lowercase normalized form of a claim, cut to prefixLen runes.
func ClaimKey(claim string, prefixLen int) string {
	key := strings.ToLower(Normalize(StripEllipsis(claim)))
	return Head(key, prefixLen)
}

// Head returns the first n runes of s.
func Head(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
