// Package snippet cuts bounded context windows around a date match and verifies that
// any emitted text is a literal piece of its source document.
package snippet

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"horse.fit/stallednews/internal/textnorm"
)

const (
	SnippetRadius   = 240
	SnippetMaxChars = 520
	ClaimRadius     = 110
	ClaimMaxChars   = 220
)

// Window returns the widest sentence-aligned context around text[start:end]. start and
// end are byte offsets; radius and maxChars count runes. Inside the radius the left edge
// moves to the first sentence start and the right edge to the last sentence end; with
// no sentence boundary in a margin the edge snaps to a whole word.
func Window(text string, start, end, radius, maxChars int) string {
	return cut(text, start, end, radius, maxChars, true)
}

// Sentence returns the sentence holding text[start:end]: the left edge moves to the
// closest sentence start before the match and the right edge to the first sentence end
// after it, both bounded by radius.
func Sentence(text string, start, end, radius, maxChars int) string {
	return cut(text, start, end, radius, maxChars, false)
}

func cut(text string, start, end, radius, maxChars int, widest bool) string {
	if start < 0 || end > len(text) || start >= end {
		return ""
	}
	if radius < 0 {
		radius = 0
	}

	runes := []rune(text)
	matchStart := utf8.RuneCountInString(text[:start])
	matchEnd := matchStart + utf8.RuneCountInString(text[start:end])

	lo := max(0, matchStart-radius)
	hi := min(len(runes), matchEnd+radius)

	lo = snapLeft(runes, lo, matchStart, widest)
	hi = snapRight(runes, hi, matchEnd, widest)

	if maxChars > 0 && hi-lo > maxChars {
		// Keep the match near the middle; Truncate then clips the right side.
		leftBudget := max(0, (maxChars-(matchEnd-matchStart))/2)
		if matchStart-lo > leftBudget {
			lo = snapLeftWord(runes, matchStart-leftBudget, matchStart)
		}
	}

	out, _ := textnorm.Truncate(textnorm.Normalize(string(runes[lo:hi])), maxChars)
	return out
}

func snapLeft(runes []rune, lo, matchStart int, widest bool) int {
	if widest {
		if lo == 0 {
			return 0
		}
		for i := lo; i <= matchStart-2; i++ {
			if sentenceEndsAt(runes, i) {
				return i + 2
			}
		}
	} else {
		for i := matchStart - 2; i >= lo; i-- {
			if sentenceEndsAt(runes, i) {
				return i + 2
			}
		}
	}
	return snapLeftWord(runes, lo, matchStart)
}

// snapLeftWord moves lo past a partial word so the window starts on a word.
func snapLeftWord(runes []rune, lo, matchStart int) int {
	if lo == 0 || unicode.IsSpace(runes[lo-1]) {
		return lo
	}
	for i := lo; i < matchStart; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return lo
}

func snapRight(runes []rune, hi, matchEnd int, widest bool) int {
	if widest {
		if hi == len(runes) {
			return hi
		}
		for i := hi - 1; i >= matchEnd; i-- {
			if sentenceEndsAt(runes, i) {
				return i + 1
			}
		}
	} else {
		for i := matchEnd; i < hi; i++ {
			if sentenceEndsAt(runes, i) {
				return i + 1
			}
		}
	}
	if hi == len(runes) || unicode.IsSpace(runes[hi]) {
		return hi
	}
	for i := hi - 1; i > matchEnd; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return hi
}

// abbreviations never end a sentence when followed by a period. Keys are lowercase.
var abbreviations = map[string]struct{}{
	"no": {}, "nos": {}, "ltd": {}, "pvt": {}, "m/s": {}, "rs": {}, "dt": {}, "dtd": {},
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "sh": {}, "shri": {}, "smt": {}, "co": {},
	"inc": {}, "corp": {}, "vs": {}, "ors": {}, "anr": {}, "sr": {}, "jr": {}, "govt": {},
	"dept": {}, "ref": {}, "sec": {}, "u/s": {}, "viz": {}, "hon'ble": {}, "approx": {},
}

// sentenceEndsAt reports whether runes[i] is a terminator followed by a space or the
// end of the text. A period after a known abbreviation or a single-letter initial
// does not count unless it is the last rune.
func sentenceEndsAt(runes []rune, i int) bool {
	if !isTerminator(runes[i]) {
		return false
	}
	if i+1 == len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[i+1]) {
		return false
	}
	return runes[i] != '.' || !abbreviationBefore(runes, i)
}

func abbreviationBefore(runes []rune, dot int) bool {
	start := dot
	for start > 0 && !unicode.IsSpace(runes[start-1]) && runes[start-1] != '(' {
		start--
	}
	word := strings.ToLower(string(runes[start:dot]))
	if word == "" {
		return false
	}
	if n := utf8.RuneCountInString(word); n == 1 && unicode.IsLetter(runes[start]) {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Verify reports whether candidate, minus a trailing ellipsis marker, is a non-empty
// literal substring of the already normalized document text.
func Verify(candidate, normalizedText string) bool {
	needle := textnorm.Normalize(textnorm.StripEllipsis(candidate))
	if needle == "" {
		return false
	}
	return strings.Contains(normalizedText, needle)
}
