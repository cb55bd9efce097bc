// Package dates recognizes calendar dates in normalized document text and reconciles
// them to ISO form.
//
// Numeric dates are read day-first. That is a fixed regional assumption for the
// corpora this tool runs on and is never inferred per document.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Precision says how much of the ISO date the source text actually stated.
type Precision string

const (
	PrecisionDay   Precision = "day"
	PrecisionMonth Precision = "month"
)

const (
	MinYear          = 2000
	maxYearsAhead    = 10
	twoDigitCentury  = 2000
	isoLayout        = "2006-01-02"
	monthAlternation = `january|february|march|april|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`
)

// Match is one recognized date. Start and End are byte offsets into the searched text.
type Match struct {
	ISO       string    `json:"iso"`
	Raw       string    `json:"raw"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Precision Precision `json:"precision"`
}

type groupOrder struct {
	day, month, year int
	namedMonth       bool
	precision        Precision
}

type pattern struct {
	name  string
	re    *regexp.Regexp
	order groupOrder
}

// patterns run in priority order; a later pattern never claims text an earlier one matched.
var patterns = []pattern{
	{
		name:  "iso",
		re:    regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		order: groupOrder{year: 1, month: 2, day: 3, precision: PrecisionDay},
	},
	{
		name:  "numeric_day_first",
		re:    regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4})\b`),
		order: groupOrder{day: 1, month: 2, year: 3, precision: PrecisionDay},
	},
	{
		name:  "numeric_short_year",
		re:    regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{2})\b`),
		order: groupOrder{day: 1, month: 2, year: 3, precision: PrecisionDay},
	},
	{
		name:  "day_month_year",
		re:    regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?(?:\s+(?:of\s+)?|-)(` + monthAlternation + `)\.?(?:,?\s+|-)(\d{4}|\d{2})\b`),
		order: groupOrder{day: 1, month: 2, year: 3, namedMonth: true, precision: PrecisionDay},
	},
	{
		name:  "month_day_year",
		re:    regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		order: groupOrder{month: 1, day: 2, year: 3, namedMonth: true, precision: PrecisionDay},
	},
	{
		name:  "month_year",
		re:    regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\.?,?\s+(\d{4})\b`),
		order: groupOrder{month: 1, year: 2, namedMonth: true, precision: PrecisionMonth},
	},
}

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type span struct{ start, end int }

// Find returns every valid date in text ordered by offset. ref anchors the forward
// sanity bound: dates more than ten years after ref are dropped, as are dates before
// the year 2000 and impossible calendar dates.
func Find(text string, ref time.Time) []Match {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	latest := Latest(ref)

	claimed := make([]span, 0, 8)
	out := make([]Match, 0, 8)
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			current := span{start: loc[0], end: loc[1]}
			if overlapsAny(claimed, current) {
				continue
			}
			// Rejected candidates still claim their text so a broader pattern cannot
			// resurrect part of an impossible date.
			claimed = append(claimed, current)

			parsed, ok := resolve(text, loc, p.order)
			if !ok || parsed.Year() < MinYear || parsed.After(latest) {
				continue
			}
			out = append(out, Match{
				ISO:       parsed.Format(isoLayout),
				Raw:       text[loc[0]:loc[1]],
				Start:     loc[0],
				End:       loc[1],
				Precision: p.order.precision,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Latest is the last acceptable date for a document read at ref. A zero ref means now.
func Latest(ref time.Time) time.Time {
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	return ref.AddDate(maxYearsAhead, 0, 0)
}

// Parse reconciles a single date string. It succeeds only when the whole input is one
// recognized date.
func Parse(raw string, ref time.Time) (Match, bool) {
	trimmed := strings.TrimSpace(raw)
	matches := Find(trimmed, ref)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != len(trimmed) {
		return Match{}, false
	}
	return matches[0], true
}

// ValidISO reports whether s is a real YYYY-MM-DD calendar date.
func ValidISO(s string) bool {
	_, err := time.Parse(isoLayout, s)
	return err == nil
}

func resolve(text string, loc []int, order groupOrder) (time.Time, bool) {
	group := func(i int) string {
		if i <= 0 || loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	yearText := group(order.year)
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	if len(yearText) == 2 {
		year += twoDigitCentury
	}

	var month time.Month
	if order.namedMonth {
		m, ok := monthNumbers[strings.ToLower(group(order.month))[:3]]
		if !ok {
			return time.Time{}, false
		}
		month = m
	} else {
		n, err := strconv.Atoi(group(order.month))
		if err != nil || n < 1 || n > 12 {
			return time.Time{}, false
		}
		month = time.Month(n)
	}

	day := 1
	if order.day > 0 {
		n, err := strconv.Atoi(group(order.day))
		if err != nil {
			return time.Time{}, false
		}
		day = n
	}

	parsed := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; 31.02 would silently become 03.03.
	if parsed.Year() != year || parsed.Month() != month || parsed.Day() != day {
		return time.Time{}, false
	}
	return parsed, true
}

func overlapsAny(claimed []span, s span) bool {
	for _, c := range claimed {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}
