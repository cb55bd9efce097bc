package timeline

import (
	"fmt"
	"strconv"
	"time"

	"horse.fit/stallednews/internal/dates"
	"horse.fit/stallednews/internal/snippet"
	"horse.fit/stallednews/internal/textnorm"
)

// Violation is one broken artifact property.
type Violation struct {
	Index  int    `json:"index"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("event %d: %s: %s", v.Index, v.Rule, v.Detail)
}

// TextLoader returns the raw extracted text stored at path.
type TextLoader func(path string) (string, error)

// Verify checks each event's date, confidence floor, tags and, when load is non-nil,
// that both claim and snippet are literal pieces of the source text. ref is the
// extraction time that bounds how far ahead a date may lie; zero means now.
func Verify(events []Event, minConfidence float64, ref time.Time, load TextLoader) []Violation {
	latest := dates.Latest(ref).Format(time.DateOnly)
	var out []Violation
	texts := make(map[string]string)
	failed := make(map[string]error)

	for i, ev := range events {
		if !dates.ValidISO(ev.Date) {
			out = append(out, Violation{Index: i, Rule: "date", Detail: fmt.Sprintf("%q is not a calendar date", ev.Date)})
		} else if year, _ := strconv.Atoi(ev.Date[:4]); year < dates.MinYear {
			out = append(out, Violation{Index: i, Rule: "date", Detail: fmt.Sprintf("%s is before %d", ev.Date, dates.MinYear)})
		} else if ev.Date > latest {
			out = append(out, Violation{Index: i, Rule: "date", Detail: fmt.Sprintf("%s is after %s", ev.Date, latest)})
		}
		if ev.Confidence < minConfidence || ev.Confidence > 1 {
			out = append(out, Violation{Index: i, Rule: "confidence", Detail: fmt.Sprintf("%.2f outside [%.2f, 1]", ev.Confidence, minConfidence)})
		}
		if len(ev.Tags) == 0 {
			out = append(out, Violation{Index: i, Rule: "tags", Detail: "no tags"})
		}
		if load == nil {
			continue
		}

		path := ev.Evidence.TextPath
		if _, seen := texts[path]; !seen && failed[path] == nil {
			raw, err := load(path)
			if err != nil {
				failed[path] = err
			} else {
				texts[path] = textnorm.Normalize(raw)
			}
		}
		if err := failed[path]; err != nil {
			out = append(out, Violation{Index: i, Rule: "source", Detail: err.Error()})
			continue
		}
		text := texts[path]
		if !snippet.Verify(ev.Claim, text) {
			out = append(out, Violation{Index: i, Rule: "claim_fidelity", Detail: "claim is not a substring of the source text"})
		}
		if !snippet.Verify(ev.Evidence.Snippet, text) {
			out = append(out, Violation{Index: i, Rule: "snippet_fidelity", Detail: "snippet is not a substring of the source text"})
		}
	}
	return out
}

// VerifyDeduped checks that events are in timeline order and that no two share a
// dedup key under policy.
func VerifyDeduped(events []Event, policy DedupPolicy) []Violation {
	var out []Violation
	seen := make(map[dedupKey]int, len(events))
	for i, ev := range events {
		if i > 0 && less(ev, events[i-1]) {
			out = append(out, Violation{Index: i, Rule: "order", Detail: fmt.Sprintf("sorts before event %d", i-1)})
		}
		key := keyFor(ev, policy)
		if first, ok := seen[key]; ok {
			out = append(out, Violation{Index: i, Rule: "duplicate", Detail: fmt.Sprintf("same key as event %d", first)})
			continue
		}
		seen[key] = i
	}
	return out
}
