package timeline

import (
	"sort"

	"horse.fit/stallednews/internal/textnorm"
)

// ClaimKeyLength is the claim prefix, in runes, that decides whether two claims are
// near-identical.
const ClaimKeyLength = 160

type dedupKey struct {
	date  string
	claim string
	docID string
}

func keyFor(ev Event, policy DedupPolicy) dedupKey {
	key := dedupKey{date: ev.Date, claim: textnorm.ClaimKey(ev.Claim, ClaimKeyLength)}
	if policy != PolicyCollapse {
		key.docID = ev.Evidence.DocID
	}
	return key
}

// Filter keeps events at or above minConfidence.
func Filter(events []Event, minConfidence float64) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Confidence >= minConfidence {
			out = append(out, ev)
		}
	}
	return out
}

// Dedup keeps one representative per key and returns them in timeline order. Running
// it on its own output returns the same list.
func Dedup(events []Event, policy DedupPolicy) []Event {
	best := make(map[dedupKey]int, len(events))
	kept := make([]Event, 0, len(events))
	for _, ev := range events {
		key := keyFor(ev, policy)
		idx, ok := best[key]
		if !ok {
			best[key] = len(kept)
			kept = append(kept, ev)
			continue
		}
		if preferred(ev, kept[idx]) {
			kept[idx] = ev
		}
	}
	Sort(kept)
	return kept
}

// preferred reports whether candidate should replace current for the same key.
func preferred(candidate, current Event) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	if candidate.Claim != current.Claim {
		return candidate.Claim < current.Claim
	}
	return candidate.Evidence.DocID < current.Evidence.DocID
}

// Sort orders events by date ascending, then confidence descending, then claim and
// document id ascending.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i], events[j])
	})
}

func less(a, b Event) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Claim != b.Claim {
		return a.Claim < b.Claim
	}
	return a.Evidence.DocID < b.Evidence.DocID
}
