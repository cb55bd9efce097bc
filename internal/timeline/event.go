// Package timeline holds the event types shared by extraction and storage, and the
// deduplication and ranking pass that turns raw candidates into a timeline.
package timeline

import (
	"fmt"
	"strings"
)

// EvidenceRef points an event back at the document and text it came from.
type EvidenceRef struct {
	Domain   string `json:"domain"`
	URL      string `json:"url"`
	FinalURL string `json:"final_url"`
	DocID    string `json:"doc_id"`
	TextPath string `json:"text_path"`
	Snippet  string `json:"snippet"`
}

// Event is one dated claim. Before dedup it is a candidate; after, a timeline event.
type Event struct {
	Date       string      `json:"date"`
	Claim      string      `json:"claim"`
	Confidence float64     `json:"confidence"`
	Tags       []string    `json:"tags"`
	Evidence   EvidenceRef `json:"evidence"`
}

// SourceURL is the resolved URL when known, else the requested one.
func (r EvidenceRef) SourceURL() string {
	if strings.TrimSpace(r.FinalURL) != "" {
		return r.FinalURL
	}
	return r.URL
}

// HasTag reports whether the event carries tag (case-insensitive).
func (e Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// DedupPolicy decides whether independent sources reporting the same dated claim are
// kept apart or collapsed.
type DedupPolicy string

const (
	// PolicyPerSource keeps one event per (date, claim, document).
	PolicyPerSource DedupPolicy = "per_source"
	// PolicyCollapse keeps one event per (date, claim) across all documents.
	PolicyCollapse DedupPolicy = "collapse"
)

const DefaultPolicy = PolicyPerSource

// ParsePolicy accepts the policy names used in config and on the command line.
func ParsePolicy(raw string) (DedupPolicy, error) {
	switch DedupPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return DefaultPolicy, nil
	case PolicyPerSource:
		return PolicyPerSource, nil
	case PolicyCollapse:
		return PolicyCollapse, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q (want %s or %s)", raw, PolicyPerSource, PolicyCollapse)
	}
}

// Entry is the display-oriented projection written to timeline.json.
type Entry struct {
	Date   string `json:"date"`
	Claim  string `json:"claim"`
	Source Source `json:"source"`
}

type Source struct {
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

// Project trims deduplicated events down to timeline entries, preserving order.
func Project(events []Event) []Entry {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		out = append(out, Entry{
			Date:  ev.Date,
			Claim: ev.Claim,
			Source: Source{
				Domain: ev.Evidence.Domain,
				URL:    ev.Evidence.SourceURL(),
			},
		})
	}
	return out
}
