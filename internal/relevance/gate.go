// Package relevance rejects documents that are not about the target project before any
// date extraction runs on them.
package relevance

import (
	"strings"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/identity"
	"horse.fit/stallednews/internal/textnorm"
)

const (
	DefaultHeadChars = 6000
	MinHeadChars     = 1000
	MaxHeadChars     = 20000
)

// Gate applies the identity predicate to the head of each document.
type Gate struct {
	Identity  *identity.Identity
	HeadChars int
}

func New(id *identity.Identity, headChars int) Gate {
	if headChars <= 0 {
		headChars = DefaultHeadChars
	}
	return Gate{Identity: id, HeadChars: headChars}
}

// Blob joins the snippet hint, both URLs and the head of the normalized text.
func (g Gate) Blob(doc evidence.Document, normalizedText string) string {
	headChars := g.HeadChars
	if headChars <= 0 {
		headChars = DefaultHeadChars
	}

	parts := make([]string, 0, 4)
	for _, part := range []string{doc.Snippet, doc.URL, doc.FinalURL, textnorm.Head(normalizedText, headChars)} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Check reports whether the document is relevant and which rule matched.
func (g Gate) Check(doc evidence.Document, normalizedText string) (bool, identity.Reason) {
	if g.Identity == nil {
		return false, identity.ReasonNone
	}
	reason := g.Identity.Match(g.Blob(doc, normalizedText))
	return reason != identity.ReasonNone, reason
}
