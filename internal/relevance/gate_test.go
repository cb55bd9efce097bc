package relevance

import (
	"strings"
	"testing"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/identity"
)

func mustIdentity(t *testing.T, in identity.Input) *identity.Identity {
	t.Helper()
	id, err := identity.New(in)
	if err != nil {
		t.Fatalf("identity.New failed: %v", err)
	}
	return id
}

func TestCheckRegistrationIDInBody(t *testing.T) {
	t.Parallel()

	gate := New(mustIdentity(t, identity.Input{
		ProjectName:    "Sunrise Heights",
		City:           "Gurugram",
		RegistrationID: "GGM/582/314/2022/57",
	}), 0)

	doc := evidence.Document{DocID: "d1", URL: "https://haryanarera.gov.in/notice/1"}
	ok, reason := gate.Check(doc, "Registration No. GGM-582-314-2022-57 suspended by the Authority.")
	if !ok || reason != identity.ReasonRegistrationID {
		t.Fatalf("expected registration id match, got ok=%v reason=%q", ok, reason)
	}
}

func TestCheckRejectsUnrelatedProject(t *testing.T) {
	t.Parallel()

	gate := New(mustIdentity(t, identity.Input{ProjectName: "Sunrise Heights", City: "Gurugram"}), 0)
	doc := evidence.Document{DocID: "d2", URL: "https://news.example.com/skyline-towers"}
	ok, reason := gate.Check(doc, "Skyline Towers in Noida was handed over to buyers last month.")
	if ok || reason != identity.ReasonNone {
		t.Fatalf("expected unrelated document to be rejected, got ok=%v reason=%q", ok, reason)
	}
}

func TestCheckUsesSnippetAndURLHints(t *testing.T) {
	t.Parallel()

	gate := New(mustIdentity(t, identity.Input{ProjectName: "Sunrise Heights", City: "Gurugram"}), 0)
	doc := evidence.Document{DocID: "d3", URL: "https://example.com/sunrise-heights-delay"}
	ok, reason := gate.Check(doc, "The developer missed the deadline again.")
	if !ok || reason != identity.ReasonFullName {
		t.Fatalf("expected url hint to match, got ok=%v reason=%q", ok, reason)
	}
}

func TestCheckOnlyLooksAtHead(t *testing.T) {
	t.Parallel()

	gate := New(mustIdentity(t, identity.Input{ProjectName: "Sunrise Heights", City: "Gurugram"}), MinHeadChars)
	text := strings.Repeat("filler ", 400) + "Sunrise Heights"
	ok, _ := gate.Check(evidence.Document{DocID: "d4", URL: "https://example.com/x"}, text)
	if ok {
		t.Fatalf("expected mention beyond the head window to be ignored")
	}

	blob := gate.Blob(evidence.Document{Snippet: "hint", URL: "u1", FinalURL: "u2"}, "body")
	if blob != "hint u1 u2 body" {
		t.Fatalf("unexpected blob: %q", blob)
	}
}
