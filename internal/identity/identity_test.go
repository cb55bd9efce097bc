package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func mustIdentity(t *testing.T, in Input) *Identity {
	t.Helper()
	id, err := New(in)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return id
}

func TestMatchRegistrationIDOnly(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights 86", City: "Gurugram", RegistrationID: "GGM/582/314/2022/57"})
	text := "Registration No. GGM/582/314/2022/57 was considered in the proceedings."
	if got := id.Match(text); got != ReasonRegistrationID {
		t.Fatalf("unexpected reason: got %q want %q", got, ReasonRegistrationID)
	}
}

func TestMatchRegistrationIDIgnoresPunctuationAndCase(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights 86", RegistrationID: "GGM/582/314/2022/57"})
	if !id.Matches("reg ggm-582-314-2022-57 listed") {
		t.Fatalf("expected hyphenated lowercase registration id to match")
	}
	if id.Matches("GGM/582/314/2022/58") {
		t.Fatalf("did not expect a different registration id to match")
	}
}

func TestMatchFullName(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights", City: "Gurugram"})
	if got := id.Match("News: ANSAL-HEIGHTS buyers protest"); got != ReasonFullName {
		t.Fatalf("unexpected reason: %q", got)
	}
}

func TestMatchRejectsUnrelatedProject(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights 86", City: "Gurugram", RegistrationID: "GGM/582/314/2022/57"})
	if id.Matches("Emaar Palm Gardens allottees were granted a refund by the authority.") {
		t.Fatalf("expected unrelated project text to be rejected")
	}
}

func TestMatchSingleTokenWithoutCityRejected(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights", City: "Gurugram"})
	if id.Matches("The heights of the new buildings were questioned in Noida.") {
		t.Fatalf("expected one of two tokens without city to be rejected")
	}
}

func TestMatchTokenAndCity(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ansal Heights", City: "Gurugram"})
	if got := id.Match("Ansal group project in Gurugram stalled"); got != ReasonTokenAndCity {
		t.Fatalf("unexpected reason: %q", got)
	}
}

func TestMatchTokensInAnyOrder(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Supertech Capetown Tower", City: "Noida"})
	if got := id.Match("capetown residents met supertech officials"); got != ReasonNameTokens {
		t.Fatalf("unexpected reason: %q", got)
	}
}

func TestTokensDropStopwordsAndShortRuns(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "The Ansal Heights Phase 2 Tower"})
	tokens := id.Tokens()
	if len(tokens) != 2 || tokens[0] != "ansal" || tokens[1] != "heights" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestSingleTokenNameNeedsOneHit(t *testing.T) {
	t.Parallel()

	id := mustIdentity(t, Input{ProjectName: "Ireo Tower"})
	if got := id.Match("IREO buyers"); got != ReasonNameTokens {
		t.Fatalf("unexpected reason: %q", got)
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := New(Input{ProjectName: " "}); err == nil {
		t.Fatalf("expected blank project name to fail")
	}
	if _, err := New(Input{ProjectName: "Ansal Heights", RegistrationID: "a/1"}); err == nil {
		t.Fatalf("expected too-short registration id to fail")
	}
}

func TestLoadInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.json")
	if err := os.WriteFile(path, []byte(`{"project_name":"Ansal Heights 86","city":"Gurugram","rera_id":"GGM/582/314/2022/57"}`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	in, err := LoadInput(path)
	if err != nil {
		t.Fatalf("LoadInput failed: %v", err)
	}
	if in.ProjectName != "Ansal Heights 86" || in.City != "Gurugram" || in.RegistrationID != "GGM/582/314/2022/57" {
		t.Fatalf("unexpected input: %+v", in)
	}
}
