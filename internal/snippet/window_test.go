package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"

	"horse.fit/stallednews/internal/textnorm"
)

const notice = "Complaint No. 1204 was heard. The Authority ordered the registration of Sunrise Heights suspended on 27.06.2022 for non-compliance. Buyers were told to wait."

func dateOffsets(t *testing.T, text, raw string) (int, int) {
	t.Helper()
	start := strings.Index(text, raw)
	if start < 0 {
		t.Fatalf("%q not found in text", raw)
	}
	return start, start + len(raw)
}

func TestSentenceCutsContainingSentence(t *testing.T) {
	t.Parallel()

	start, end := dateOffsets(t, notice, "27.06.2022")
	got := Sentence(notice, start, end, ClaimRadius, ClaimMaxChars)
	want := "The Authority ordered the registration of Sunrise Heights suspended on 27.06.2022 for non-compliance."
	if got != want {
		t.Fatalf("unexpected claim window:\n got: %q\nwant: %q", got, want)
	}
	if !Verify(got, notice) {
		t.Fatalf("expected claim to verify against its source")
	}
}

func TestSentenceSkipsAbbreviations(t *testing.T) {
	t.Parallel()

	text := "Buyers complained. The Authority issued a show-cause notice to M/s. ABC Ltd. on 27.06.2022. Hearing follows."
	start, end := dateOffsets(t, text, "27.06.2022")
	got := Sentence(text, start, end, ClaimRadius, ClaimMaxChars)
	want := "The Authority issued a show-cause notice to M/s. ABC Ltd. on 27.06.2022."
	if got != want {
		t.Fatalf("unexpected claim:\n got: %q\nwant: %q", got, want)
	}

	text = "Order in Complaint No. 1204 dt. 05.01.2023 signed by Sh. R. K. Sharma, Member."
	start, end = dateOffsets(t, text, "05.01.2023")
	if got := Sentence(text, start, end, ClaimRadius, ClaimMaxChars); got != text {
		t.Fatalf("expected the whole sentence, got %q", got)
	}
}

func TestWindowTakesWidestSentenceSpan(t *testing.T) {
	t.Parallel()

	start, end := dateOffsets(t, notice, "27.06.2022")
	if got := Window(notice, start, end, SnippetRadius, SnippetMaxChars); got != notice {
		t.Fatalf("expected the whole notice as context, got %q", got)
	}

	text := "Intro words here. First sentence ends. The Authority passed an order on 01.02.2023 today. Next one. Tail words follow and keep going on and on well past the margin"
	start, end = dateOffsets(t, text, "01.02.2023")
	got := Window(text, start, end, 60, SnippetMaxChars)
	want := "First sentence ends. The Authority passed an order on 01.02.2023 today. Next one."
	if got != want {
		t.Fatalf("unexpected window:\n got: %q\nwant: %q", got, want)
	}
}

func TestWindowSnapsToWordBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("alpha beta ", 20) + "hearing on 27.06.2022 adjourned" + strings.Repeat(" gamma delta", 20)
	start, end := dateOffsets(t, text, "27.06.2022")
	got := Window(text, start, end, 30, 200)

	if !strings.Contains(got, "27.06.2022") {
		t.Fatalf("window lost the date: %q", got)
	}
	for _, word := range strings.Fields(got) {
		switch word {
		case "alpha", "beta", "gamma", "delta", "hearing", "on", "27.06.2022", "adjourned":
		default:
			t.Fatalf("window contains a partial word %q: %q", word, got)
		}
	}
	if !Verify(got, text) {
		t.Fatalf("expected window to verify")
	}
}

func TestWindowTruncatesAndKeepsDate(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 120) + "on 01.02.2023 the project stalled" + strings.Repeat(" more", 120)
	start, end := dateOffsets(t, text, "01.02.2023")

	got := Window(text, start, end, SnippetRadius, 100)
	if utf8.RuneCountInString(got) > 100 {
		t.Fatalf("window longer than bound: %d runes", utf8.RuneCountInString(got))
	}
	if !strings.Contains(got, "01.02.2023") {
		t.Fatalf("window lost the date: %q", got)
	}
	if !strings.HasSuffix(got, textnorm.Ellipsis) {
		t.Fatalf("expected truncated window to end with ellipsis: %q", got)
	}
	if !Verify(got, text) {
		t.Fatalf("expected truncated window to verify")
	}
}

func TestWindowInvalidOffsets(t *testing.T) {
	t.Parallel()

	if got := Window("short", 3, 2, 10, 10); got != "" {
		t.Fatalf("expected empty window, got %q", got)
	}
	if got := Window("short", 0, 99, 10, 10); got != "" {
		t.Fatalf("expected empty window, got %q", got)
	}
}

func TestWindowMultibyteText(t *testing.T) {
	t.Parallel()

	text := "परियोजना रुकी। Possession was promised by 31.12.2021 — buyers still wait."
	start, end := dateOffsets(t, text, "31.12.2021")
	got := Window(text, start, end, 20, 220)
	if !utf8.ValidString(got) || !strings.Contains(got, "31.12.2021") {
		t.Fatalf("unexpected multibyte window: %q", got)
	}
	if !Verify(got, text) {
		t.Fatalf("expected multibyte window to verify")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	text := textnorm.Normalize("Hearing  adjourned\n to 11.04.2023 by the bench.")
	if !Verify("adjourned to 11.04.2023", text) {
		t.Fatalf("expected normalized substring to verify")
	}
	if !Verify("Hearing adjourned to"+textnorm.Ellipsis, text) {
		t.Fatalf("expected truncated snippet to verify")
	}
	if Verify("adjourned to 12.04.2023", text) {
		t.Fatalf("expected altered snippet to fail")
	}
	if Verify(textnorm.Ellipsis, text) || Verify("   ", text) {
		t.Fatalf("expected empty candidate to fail")
	}
}
