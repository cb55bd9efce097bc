package dates

import (
	"testing"
	"time"
)

var ref = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func isoList(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.ISO)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindDayFirstNumeric(t *testing.T) {
	t.Parallel()

	text := "The Authority ordered the registration suspended on 27.06.2022."
	matches := Find(text, ref)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(matches), matches)
	}

	m := matches[0]
	if m.ISO != "2022-06-27" || m.Raw != "27.06.2022" || m.Precision != PrecisionDay {
		t.Fatalf("unexpected match: %+v", m)
	}
	if text[m.Start:m.End] != m.Raw {
		t.Fatalf("offsets do not point at raw text: %q", text[m.Start:m.End])
	}
}

func TestFindMixedFormatsInOffsetOrder(t *testing.T) {
	t.Parallel()

	text := "Hearing on 3rd of March, 2023 was adjourned to 2023-04-11; possession promised by Dec 2024 and revised on Sept. 5, 2024, later 05/01/24."
	got := isoList(Find(text, ref))
	want := []string{"2023-03-03", "2023-04-11", "2024-12-01", "2024-09-05", "2024-01-05"}
	if !equalStrings(got, want) {
		t.Fatalf("unexpected dates: got %v want %v", got, want)
	}
}

func TestFindHyphenatedNamedMonth(t *testing.T) {
	t.Parallel()

	text := "Order dt. 27-Jun-2022 was served; the next hearing is 05-June-23."
	matches := Find(text, ref)
	if got, want := isoList(matches), []string{"2022-06-27", "2023-06-05"}; !equalStrings(got, want) {
		t.Fatalf("unexpected dates: got %v want %v", got, want)
	}
	if matches[0].Raw != "27-Jun-2022" || matches[1].Raw != "05-June-23" {
		t.Fatalf("unexpected raw spans: %q %q", matches[0].Raw, matches[1].Raw)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	if got := Latest(ref); !got.Equal(time.Date(2035, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected forward bound: %v", got)
	}
	if len(Find("Completion targeted for 01.01.2036.", ref)) != 0 {
		t.Fatalf("expected a date past the forward bound to be dropped")
	}
}

func TestFindMonthOnlyUsesFirstDay(t *testing.T) {
	t.Parallel()

	matches := Find("Construction stalled since August 2019.", ref)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %+v", matches)
	}
	if matches[0].ISO != "2019-08-01" || matches[0].Precision != PrecisionMonth {
		t.Fatalf("unexpected month-precision match: %+v", matches[0])
	}
}

func TestFindDoesNotDoubleCountContainedMonthYear(t *testing.T) {
	t.Parallel()

	got := isoList(Find("Order dated 27 June 2022 and June 2, 2021.", ref))
	want := []string{"2022-06-27", "2021-06-02"}
	if !equalStrings(got, want) {
		t.Fatalf("unexpected dates: got %v want %v", got, want)
	}
}

func TestFindDiscardsInvalidDates(t *testing.T) {
	t.Parallel()

	text := "Dates 31.02.2022, 12.13.2022, 30 Feb 2023, 00.05.2021 and 2022-02-29 are impossible."
	if got := Find(text, ref); len(got) != 0 {
		t.Fatalf("expected no valid dates, got %+v", got)
	}
}

func TestFindSanityWindow(t *testing.T) {
	t.Parallel()

	got := isoList(Find("Land acquired on 12.05.1998, due 01.01.2036, launched 01.01.2035.", ref))
	want := []string{"2035-01-01"}
	if !equalStrings(got, want) {
		t.Fatalf("unexpected dates: got %v want %v", got, want)
	}
}

func TestFindTwoDigitYear(t *testing.T) {
	t.Parallel()

	got := isoList(Find("Notice 14-08-23 and 7 Jan 21.", ref))
	want := []string{"2023-08-14", "2021-01-07"}
	if !equalStrings(got, want) {
		t.Fatalf("unexpected dates: got %v want %v", got, want)
	}
}

func TestFindEmptyText(t *testing.T) {
	t.Parallel()

	if got := Find("   ", ref); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := Find("no dates here, just 2022 and case 582/314", ref); len(got) != 0 {
		t.Fatalf("expected no dates, got %+v", got)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, ok := Parse(" 27.06.2022 ", ref)
	if !ok || m.ISO != "2022-06-27" {
		t.Fatalf("unexpected parse: ok=%v match=%+v", ok, m)
	}
	if _, ok := Parse("on 27.06.2022", ref); ok {
		t.Fatalf("expected surrounding text to be rejected")
	}
	if !ValidISO("2024-02-29") || ValidISO("2023-02-29") {
		t.Fatalf("unexpected ValidISO result")
	}
}
