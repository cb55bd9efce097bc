package textnorm

import "testing"

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	input := "  Hearing\tadjourned \r\n\r\n to  27.06.2022 by the\x00 Authority  "
	got := Normalize(input)
	want := "Hearing adjourned to 27.06.2022 by the Authority"
	if got != want {
		t.Fatalf("Normalize mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	once := Normalize(" a \n b\t\tc ")
	if twice := Normalize(once); twice != once {
		t.Fatalf("expected idempotent normalization, got %q then %q", once, twice)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	got, truncated := Truncate("abcdefghijklmnopqrstuvwxyz", 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := Truncate("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestStripEllipsis(t *testing.T) {
	t.Parallel()

	if got := StripEllipsis("order dated 27.06.2022 …"); got != "order dated 27.06.2022" {
		t.Fatalf("unexpected stripped snippet: %q", got)
	}
	if got := StripEllipsis("no marker"); got != "no marker" {
		t.Fatalf("unexpected unchanged snippet: %q", got)
	}
}

func TestClaimKey(t *testing.T) {
	t.Parallel()

	left := ClaimKey("Registration  SUSPENDED on 27.06.2022", 20)
	right := ClaimKey("registration suspended\non 27.06.2022 for non-compliance", 20)
	if left != right {
		t.Fatalf("expected equal claim keys, got %q and %q", left, right)
	}
	if len([]rune(left)) != 20 {
		t.Fatalf("unexpected claim key length: %d", len([]rune(left)))
	}
}

func TestHeadIsRuneSafe(t *testing.T) {
	t.Parallel()

	if got := Head("₹500 crore", 2); got != "₹5" {
		t.Fatalf("unexpected head: %q", got)
	}
	if got := Head("abc", 10); got != "abc" {
		t.Fatalf("unexpected head for short input: %q", got)
	}
}
