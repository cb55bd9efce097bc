package globaltime

import (
	"testing"
	"time"
)

func TestFreezeAndRestore(t *testing.T) {
	pinned := time.Date(2025, time.March, 1, 5, 30, 0, 0, time.FixedZone("IST", 19800))
	restore := Freeze(pinned)

	if !Now().Equal(pinned) {
		t.Fatalf("expected frozen clock, got %v", Now())
	}
	if got := UTC(); got.Location() != time.UTC || got.Hour() != 0 {
		t.Fatalf("expected UTC conversion, got %v", got)
	}

	restore()
	if Now().Equal(pinned) {
		t.Fatalf("expected clock to be restored")
	}
}

func TestSetMockTime(t *testing.T) {
	pinned := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	SetMockTime(pinned)
	defer ResetTime()

	if !UTC().Equal(pinned) {
		t.Fatalf("expected mocked time, got %v", UTC())
	}
}
