package appointment

import (
	"math/rand"
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical", at(0), at(30), at(0), at(30), true},
		{"b starts inside a", at(0), at(30), at(15), at(45), true},
		{"b ends inside a", at(0), at(30), at(-15), at(15), true},
		{"b contains a", at(0), at(30), at(-15), at(45), true},
		{"a contains b", at(0), at(60), at(15), at(30), true},
		{"touching end to start", at(0), at(30), at(30), at(60), false},
		{"touching start to end", at(30), at(60), at(0), at(30), false},
		{"disjoint before", at(0), at(30), at(60), at(90), false},
		{"disjoint after", at(60), at(90), at(0), at(30), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverlapsRandomIntervals(t *testing.T) {
	base := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	interval := func() (time.Time, time.Time) {
		start := rng.Intn(24 * 60)
		end := start + 1 + rng.Intn(180)
		return base.Add(time.Duration(start) * time.Minute), base.Add(time.Duration(end) * time.Minute)
	}

	// Half-open semantics: the intervals overlap exactly when some minute
	// boundary lies inside both.
	sharesMinute := func(aStart, aEnd, bStart, bEnd time.Time) bool {
		for m := aStart; m.Before(aEnd); m = m.Add(time.Minute) {
			if !m.Before(bStart) && m.Before(bEnd) {
				return true
			}
		}
		return false
	}

	for i := 0; i < 500; i++ {
		aStart, aEnd := interval()
		bStart, bEnd := interval()
		want := sharesMinute(aStart, aEnd, bStart, bEnd)
		if got := Overlaps(aStart, aEnd, bStart, bEnd); got != want {
			t.Fatalf("Overlaps(%v-%v, %v-%v) = %v, want %v", aStart, aEnd, bStart, bEnd, got, want)
		}
		if got := Overlaps(bStart, bEnd, aStart, aEnd); got != want {
			t.Fatalf("Overlaps swapped (%v-%v, %v-%v) = %v, want %v", bStart, bEnd, aStart, aEnd, got, want)
		}
	}
}

func TestStatusBlocking(t *testing.T) {
	blocking := map[Status]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCompleted: false,
		StatusCancelled: false,
		StatusNoShow:    false,
	}
	for status, want := range blocking {
		if got := status.Blocking(); got != want {
			t.Errorf("%s.Blocking() = %v, want %v", status, got, want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:   false,
		StatusConfirmed: false,
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("confirmed"); err != nil || s != StatusConfirmed {
		t.Fatalf("ParseStatus(confirmed) = %v, %v", s, err)
	}
	if _, err := ParseStatus("tentative"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
