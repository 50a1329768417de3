package schedule

import (
	"testing"
	"time"
)

func TestEntryWindow(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	e := Entry{StartMinute: 10 * 60, EndMinute: 19 * 60}
	day := time.Date(2026, time.September, 7, 15, 42, 0, 0, madrid)

	start, end := e.Window(day)
	if start.Hour() != 10 || start.Minute() != 0 {
		t.Errorf("start = %v, want 10:00", start)
	}
	if end.Hour() != 19 || end.Minute() != 0 {
		t.Errorf("end = %v, want 19:00", end)
	}
	if start.Location() != madrid {
		t.Errorf("window lost the day's location: %v", start.Location())
	}
	if start.Day() != 7 {
		t.Errorf("window moved to another day: %v", start)
	}
}

func TestEntryWindowHalfHours(t *testing.T) {
	e := Entry{StartMinute: 9*60 + 30, EndMinute: 14*60 + 15}
	day := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

	start, end := e.Window(day)
	if start.Hour() != 9 || start.Minute() != 30 {
		t.Errorf("start = %v, want 09:30", start)
	}
	if end.Hour() != 14 || end.Minute() != 15 {
		t.Errorf("end = %v, want 14:15", end)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("recurring"); err != nil || k != KindRecurring {
		t.Fatalf("ParseKind(recurring) = %v, %v", k, err)
	}
	if k, err := ParseKind("exception"); err != nil || k != KindException {
		t.Fatalf("ParseKind(exception) = %v, %v", k, err)
	}
	if _, err := ParseKind("sabbatical"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
