package flow

import (
	"testing"
	"time"
)

func TestTimedOut(t *testing.T) {
	base := time.Date(2026, time.September, 7, 12, 0, 0, 0, time.UTC)

	s := newSession(FlowBooking)
	s.LastMsgAt = base

	if TimedOut(s, base.Add(10*time.Minute), 30*time.Minute) {
		t.Error("fresh session reported as timed out")
	}
	if !TimedOut(s, base.Add(31*time.Minute), 30*time.Minute) {
		t.Error("idle session not reported as timed out")
	}

	// Zero timeout falls back to the default.
	if TimedOut(s, base.Add(DefaultAbandonTimeout-time.Minute), 0) {
		t.Error("timed out before default window elapsed")
	}
	if !TimedOut(s, base.Add(DefaultAbandonTimeout+time.Minute), 0) {
		t.Error("not timed out after default window elapsed")
	}

	s.Active = false
	if TimedOut(s, base.Add(time.Hour), 30*time.Minute) {
		t.Error("inactive session reported as timed out")
	}
}

func TestAbandonAndResumeRestoresState(t *testing.T) {
	base := time.Date(2026, time.September, 7, 12, 0, 0, 0, time.UTC)

	s := newSession(FlowBooking)
	advance(t, s, OutcomeServiceSelected, StateCollectingDatetime)
	s.LastMsgAt = base

	Abandon(s, base.Add(time.Hour))
	if s.Current != StateAbandoned {
		t.Fatalf("state = %q, want abandoned", s.Current)
	}
	if s.Active {
		t.Fatal("abandoned session still active")
	}
	if !s.LastMsgAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("abandon did not touch the session: %v", s.LastMsgAt)
	}

	if !Resume(s, base.Add(2*time.Hour)) {
		t.Fatal("resume returned false for an abandoned session")
	}
	if s.Current != StateCollectingDatetime {
		t.Fatalf("resumed state = %q, want %q", s.Current, StateCollectingDatetime)
	}
	if !s.Active {
		t.Fatal("resumed session not active")
	}
	if _, leftover := s.Collected[dataKeyLastActiveState]; leftover {
		t.Fatal("snapshot key not cleared on resume")
	}
}

func TestResumeWithoutSnapshotResets(t *testing.T) {
	s := newSession(FlowBooking)
	s.Current = StateAbandoned
	s.Active = false

	if !Resume(s, time.Now()) {
		t.Fatal("resume returned false")
	}
	if s.Current != StateInitiated {
		t.Fatalf("state = %q, want initiated", s.Current)
	}
}

func TestResumeRejectsNonAbandoned(t *testing.T) {
	s := newSession(FlowBooking)
	if Resume(s, time.Now()) {
		t.Fatal("resume succeeded on an active session")
	}
	if s.Current != StateInitiated {
		t.Fatalf("state changed: %q", s.Current)
	}
}

func TestAbandonIsIdempotentOnTerminal(t *testing.T) {
	s := newSession(FlowBooking)
	advance(t, s, OutcomeBooked, StateConfirmed)

	Abandon(s, time.Now())
	if s.Current != StateConfirmed {
		t.Fatalf("abandon overwrote terminal state: %q", s.Current)
	}
}
