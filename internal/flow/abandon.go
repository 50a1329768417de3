package flow

import "time"

// DefaultAbandonTimeout is how long a session may sit idle before the sweep
// pauses it.
const DefaultAbandonTimeout = 30 * time.Minute

// TimedOut reports whether an active, non-terminal session has been idle
// past the timeout.
func TimedOut(s Session, now time.Time, timeout time.Duration) bool {
	if !s.IsActive() || Terminal(s.State()) {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultAbandonTimeout
	}
	return now.Sub(s.LastMessageAt()) > timeout
}

// Abandon pauses a session, snapshotting the current state name so a later
// resume can pick up exactly where the customer left off. Safe to call on an
// already-abandoned session.
func Abandon(s Session, now time.Time) {
	if Terminal(s.State()) {
		return
	}
	s.Data()[dataKeyLastActiveState] = s.State()
	s.SetState(StateAbandoned)
	s.SetActive(false)
	s.Touch(now)
}

// Resume reactivates an abandoned session, restoring the snapshotted state
// (or resetting to initiated when none was saved) and clearing the snapshot
// keys. Returns false when the session is not abandoned.
func Resume(s Session, now time.Time) bool {
	if s.State() != StateAbandoned {
		return false
	}
	restored := StateInitiated
	if saved, ok := s.Data()[dataKeyLastActiveState].(string); ok && saved != "" {
		restored = saved
	}
	delete(s.Data(), dataKeyLastActiveState)
	s.SetState(restored)
	s.SetActive(true)
	s.Touch(now)
	return true
}
