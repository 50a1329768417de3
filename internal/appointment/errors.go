package appointment

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no appointment matches the lookup.
var ErrNotFound = errors.New("appointment: not found")

// ConflictError reports that the proposed interval collides with existing
// pending/confirmed appointments on the same staff or spot.
type ConflictError struct {
	Conflicts []Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointment: slot conflicts with %d existing appointment(s)", len(e.Conflicts))
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ValidationError rejects a malformed mutation before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "appointment: " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
