package appointment

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment. Only pending and
// confirmed appointments hold their time slot.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus converts a storage string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("appointment: unknown status %q", raw)
	}
}

// Blocking reports whether the status holds the slot against other bookings.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether the appointment can still change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Appointment is one booked service event.
type Appointment struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	CustomerID string    `json:"customer_id"`
	ServiceID  string    `json:"service_id"`
	StaffID    *string   `json:"staff_id,omitempty"`
	SpotID     *string   `json:"spot_id,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     Status    `json:"status"`
	Rating     *int      `json:"rating,omitempty"`
	Feedback   *string   `json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Covers all three overlap shapes: b starts inside
// a, b ends inside a, or b fully contains a.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
