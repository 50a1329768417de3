package schedule

import (
	"fmt"
	"time"
)

// Kind distinguishes weekly-repeating entries from date-specific overrides.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindException Kind = "exception"
)

// ParseKind converts a storage string into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindRecurring, KindException:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("schedule: unknown kind %q", raw)
	}
}

// Entry is one staff schedule row. Recurring entries are keyed by weekday;
// exception entries are keyed by exact date and override recurring entries
// for that date. An exception with Available=false blocks the whole day.
type Entry struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"org_id"`
	StaffID     string       `json:"staff_id"`
	Kind        Kind         `json:"kind"`
	Weekday     time.Weekday `json:"weekday"` // recurring only
	Date        time.Time    `json:"date"`    // exception only, midnight org-local
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
	Available   bool         `json:"available"`
}

// Window materializes the entry's time-of-day range on a concrete day.
func (e Entry) Window(day time.Time) (start, end time.Time) {
	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return base.Add(time.Duration(e.StartMinute) * time.Minute),
		base.Add(time.Duration(e.EndMinute) * time.Minute)
}
