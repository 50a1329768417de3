package availability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var engineTracer = otel.Tracer("bookline.internal.availability")

// DefaultSlotIntervalMinutes is the step between candidate slot starts.
const DefaultSlotIntervalMinutes = 30

// Slot is a candidate bookable interval for one staff member.
type Slot struct {
	StaffID    string    `json:"staff_id"`
	LocationID string    `json:"location_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Query asks for bookable slots over an inclusive date range.
type Query struct {
	OrgID           string
	LocationID      string
	ServiceID       string
	DateFrom        time.Time
	DateTo          time.Time
	StaffID         string // optional filter
	IntervalMinutes int    // 0 means DefaultSlotIntervalMinutes
}

type orgReader interface {
	GetByID(ctx context.Context, id string) (*org.Organization, error)
}

type catalogReader interface {
	GetService(ctx context.Context, orgID, id string) (*catalog.Service, error)
	GetPrimaryLocation(ctx context.Context, orgID string) (*catalog.Location, error)
}

type staffDirectory interface {
	ListCapableOfService(ctx context.Context, orgID, serviceID string) ([]staff.Member, error)
}

type scheduleStore interface {
	ListRecurring(ctx context.Context, staffID string) ([]schedule.Entry, error)
	ListExceptions(ctx context.Context, staffID string, from, to time.Time) ([]schedule.Entry, error)
}

type appointmentStore interface {
	ListBlockingForStaffBetween(ctx context.Context, staffID string, from, to time.Time) ([]appointment.Appointment, error)
}

// Engine computes bookable slots from recurring and exception schedules
// minus existing pending/confirmed appointments.
type Engine struct {
	orgs            orgReader
	catalog         catalogReader
	staff           staffDirectory
	schedules       scheduleStore
	appointments    appointmentStore
	defaultInterval int
	logger          *logging.Logger
}

// NewEngine wires the engine over the domain repositories.
// slotIntervalMinutes sets the step between candidate starts for queries
// that do not name one; <=0 falls back to DefaultSlotIntervalMinutes.
func NewEngine(orgs orgReader, cat catalogReader, staffDir staffDirectory, schedules scheduleStore, appts appointmentStore, slotIntervalMinutes int, logger *logging.Logger) *Engine {
	if orgs == nil || cat == nil || staffDir == nil || schedules == nil || appts == nil {
		panic("availability: all stores required")
	}
	if slotIntervalMinutes <= 0 {
		slotIntervalMinutes = DefaultSlotIntervalMinutes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		orgs:            orgs,
		catalog:         cat,
		staff:           staffDir,
		schedules:       schedules,
		appointments:    appts,
		defaultInterval: slotIntervalMinutes,
		logger:          logger,
	}
}

// AvailableSlots returns every open slot per candidate staff over the range.
// Exception unavailability always wins for its date; an available exception
// replaces the recurring windows rather than adding to them.
func (e *Engine) AvailableSlots(ctx context.Context, q Query) ([]Slot, error) {
	ctx, span := engineTracer.Start(ctx, "availability.slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", q.OrgID),
		attribute.String("bookline.service_id", q.ServiceID),
	)

	if q.ServiceID == "" {
		return nil, &appointment.ValidationError{Reason: "service required"}
	}
	if q.DateTo.Before(q.DateFrom) {
		return nil, &appointment.ValidationError{Reason: "date range reversed"}
	}
	interval := q.IntervalMinutes
	if interval <= 0 {
		interval = e.defaultInterval
	}

	tenant, err := e.orgs.GetByID(ctx, q.OrgID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	svc, err := e.catalog.GetService(ctx, q.OrgID, q.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &appointment.ValidationError{Reason: "unknown service"}
		}
		span.RecordError(err)
		return nil, err
	}
	if !svc.Active || svc.DurationMinutes <= 0 {
		return nil, &appointment.ValidationError{Reason: "service not bookable"}
	}

	locationID := q.LocationID
	if locationID == "" {
		primary, err := e.catalog.GetPrimaryLocation(ctx, q.OrgID)
		if err != nil {
			if errors.Is(err, catalog.ErrNoLocations) {
				return nil, &appointment.ValidationError{Reason: "no locations configured"}
			}
			span.RecordError(err)
			return nil, err
		}
		locationID = primary.ID
	}

	candidates, err := e.staff.ListCapableOfService(ctx, q.OrgID, q.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if q.StaffID != "" {
		filtered := candidates[:0]
		for _, m := range candidates {
			if m.ID == q.StaffID {
				filtered = append(filtered, m)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	loc := tenant.Location()
	from := time.Date(q.DateFrom.Year(), q.DateFrom.Month(), q.DateFrom.Day(), 0, 0, 0, 0, loc)
	to := time.Date(q.DateTo.Year(), q.DateTo.Month(), q.DateTo.Day(), 0, 0, 0, 0, loc)

	var slots []Slot
	for _, member := range candidates {
		staffSlots, err := e.slotsForStaff(ctx, member.ID, from, to, svc.Duration(), time.Duration(interval)*time.Minute)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for i := range staffSlots {
			staffSlots[i].LocationID = locationID
		}
		slots = append(slots, staffSlots...)
	}
	return slots, nil
}

func (e *Engine) slotsForStaff(ctx context.Context, staffID string, from, to time.Time, duration, step time.Duration) ([]Slot, error) {
	recurring, err := e.schedules.ListRecurring(ctx, staffID)
	if err != nil {
		return nil, err
	}
	exceptions, err := e.schedules.ListExceptions(ctx, staffID, from, to)
	if err != nil {
		return nil, err
	}
	exceptionByDate := make(map[string]schedule.Entry, len(exceptions))
	for _, ex := range exceptions {
		exceptionByDate[dayKey(ex.Date)] = ex
	}

	var slots []Slot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		windows, ok := e.windowsForDay(day, recurring, exceptionByDate)
		if !ok || len(windows) == 0 {
			continue
		}

		// One conflict fetch per (staff, day); candidates are tested in memory.
		dayEnd := day.AddDate(0, 0, 1)
		busy, err := e.appointments.ListBlockingForStaffBetween(ctx, staffID, day, dayEnd)
		if err != nil {
			return nil, err
		}

		for _, w := range windows {
			for start := w.start; !start.Add(duration).After(w.end); start = start.Add(step) {
				end := start.Add(duration)
				if overlapsAny(start, end, busy) {
					continue
				}
				slots = append(slots, Slot{StaffID: staffID, Start: start, End: end})
			}
		}
	}
	return slots, nil
}

type window struct {
	start, end time.Time
}

// windowsForDay resolves the effective windows for one day. Returns ok=false
// when an exception marks the day unavailable.
func (e *Engine) windowsForDay(day time.Time, recurring []schedule.Entry, exceptions map[string]schedule.Entry) ([]window, bool) {
	if ex, found := exceptions[dayKey(day)]; found {
		if !ex.Available {
			return nil, false
		}
		start, end := ex.Window(day)
		return []window{{start: start, end: end}}, true
	}
	var windows []window
	for _, entry := range recurring {
		if entry.Weekday != day.Weekday() {
			continue
		}
		start, end := entry.Window(day)
		windows = append(windows, window{start: start, end: end})
	}
	return windows, true
}

func overlapsAny(start, end time.Time, busy []appointment.Appointment) bool {
	for _, b := range busy {
		if appointment.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
