package availability

import (
	"context"
	"testing"
	"time"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
)

type fakeOrgs struct {
	tenant *org.Organization
}

func (f *fakeOrgs) GetByID(_ context.Context, _ string) (*org.Organization, error) {
	return f.tenant, nil
}

type fakeCatalog struct {
	svc *catalog.Service
	loc *catalog.Location
}

func (f *fakeCatalog) GetService(_ context.Context, _, _ string) (*catalog.Service, error) {
	if f.svc == nil {
		return nil, catalog.ErrNotFound
	}
	return f.svc, nil
}

func (f *fakeCatalog) GetPrimaryLocation(_ context.Context, _ string) (*catalog.Location, error) {
	if f.loc == nil {
		return nil, catalog.ErrNoLocations
	}
	return f.loc, nil
}

type fakeStaff struct {
	members []staff.Member
}

func (f *fakeStaff) ListCapableOfService(_ context.Context, _, _ string) ([]staff.Member, error) {
	return f.members, nil
}

type fakeSchedules struct {
	recurring  []schedule.Entry
	exceptions []schedule.Entry
}

func (f *fakeSchedules) ListRecurring(_ context.Context, _ string) ([]schedule.Entry, error) {
	return f.recurring, nil
}

func (f *fakeSchedules) ListExceptions(_ context.Context, _ string, _, _ time.Time) ([]schedule.Entry, error) {
	return f.exceptions, nil
}

type fakeAppointments struct {
	busy []appointment.Appointment
}

func (f *fakeAppointments) ListBlockingForStaffBetween(_ context.Context, _ string, _, _ time.Time) ([]appointment.Appointment, error) {
	return f.busy, nil
}

// monday is a Monday at midnight UTC.
var monday = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

func newTestEngine(schedules *fakeSchedules, appts *fakeAppointments) *Engine {
	return NewEngine(
		&fakeOrgs{tenant: &org.Organization{ID: "org-1", Name: "Glow Studio", Status: org.StatusActive, Timezone: "UTC"}},
		&fakeCatalog{
			svc: &catalog.Service{ID: "svc-1", OrgID: "org-1", Name: "Haircut", DurationMinutes: 30, Active: true},
			loc: &catalog.Location{ID: "loc-1", OrgID: "org-1", Name: "Main", Primary: true},
		},
		&fakeStaff{members: []staff.Member{{ID: "staff-x", OrgID: "org-1", Name: "X", Active: true}}},
		schedules,
		appts,
		0,
		nil,
	)
}

func mondayQuery() Query {
	return Query{OrgID: "org-1", ServiceID: "svc-1", DateFrom: monday, DateTo: monday}
}

func TestAvailableSlotsFullOpenDay(t *testing.T) {
	// Recurring Monday 10:00-19:00, 30 minute service, no appointments:
	// slot starts 10:00 through 18:30.
	schedules := &fakeSchedules{recurring: []schedule.Entry{{
		StaffID: "staff-x", Kind: schedule.KindRecurring,
		Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 19 * 60, Available: true,
	}}}
	engine := newTestEngine(schedules, &fakeAppointments{})

	slots, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	first := monday.Add(10 * time.Hour)
	last := monday.Add(18*time.Hour + 30*time.Minute)
	if !slots[0].Start.Equal(first) {
		t.Errorf("first slot = %v, want %v", slots[0].Start, first)
	}
	if !slots[16].Start.Equal(last) {
		t.Errorf("last slot = %v, want %v", slots[16].Start, last)
	}
	for _, s := range slots {
		if s.StaffID != "staff-x" {
			t.Errorf("slot staff = %q, want staff-x", s.StaffID)
		}
		if s.LocationID != "loc-1" {
			t.Errorf("slot location = %q, want loc-1", s.LocationID)
		}
		if got := s.End.Sub(s.Start); got != 30*time.Minute {
			t.Errorf("slot length = %v, want 30m", got)
		}
	}
}

func TestAvailableSlotsNoLocationsConfigured(t *testing.T) {
	engine := NewEngine(
		&fakeOrgs{tenant: &org.Organization{ID: "org-1", Name: "Glow Studio", Status: org.StatusActive, Timezone: "UTC"}},
		&fakeCatalog{svc: &catalog.Service{ID: "svc-1", OrgID: "org-1", Name: "Haircut", DurationMinutes: 30, Active: true}},
		&fakeStaff{members: []staff.Member{{ID: "staff-x", OrgID: "org-1", Name: "X", Active: true}}},
		&fakeSchedules{},
		&fakeAppointments{},
		0,
		nil,
	)

	_, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if !appointment.IsValidation(err) {
		t.Fatalf("got %v, want validation error for missing locations", err)
	}
}

func TestAvailableSlotsConfiguredDefaultInterval(t *testing.T) {
	// Engine default of 60 minutes applies when the query names no interval:
	// 10:00-19:00 window, 30 minute service, hourly starts 10:00..18:00.
	schedules := &fakeSchedules{recurring: []schedule.Entry{{
		StaffID: "staff-x", Kind: schedule.KindRecurring,
		Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 19 * 60, Available: true,
	}}}
	engine := NewEngine(
		&fakeOrgs{tenant: &org.Organization{ID: "org-1", Name: "Glow Studio", Status: org.StatusActive, Timezone: "UTC"}},
		&fakeCatalog{
			svc: &catalog.Service{ID: "svc-1", OrgID: "org-1", Name: "Haircut", DurationMinutes: 30, Active: true},
			loc: &catalog.Location{ID: "loc-1", OrgID: "org-1", Name: "Main", Primary: true},
		},
		&fakeStaff{members: []staff.Member{{ID: "staff-x", OrgID: "org-1", Name: "X", Active: true}}},
		schedules,
		&fakeAppointments{},
		60,
		nil,
	)

	slots, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("expected 9 hourly slots, got %d", len(slots))
	}
	if !slots[1].Start.Equal(monday.Add(11 * time.Hour)) {
		t.Errorf("second slot = %v, want 11:00", slots[1].Start)
	}
}

func TestAvailableSlotsExcludesBookedInterval(t *testing.T) {
	// Same day with a confirmed 10:00-10:30 appointment: 10:00 gone,
	// 10:30 still offered.
	schedules := &fakeSchedules{recurring: []schedule.Entry{{
		StaffID: "staff-x", Kind: schedule.KindRecurring,
		Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 19 * 60, Available: true,
	}}}
	appts := &fakeAppointments{busy: []appointment.Appointment{{
		ID: "appt-1", StaffID: strPtr("staff-x"), Status: appointment.StatusConfirmed,
		Start: monday.Add(10 * time.Hour), End: monday.Add(10*time.Hour + 30*time.Minute),
	}}}
	engine := newTestEngine(schedules, appts)

	slots, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(monday.Add(10 * time.Hour)) {
			t.Error("10:00 slot should be excluded")
		}
	}
	if !slots[0].Start.Equal(monday.Add(10*time.Hour + 30*time.Minute)) {
		t.Errorf("first slot = %v, want 10:30", slots[0].Start)
	}
}

func TestAvailableSlotsUnavailableExceptionBlocksDay(t *testing.T) {
	schedules := &fakeSchedules{
		recurring: []schedule.Entry{{
			StaffID: "staff-x", Kind: schedule.KindRecurring,
			Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 19 * 60, Available: true,
		}},
		exceptions: []schedule.Entry{{
			StaffID: "staff-x", Kind: schedule.KindException,
			Date: monday, Available: false,
		}},
	}
	engine := newTestEngine(schedules, &fakeAppointments{})

	slots, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a blocked day, got %d", len(slots))
	}
}

func TestAvailableSlotsExceptionReplacesRecurringWindow(t *testing.T) {
	// Available exception 12:00-14:00 replaces the recurring 10:00-19:00
	// window rather than adding to it.
	schedules := &fakeSchedules{
		recurring: []schedule.Entry{{
			StaffID: "staff-x", Kind: schedule.KindRecurring,
			Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 19 * 60, Available: true,
		}},
		exceptions: []schedule.Entry{{
			StaffID: "staff-x", Kind: schedule.KindException,
			Date: monday, StartMinute: 12 * 60, EndMinute: 14 * 60, Available: true,
		}},
	}
	engine := newTestEngine(schedules, &fakeAppointments{})

	slots, err := engine.AvailableSlots(context.Background(), mondayQuery())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots in the override window, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(12 * time.Hour)) {
		t.Errorf("first slot = %v, want 12:00", slots[0].Start)
	}
	if !slots[3].Start.Equal(monday.Add(13*time.Hour + 30*time.Minute)) {
		t.Errorf("last slot = %v, want 13:30", slots[3].Start)
	}
}

func TestAvailableSlotsValidatesQuery(t *testing.T) {
	engine := newTestEngine(&fakeSchedules{}, &fakeAppointments{})

	if _, err := engine.AvailableSlots(context.Background(), Query{OrgID: "org-1", DateFrom: monday, DateTo: monday}); !appointment.IsValidation(err) {
		t.Errorf("missing service: got %v, want validation error", err)
	}
	q := mondayQuery()
	q.DateTo = monday.AddDate(0, 0, -1)
	if _, err := engine.AvailableSlots(context.Background(), q); !appointment.IsValidation(err) {
		t.Errorf("reversed range: got %v, want validation error", err)
	}
}

func TestAvailableSlotsStaffFilter(t *testing.T) {
	schedules := &fakeSchedules{recurring: []schedule.Entry{{
		StaffID: "staff-x", Kind: schedule.KindRecurring,
		Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 11 * 60, Available: true,
	}}}
	engine := newTestEngine(schedules, &fakeAppointments{})

	q := mondayQuery()
	q.StaffID = "someone-else"
	slots, err := engine.AvailableSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for unknown staff filter, got %d", len(slots))
	}
}

func strPtr(s string) *string { return &s }
