package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/org"
)

// BookingTools executes the customer-facing tool surface. Built per turn
// with transaction-scoped stores, so every mutation joins the inbound
// message's atomic commit.
type BookingTools struct {
	Org          *org.Organization
	Customer     *customer.Customer
	Catalog      *catalog.Repository
	Engine       *availability.Engine
	Appointments *appointment.Service
	Customers    *customer.Repository
	Now          time.Time
}

var _ ToolExecutor = (*BookingTools)(nil)

// BookingToolDefs is the tool schema handed to the agent for customer
// conversations.
func BookingToolDefs() []ToolDef {
	return []ToolDef{
		{
			Name:        "list_services",
			Description: "List the services this business offers, with duration and price.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		{
			Name:        "check_availability",
			Description: "Find open appointment slots for a service between two dates. Dates are YYYY-MM-DD in the business timezone.",
			Parameters: json.RawMessage(`{"type":"object","properties":{
				"service_id":{"type":"string"},
				"date_from":{"type":"string"},
				"date_to":{"type":"string"},
				"staff_id":{"type":"string"}
			},"required":["service_id","date_from","date_to"]}`),
		},
		{
			Name:        "save_customer_name",
			Description: "Save the customer's name once they share it.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
		},
		{
			Name:        "book_appointment",
			Description: "Book a slot previously returned by check_availability. Start is RFC3339.",
			Parameters: json.RawMessage(`{"type":"object","properties":{
				"service_id":{"type":"string"},
				"start":{"type":"string"},
				"staff_id":{"type":"string"}
			},"required":["service_id","start"]}`),
		},
		{
			Name:        "list_my_appointments",
			Description: "List the customer's upcoming appointments.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		{
			Name:        "select_booking",
			Description: "Record which upcoming appointment the customer wants to change or cancel.",
			Parameters: json.RawMessage(`{"type":"object","properties":{
				"appointment_id":{"type":"string"},
				"intent":{"type":"string","enum":["modify","cancel"]}
			},"required":["appointment_id","intent"]}`),
		},
		{
			Name:        "reschedule_appointment",
			Description: "Move an appointment to a new start time. Start is RFC3339.",
			Parameters: json.RawMessage(`{"type":"object","properties":{
				"appointment_id":{"type":"string"},
				"new_start":{"type":"string"}
			},"required":["appointment_id","new_start"]}`),
		},
		{
			Name:        "cancel_appointment",
			Description: "Cancel an appointment after the customer confirms.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"appointment_id":{"type":"string"}},"required":["appointment_id"]}`),
		},
		{
			Name:        "submit_rating",
			Description: "Record a 1-5 rating and optional feedback for a completed visit.",
			Parameters: json.RawMessage(`{"type":"object","properties":{
				"appointment_id":{"type":"string"},
				"rating":{"type":"integer"},
				"feedback":{"type":"string"}
			},"required":["appointment_id","rating"]}`),
		},
		{
			Name:        "log_inquiry",
			Description: "Mark a general question (hours, prices, directions) as answered.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"topic":{"type":"string"}},"required":["topic"]}`),
		},
	}
}

// Execute dispatches one tool call.
func (t *BookingTools) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	switch call.Name {
	case "list_services":
		return t.listServices(ctx)
	case "check_availability":
		return t.checkAvailability(ctx, call.Args)
	case "save_customer_name":
		return t.saveCustomerName(ctx, call.Args)
	case "book_appointment":
		return t.bookAppointment(ctx, call.Args)
	case "list_my_appointments":
		return t.listMyAppointments(ctx)
	case "select_booking":
		return t.selectBooking(ctx, call.Args)
	case "reschedule_appointment":
		return t.rescheduleAppointment(ctx, call.Args)
	case "cancel_appointment":
		return t.cancelAppointment(ctx, call.Args)
	case "submit_rating":
		return t.submitRating(ctx, call.Args)
	case "log_inquiry":
		return ToolResult{Content: `{"ok":true}`, Outcome: flow.OutcomeInquiryAnswered}, nil
	default:
		return ToolResult{}, fmt.Errorf("conversation: unknown tool %q", call.Name)
	}
}

func (t *BookingTools) listServices(ctx context.Context) (ToolResult, error) {
	services, err := t.Catalog.ListActiveServices(ctx, t.Org.ID)
	if err != nil {
		return ToolResult{}, err
	}
	type svc struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Minutes  int    `json:"duration_minutes"`
		PriceCts int    `json:"price_cents"`
	}
	out := make([]svc, 0, len(services))
	for _, s := range services {
		out = append(out, svc{ID: s.ID, Name: s.Name, Minutes: s.DurationMinutes, PriceCts: s.PriceCents})
	}
	return ToolResult{Content: mustJSON(out)}, nil
}

func (t *BookingTools) checkAvailability(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		ServiceID string `json:"service_id"`
		DateFrom  string `json:"date_from"`
		DateTo    string `json:"date_to"`
		StaffID   string `json:"staff_id"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad check_availability args: %w", err)
	}
	from, err := t.parseDate(req.DateFrom)
	if err != nil {
		return ToolResult{}, err
	}
	to, err := t.parseDate(req.DateTo)
	if err != nil {
		return ToolResult{}, err
	}
	slots, err := t.Engine.AvailableSlots(ctx, availability.Query{
		OrgID:     t.Org.ID,
		ServiceID: req.ServiceID,
		DateFrom:  from,
		DateTo:    to,
		StaffID:   req.StaffID,
	})
	if err != nil {
		return ToolResult{}, err
	}
	type slot struct {
		StaffID string `json:"staff_id"`
		Start   string `json:"start"`
	}
	out := make([]slot, 0, len(slots))
	for _, s := range slots {
		out = append(out, slot{StaffID: s.StaffID, Start: s.Start.Format(time.RFC3339)})
	}
	return ToolResult{Content: mustJSON(out), Outcome: flow.OutcomeAvailabilityChecked}, nil
}

func (t *BookingTools) saveCustomerName(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		return ToolResult{}, fmt.Errorf("conversation: bad save_customer_name args")
	}
	if err := t.Customers.UpdateName(ctx, t.Org.ID, t.Customer.ID, strings.TrimSpace(req.Name)); err != nil {
		return ToolResult{}, err
	}
	name := strings.TrimSpace(req.Name)
	t.Customer.Name = &name
	return ToolResult{Content: `{"ok":true}`, Outcome: flow.OutcomePersonalInfoCollected}, nil
}

func (t *BookingTools) bookAppointment(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		ServiceID string `json:"service_id"`
		Start     string `json:"start"`
		StaffID   string `json:"staff_id"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad book_appointment args: %w", err)
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad start time: %w", err)
	}
	var staffID *string
	if req.StaffID != "" {
		staffID = &req.StaffID
	}
	appt, err := t.Appointments.Create(ctx, appointment.CreateRequest{
		OrgID:      t.Org.ID,
		CustomerID: t.Customer.ID,
		ServiceID:  req.ServiceID,
		StaffID:    staffID,
		Start:      start,
		Confirmed:  true,
	})
	if err != nil {
		if appointment.IsConflict(err) {
			return ToolResult{Content: `{"ok":false,"reason":"slot no longer available"}`}, nil
		}
		return ToolResult{}, err
	}
	return ToolResult{
		Content: mustJSON(map[string]any{"ok": true, "appointment_id": appt.ID, "start": appt.Start.Format(time.RFC3339)}),
		Outcome: flow.OutcomeBooked,
	}, nil
}

func (t *BookingTools) listMyAppointments(ctx context.Context) (ToolResult, error) {
	appts, err := t.Appointments.ListUpcomingForCustomer(ctx, t.Org.ID, t.Customer.ID, t.Now)
	if err != nil {
		return ToolResult{}, err
	}
	type item struct {
		ID     string `json:"id"`
		Start  string `json:"start"`
		Status string `json:"status"`
	}
	out := make([]item, 0, len(appts))
	for _, a := range appts {
		out = append(out, item{ID: a.ID, Start: a.Start.Format(time.RFC3339), Status: string(a.Status)})
	}
	return ToolResult{Content: mustJSON(out)}, nil
}

func (t *BookingTools) selectBooking(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		AppointmentID string `json:"appointment_id"`
		Intent        string `json:"intent"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad select_booking args: %w", err)
	}
	outcome := flow.OutcomeBookingIdentified
	if req.Intent == "cancel" {
		outcome = flow.OutcomeCancelConfirmed
	}
	return ToolResult{Content: `{"ok":true}`, Outcome: outcome}, nil
}

func (t *BookingTools) rescheduleAppointment(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		AppointmentID string `json:"appointment_id"`
		NewStart      string `json:"new_start"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad reschedule args: %w", err)
	}
	start, err := time.Parse(time.RFC3339, req.NewStart)
	if err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad new_start: %w", err)
	}
	appt, err := t.Appointments.Reschedule(ctx, t.Org.ID, req.AppointmentID, nil, nil, start)
	if err != nil {
		if appointment.IsConflict(err) {
			return ToolResult{Content: `{"ok":false,"reason":"new slot not available"}`}, nil
		}
		return ToolResult{}, err
	}
	return ToolResult{
		Content: mustJSON(map[string]any{"ok": true, "start": appt.Start.Format(time.RFC3339)}),
		Outcome: flow.OutcomeModified,
	}, nil
}

func (t *BookingTools) cancelAppointment(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad cancel args: %w", err)
	}
	if _, err := t.Appointments.Cancel(ctx, t.Org.ID, req.AppointmentID); err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: `{"ok":true}`, Outcome: flow.OutcomeCancelled}, nil
}

func (t *BookingTools) submitRating(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req struct {
		AppointmentID string  `json:"appointment_id"`
		Rating        int     `json:"rating"`
		Feedback      *string `json:"feedback"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return ToolResult{}, fmt.Errorf("conversation: bad rating args: %w", err)
	}
	if err := t.Appointments.Rate(ctx, t.Org.ID, req.AppointmentID, req.Rating, req.Feedback); err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: `{"ok":true}`, Outcome: flow.OutcomeRatingSubmitted}, nil
}

func (t *BookingTools) parseDate(raw string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", raw, t.Org.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("conversation: bad date %q: %w", raw, err)
	}
	return day, nil
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
