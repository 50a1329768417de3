package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/org"
)

func TestBookingToolDefsCoverExecutor(t *testing.T) {
	// Every advertised tool must dispatch; an agent calling a tool from
	// the schema should never hit the unknown-tool branch.
	tools := &BookingTools{
		Org:      &org.Organization{ID: "org-1", Timezone: "UTC"},
		Customer: &customer.Customer{ID: "cust-1"},
	}
	known := map[string]bool{
		"list_services": true, "check_availability": true, "save_customer_name": true,
		"book_appointment": true, "list_my_appointments": true, "select_booking": true,
		"reschedule_appointment": true, "cancel_appointment": true, "submit_rating": true,
		"log_inquiry": true,
	}
	for _, def := range BookingToolDefs() {
		if !known[def.Name] {
			t.Errorf("schema advertises unhandled tool %q", def.Name)
		}
		if def.Description == "" || len(def.Parameters) == 0 {
			t.Errorf("tool %q missing description or parameters", def.Name)
		}
	}
	if _, err := tools.Execute(context.Background(), ToolCall{Name: "forge_invoice"}); err == nil {
		t.Fatal("unknown tool accepted")
	}
}

func TestSelectBookingIntentOutcome(t *testing.T) {
	tools := &BookingTools{Org: &org.Organization{ID: "org-1"}, Customer: &customer.Customer{ID: "cust-1"}}

	res, err := tools.Execute(context.Background(), ToolCall{
		Name: "select_booking",
		Args: []byte(`{"appointment_id":"appt-1","intent":"cancel"}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != flow.OutcomeCancelConfirmed {
		t.Fatalf("cancel intent outcome = %q", res.Outcome)
	}

	res, err = tools.Execute(context.Background(), ToolCall{
		Name: "select_booking",
		Args: []byte(`{"appointment_id":"appt-1","intent":"modify"}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != flow.OutcomeBookingIdentified {
		t.Fatalf("modify intent outcome = %q", res.Outcome)
	}
}

func TestLogInquiryOutcome(t *testing.T) {
	tools := &BookingTools{Org: &org.Organization{ID: "org-1"}, Customer: &customer.Customer{ID: "cust-1"}}

	res, err := tools.Execute(context.Background(), ToolCall{Name: "log_inquiry", Args: []byte(`{"topic":"hours"}`)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != flow.OutcomeInquiryAnswered {
		t.Fatalf("outcome = %q", res.Outcome)
	}
}

func TestSaveCustomerName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE end_customers").
		WithArgs("cust-1", "org-1", "Sam").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cust := &customer.Customer{ID: "cust-1", OrgID: "org-1"}
	tools := &BookingTools{
		Org:       &org.Organization{ID: "org-1"},
		Customer:  cust,
		Customers: customer.NewRepositoryWithQuerier(mock),
	}

	res, err := tools.Execute(context.Background(), ToolCall{
		Name: "save_customer_name",
		Args: []byte(`{"name":"  Sam  "}`),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != flow.OutcomePersonalInfoCollected {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	if cust.Name == nil || *cust.Name != "Sam" {
		t.Fatalf("customer name not updated in memory: %v", cust.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListServices(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM service_types").
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "org_id", "name", "duration_minutes", "price_cents", "active", "created_at"}).
			AddRow("svc-1", "org-1", "Haircut", 30, 3500, true, time.Now()))

	tools := &BookingTools{
		Org:      &org.Organization{ID: "org-1"},
		Customer: &customer.Customer{ID: "cust-1"},
		Catalog:  catalog.NewRepositoryWithQuerier(mock),
	}

	res, err := tools.Execute(context.Background(), ToolCall{Name: "list_services"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(res.Content, "Haircut") || !strings.Contains(res.Content, "3500") {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Outcome != "" {
		t.Fatalf("list_services should not emit an outcome, got %q", res.Outcome)
	}
}

func TestParseDateUsesOrgTimezone(t *testing.T) {
	tools := &BookingTools{Org: &org.Organization{ID: "org-1", Timezone: "Europe/Madrid"}}

	day, err := tools.parseDate("2026-09-07")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if day.Location().String() != "Europe/Madrid" {
		t.Fatalf("location = %v", day.Location())
	}
	if day.Hour() != 0 || day.Day() != 7 {
		t.Fatalf("day = %v", day)
	}

	if _, err := tools.parseDate("next tuesday"); err == nil {
		t.Fatal("free-text date accepted")
	}
}
