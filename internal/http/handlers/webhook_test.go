package handlers

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/conversation"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/onboarding"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/router"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
)

func newWebhookFixture(t *testing.T) (*WebhookHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	orgs := org.NewRepositoryWithQuerier(mock)
	staffRepo := staff.NewRepositoryWithQuerier(mock)
	customers := customer.NewRepositoryWithQuerier(mock)
	catalogRepo := catalog.NewRepositoryWithQuerier(mock)
	scheduleRepo := schedule.NewRepositoryWithQuerier(mock)
	apptRepo := appointment.NewRepositoryWithQuerier(mock)
	apptSvc := appointment.NewService(apptRepo, appointment.NewResolver(apptRepo), catalogRepo, nil)
	engine := availability.NewEngine(orgs, catalogRepo, staffRepo, scheduleRepo, apptRepo, 0, nil)
	runner := conversation.NewRunner(nil, 0, nil)

	rt := router.New(router.Config{
		Pool:      mock,
		Orgs:      orgs,
		Staff:     staffRepo,
		Customers: customers,
		Inbound:   router.NewInboundStoreWithQuerier(mock),
		CustomerHandler: conversation.NewCustomerHandler(
			conversation.NewStoreWithQuerier(mock),
			flow.NewStoreWithQuerier(mock),
			customers, apptSvc, engine, catalogRepo, runner, 0, nil,
		),
		StaffHandler:  conversation.NewStaffHandler(apptSvc, scheduleRepo, customers, catalogRepo, nil),
		Onboarding:    onboarding.NewHandler(onboarding.NewRepositoryWithQuerier(mock), nil),
		CentralNumber: "+14155550000",
	})
	return NewWebhookHandler(rt, "", nil), mock
}

func TestTwilioWebhookRejectsMissingFields(t *testing.T) {
	h, _ := newWebhookFixture(t)

	form := url.Values{"MessageSid": {"SM1"}, "From": {"whatsapp:+15551234567"}}
	r := httptest.NewRequest("POST", "/messaging/twilio/webhook", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.TwilioWebhook(w, r)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTwilioWebhookAcksDuplicate(t *testing.T) {
	h, mock := newWebhookFixture(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM inbound_messages`).
		WithArgs("SM1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	form := url.Values{
		"MessageSid": {"SM1"},
		"From":       {"whatsapp:+15551234567"},
		"To":         {"whatsapp:+14155550000"},
		"Body":       {"hello again"},
	}
	r := httptest.NewRequest("POST", "/messaging/twilio/webhook", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.TwilioWebhook(w, r)
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Response></Response>") {
		t.Fatalf("body = %q, want empty TwiML", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("content type = %q", ct)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTwilioWebhookRejectsBadSignature(t *testing.T) {
	h, _ := newWebhookFixture(t)
	h.webhookSecret = "twilio-auth-token"

	form := url.Values{
		"MessageSid": {"SM1"},
		"From":       {"whatsapp:+15551234567"},
		"Body":       {"hello"},
	}
	r := httptest.NewRequest("POST", "/messaging/twilio/webhook", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", "forged")
	w := httptest.NewRecorder()

	h.TwilioWebhook(w, r)
	if w.Code != 401 {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
