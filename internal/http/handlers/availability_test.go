package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
)

func newAvailabilityFixture(t *testing.T) *AvailabilityHandler {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	engine := availability.NewEngine(
		org.NewRepositoryWithQuerier(mock),
		catalog.NewRepositoryWithQuerier(mock),
		staff.NewRepositoryWithQuerier(mock),
		schedule.NewRepositoryWithQuerier(mock),
		appointment.NewRepositoryWithQuerier(mock),
		0,
		nil,
	)
	return NewAvailabilityHandler(engine, nil)
}

func TestAvailabilityQueryValidation(t *testing.T) {
	h := newAvailabilityFixture(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing org", `{"service_id":"7b0ce615-6ba0-4a6b-9f21-f46a3e0cfa6b","date_from":"2026-09-07","date_to":"2026-09-07"}`},
		{"org not uuid", `{"org_id":"org-1","service_id":"7b0ce615-6ba0-4a6b-9f21-f46a3e0cfa6b","date_from":"2026-09-07","date_to":"2026-09-07"}`},
		{"bad date", `{"org_id":"8a250e3d-13a1-4f22-9a6e-2f01a53a61c4","service_id":"7b0ce615-6ba0-4a6b-9f21-f46a3e0cfa6b","date_from":"next week","date_to":"2026-09-07"}`},
		{"interval too small", `{"org_id":"8a250e3d-13a1-4f22-9a6e-2f01a53a61c4","service_id":"7b0ce615-6ba0-4a6b-9f21-f46a3e0cfa6b","date_from":"2026-09-07","date_to":"2026-09-07","interval_minutes":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/availability/query", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.Query(w, r)
			if w.Code != 400 {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}
