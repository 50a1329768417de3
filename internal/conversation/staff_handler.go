package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/schedule"
	"github.com/bookline-ai/bookline/internal/staff"
	"github.com/bookline-ai/bookline/pkg/logging"
)

const staffHelpText = `Commands:
today - your appointments today
day YYYY-MM-DD - your appointments on a date
block YYYY-MM-DD - mark a whole day off
hours YYYY-MM-DD HH:MM-HH:MM - override your hours for a date
unblock YYYY-MM-DD - remove a day override`

// StaffHandler serves the staff command surface: schedule lookups and
// date-specific availability overrides, driven by short text commands
// rather than the agent loop.
type StaffHandler struct {
	appointments *appointment.Service
	schedules    *schedule.Repository
	customers    *customer.Repository
	catalog      *catalog.Repository
	logger       *logging.Logger
}

// NewStaffHandler wires the staff command pipeline.
func NewStaffHandler(appointments *appointment.Service, schedules *schedule.Repository, customers *customer.Repository, cat *catalog.Repository, logger *logging.Logger) *StaffHandler {
	if appointments == nil || schedules == nil || customers == nil || cat == nil {
		panic("conversation: staff handler deps required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffHandler{appointments: appointments, schedules: schedules, customers: customers, catalog: cat, logger: logger}
}

// Handle processes one staff command inside the router's transaction.
func (h *StaffHandler) Handle(ctx context.Context, tx pgx.Tx, o *org.Organization, member *staff.Member, text string, now time.Time) (string, error) {
	ctx, span := handlerTracer.Start(ctx, "conversation.staff_turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", o.ID),
		attribute.String("bookline.staff_id", member.ID),
	)

	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return staffHelpText, nil
	}
	loc := o.Location()

	switch fields[0] {
	case "today":
		return h.daySummary(ctx, tx, member, dayStart(now.In(loc)))
	case "day":
		if len(fields) < 2 {
			return staffHelpText, nil
		}
		day, err := time.ParseInLocation("2006-01-02", fields[1], loc)
		if err != nil {
			return "I couldn't read that date. Use YYYY-MM-DD, e.g. day 2026-09-01.", nil
		}
		return h.daySummary(ctx, tx, member, day)
	case "block":
		if len(fields) < 2 {
			return staffHelpText, nil
		}
		day, err := time.ParseInLocation("2006-01-02", fields[1], loc)
		if err != nil {
			return "I couldn't read that date. Use YYYY-MM-DD, e.g. block 2026-09-01.", nil
		}
		if _, err := h.schedules.WithTx(tx).UpsertException(ctx, schedule.Entry{
			OrgID:   o.ID,
			StaffID: member.ID,
			Date:    day,
		}); err != nil {
			span.RecordError(err)
			return "", err
		}
		h.logger.Info("day blocked", "org_id", o.ID, "staff_id", member.ID, "date", fields[1])
		return fmt.Sprintf("Done. %s is blocked off for you.", day.Format("Mon Jan 2")), nil
	case "hours":
		if len(fields) < 3 {
			return staffHelpText, nil
		}
		day, err := time.ParseInLocation("2006-01-02", fields[1], loc)
		if err != nil {
			return "I couldn't read that date. Use YYYY-MM-DD.", nil
		}
		startMin, endMin, err := parseHourRange(fields[2])
		if err != nil {
			return "I couldn't read that time range. Use HH:MM-HH:MM, e.g. hours 2026-09-01 12:00-17:00.", nil
		}
		if _, err := h.schedules.WithTx(tx).UpsertException(ctx, schedule.Entry{
			OrgID:       o.ID,
			StaffID:     member.ID,
			Date:        day,
			StartMinute: startMin,
			EndMinute:   endMin,
			Available:   true,
		}); err != nil {
			span.RecordError(err)
			return "", err
		}
		return fmt.Sprintf("Done. Your hours on %s are %s.", day.Format("Mon Jan 2"), fields[2]), nil
	case "unblock":
		if len(fields) < 2 {
			return staffHelpText, nil
		}
		day, err := time.ParseInLocation("2006-01-02", fields[1], loc)
		if err != nil {
			return "I couldn't read that date. Use YYYY-MM-DD.", nil
		}
		removed, err := h.schedules.WithTx(tx).DeleteException(ctx, member.ID, day)
		if err != nil {
			span.RecordError(err)
			return "", err
		}
		if !removed {
			return fmt.Sprintf("No override found for %s; your usual hours apply.", day.Format("Mon Jan 2")), nil
		}
		return fmt.Sprintf("Done. %s is back to your usual hours.", day.Format("Mon Jan 2")), nil
	default:
		return staffHelpText, nil
	}
}

func (h *StaffHandler) daySummary(ctx context.Context, tx pgx.Tx, member *staff.Member, day time.Time) (string, error) {
	appointments := h.appointments.WithTx(tx)
	customers := h.customers.WithTx(tx)

	appts, err := appointments.ListForStaffDay(ctx, member.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		return fmt.Sprintf("No appointments on %s.", day.Format("Mon Jan 2")), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your appointments on %s:\n", day.Format("Mon Jan 2"))
	for _, a := range appts {
		who := "customer"
		if cust, err := customers.GetByID(ctx, a.OrgID, a.CustomerID); err == nil {
			who = cust.DisplayName()
		}
		what := ""
		if svc, err := h.catalog.GetService(ctx, a.OrgID, a.ServiceID); err == nil {
			what = " - " + svc.Name
		}
		fmt.Fprintf(&b, "%s-%s %s%s (%s)\n",
			a.Start.In(day.Location()).Format("15:04"),
			a.End.In(day.Location()).Format("15:04"),
			who, what, a.Status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseHourRange(raw string) (startMin, endMin int, err error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("conversation: bad hour range %q", raw)
	}
	start, err := time.Parse("15:04", parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("conversation: bad start time %q: %w", parts[0], err)
	}
	end, err := time.Parse("15:04", parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("conversation: bad end time %q: %w", parts[1], err)
	}
	startMin = start.Hour()*60 + start.Minute()
	endMin = end.Hour()*60 + end.Minute()
	if endMin <= startMin {
		return 0, 0, fmt.Errorf("conversation: empty hour range %q", raw)
	}
	return startMin, endMin, nil
}
