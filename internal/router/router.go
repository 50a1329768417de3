package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/conversation"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/messaging"
	"github.com/bookline-ai/bookline/internal/observability/metrics"
	"github.com/bookline-ai/bookline/internal/onboarding"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/internal/staff"
	"github.com/bookline-ai/bookline/internal/tenancy"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var tracer = otel.Tracer("bookline.internal.router")

// Route names the handler a message resolved to.
type Route string

const (
	RouteCustomer   Route = "customer"
	RouteStaff      Route = "staff"
	RouteOnboarding Route = "onboarding"
)

// Status is the outcome of one inbound delivery.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDuplicate Status = "duplicate"
)

// Inbound is one provider delivery.
type Inbound struct {
	ProviderMessageID string
	From              string
	To                string
	Body              string
	DisplayName       string
	ReceivedAt        time.Time

	// SuppressTransmit skips the outbound send after commit. Set by the
	// simulation entrypoint, which returns the response text instead.
	SuppressTransmit bool
}

// Result reports how a delivery was handled.
type Result struct {
	Status       Status `json:"status"`
	Route        Route  `json:"route,omitempty"`
	OrgID        string `json:"org_id,omitempty"`
	ResponseText string `json:"response_text,omitempty"`
}

// DB is the subset of pgxpool.Pool the router needs; narrowed so tests can
// substitute a mock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Router resolves each inbound message to a tenant and actor, dispatches it,
// and commits the dedup row together with whatever the handler wrote. The
// reply transmit happens after commit and never rolls anything back.
type Router struct {
	pool          DB
	orgs          *org.Repository
	staff         *staff.Repository
	customers     *customer.Repository
	inbound       *InboundStore
	locker        *Locker
	customerFlow  *conversation.CustomerHandler
	staffHandler  *conversation.StaffHandler
	onboarding    *onboarding.Handler
	transport     messaging.Transport
	centralNumber string
	metrics       *metrics.RouterMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// Config collects the router's dependencies.
type Config struct {
	Pool            DB
	Orgs            *org.Repository
	Staff           *staff.Repository
	Customers       *customer.Repository
	Inbound         *InboundStore
	Locker          *Locker
	CustomerHandler *conversation.CustomerHandler
	StaffHandler    *conversation.StaffHandler
	Onboarding      *onboarding.Handler
	Transport       messaging.Transport
	CentralNumber   string
	Metrics         *metrics.RouterMetrics
	Logger          *logging.Logger
}

// New builds the router.
func New(cfg Config) *Router {
	if cfg.Pool == nil || cfg.Orgs == nil || cfg.Staff == nil || cfg.Customers == nil || cfg.Inbound == nil {
		panic("router: pool and repositories required")
	}
	if cfg.CustomerHandler == nil || cfg.StaffHandler == nil || cfg.Onboarding == nil {
		panic("router: handlers required")
	}
	if cfg.Transport == nil {
		cfg.Transport = messaging.NewNoopTransport()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Router{
		pool:          cfg.Pool,
		orgs:          cfg.Orgs,
		staff:         cfg.Staff,
		customers:     cfg.Customers,
		inbound:       cfg.Inbound,
		locker:        cfg.Locker,
		customerFlow:  cfg.CustomerHandler,
		staffHandler:  cfg.StaffHandler,
		onboarding:    cfg.Onboarding,
		transport:     cfg.Transport,
		centralNumber: messaging.NormalizeE164(cfg.CentralNumber),
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// Route handles one inbound message end to end.
func (r *Router) Route(ctx context.Context, in Inbound) (Result, error) {
	ctx, span := tracer.Start(ctx, "router.route")
	defer span.End()

	started := r.now()
	from := messaging.NormalizeE164(in.From)
	to := messaging.NormalizeE164(in.To)
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = started
	}
	span.SetAttributes(attribute.String("bookline.provider_message_id", in.ProviderMessageID))

	if in.ProviderMessageID == "" || from == "" {
		return Result{}, fmt.Errorf("router: message id and sender required")
	}

	// Fast path. The authoritative gate is the insert inside the
	// transaction; this just spares redeliveries the full pipeline.
	seen, err := r.inbound.Seen(ctx, in.ProviderMessageID)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if seen {
		r.metrics.ObserveDuplicate()
		return Result{Status: StatusDuplicate}, nil
	}

	route, tenant, member, err := r.resolve(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String("bookline.route", string(route)))

	orgID := "central"
	if tenant != nil {
		orgID = tenant.ID
		ctx = tenancy.WithOrgID(ctx, tenant.ID)
		span.SetAttributes(attribute.String("bookline.org_id", tenant.ID))
	}
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, orgID, from)
		switch {
		case err == nil:
			defer release()
		case errors.Is(err, ErrConversationBusy):
			span.RecordError(err)
			return Result{}, err
		default:
			// Redis outage. Serve the message without serialization; the
			// dedup insert still guards redelivery.
			span.RecordError(err)
			r.logger.Warn("conversation lock unavailable, proceeding unlocked", "error", err)
		}
	}

	res, err := r.dispatch(ctx, in, from, to, route, tenant, member)
	if err != nil {
		span.RecordError(err)
		r.metrics.ObserveInbound(string(route), "error")
		return Result{}, err
	}
	r.metrics.ObserveInbound(string(route), string(res.Status))
	r.metrics.ObserveRouteLatency(string(route), r.now().Sub(started).Seconds())

	if res.Status == StatusProcessed && res.ResponseText != "" && !in.SuppressTransmit {
		// Reply from the number the customer wrote to, so tenant-number
		// conversations stay on the tenant's WhatsApp thread.
		replyFrom := to
		if replyFrom == "" {
			replyFrom = r.centralNumber
		}
		r.transmit(ctx, replyFrom, from, res.ResponseText)
	}
	return res, nil
}

// resolve picks the tenant and actor. Per the catch-all rule it never
// fails a message for being unrecognized: onboarding absorbs everything
// the tenant and staff lookups cannot place.
func (r *Router) resolve(ctx context.Context, from, to string) (Route, *org.Organization, *staff.Member, error) {
	if to != "" && to != r.centralNumber {
		tenant, err := r.orgs.GetByNumber(ctx, to)
		if err != nil {
			if errors.Is(err, org.ErrNotFound) {
				return RouteOnboarding, nil, nil, nil
			}
			return "", nil, nil, err
		}
		member, err := r.staff.FindActiveByPhone(ctx, tenant.ID, from)
		if err != nil {
			if errors.Is(err, staff.ErrNotFound) {
				return RouteCustomer, tenant, nil, nil
			}
			return "", nil, nil, err
		}
		return RouteStaff, tenant, member, nil
	}

	// Central number: staff phones are globally unique, so a match routes
	// to their org even without a tenant number.
	member, err := r.staff.FindActiveByPhoneGlobal(ctx, from)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return RouteOnboarding, nil, nil, nil
		}
		return "", nil, nil, err
	}
	tenant, err := r.orgs.GetByID(ctx, member.OrgID)
	if err != nil {
		return "", nil, nil, err
	}
	return RouteStaff, tenant, member, nil
}

// dispatch runs the resolved handler inside one transaction with the dedup
// insert, so a crash mid-handler leaves no half-processed message behind.
func (r *Router) dispatch(ctx context.Context, in Inbound, from, to string, route Route, tenant *org.Organization, member *staff.Member) (Result, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("router: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted, err := r.inbound.WithTx(tx).Record(ctx, in.ProviderMessageID, from, to, string(route), in.ReceivedAt)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		r.metrics.ObserveDuplicate()
		return Result{Status: StatusDuplicate}, nil
	}

	res := Result{Status: StatusProcessed, Route: route}
	if tenant != nil {
		res.OrgID = tenant.ID
	}

	switch route {
	case RouteOnboarding:
		res.ResponseText, err = r.onboarding.Handle(ctx, tx, from, in.Body, in.ReceivedAt)
	case RouteStaff:
		res.ResponseText, err = r.staffHandler.Handle(ctx, tx, tenant, member, in.Body, in.ReceivedAt)
	case RouteCustomer:
		if !tenant.Serving() {
			res.ResponseText = tenant.Name + " is not taking bookings over WhatsApp right now. Please contact the business directly."
			break
		}
		var cust *customer.Customer
		cust, err = r.customers.WithTx(tx).GetOrCreateByPhone(ctx, tenant.ID, from, in.DisplayName)
		if err != nil {
			break
		}
		res.ResponseText, err = r.customerFlow.Handle(ctx, tx, tenant, cust, in.Body, in.ReceivedAt)
	default:
		err = fmt.Errorf("router: unknown route %q", route)
	}
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("router: commit: %w", err)
	}
	return res, nil
}

// transmit sends the reply. Fire and forget: the state is committed, so a
// transport failure is logged and counted but never surfaced.
func (r *Router) transmit(ctx context.Context, from, to, body string) {
	if err := r.transport.Send(ctx, from, to, body); err != nil {
		r.metrics.ObserveTransmit("error")
		r.logger.Error("transmit failed", "to", to, "error", err)
		return
	}
	r.metrics.ObserveTransmit("ok")
}
