package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/internal/customer"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/org"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var handlerTracer = otel.Tracer("bookline.internal.conversation.handler")

// welcomeBack is prepended to the first reply after an abandoned session is
// resumed, whether the text came from the agent or the scripted fallback.
const welcomeBack = "Welcome back! Picking up where we left off.\n\n"

// CustomerHandler runs one customer turn: conversation lookup, session
// timeout handling, the agent loop, and the flow bookkeeping its tool
// outcomes imply. All writes go through the transaction the router opened,
// so the reply is only sent for state that actually committed.
type CustomerHandler struct {
	conversations  *Store
	sessions       *flow.Store
	customers      *customer.Repository
	appointments   *appointment.Service
	engine         *availability.Engine
	catalog        *catalog.Repository
	runner         *Runner
	abandonTimeout time.Duration
	logger         *logging.Logger
}

// NewCustomerHandler wires the customer turn pipeline.
func NewCustomerHandler(
	conversations *Store,
	sessions *flow.Store,
	customers *customer.Repository,
	appointments *appointment.Service,
	engine *availability.Engine,
	cat *catalog.Repository,
	runner *Runner,
	abandonTimeout time.Duration,
	logger *logging.Logger,
) *CustomerHandler {
	if conversations == nil || sessions == nil || customers == nil || appointments == nil {
		panic("conversation: stores required")
	}
	if engine == nil || cat == nil || runner == nil {
		panic("conversation: engine, catalog and runner required")
	}
	if abandonTimeout <= 0 {
		abandonTimeout = flow.DefaultAbandonTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CustomerHandler{
		conversations:  conversations,
		sessions:       sessions,
		customers:      customers,
		appointments:   appointments,
		engine:         engine,
		catalog:        cat,
		runner:         runner,
		abandonTimeout: abandonTimeout,
		logger:         logger,
	}
}

// Handle processes one inbound customer message inside the router's
// transaction and returns the reply text.
func (h *CustomerHandler) Handle(ctx context.Context, tx pgx.Tx, o *org.Organization, cust *customer.Customer, text string, now time.Time) (string, error) {
	ctx, span := handlerTracer.Start(ctx, "conversation.customer_turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookline.org_id", o.ID),
		attribute.String("bookline.customer_id", cust.ID),
	)

	conversations := h.conversations.WithTx(tx)
	sessions := h.sessions.WithTx(tx)

	conv, err := conversations.GetOrCreateActive(ctx, o.ID, cust.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	sess, resumed, err := h.resolveSession(ctx, sessions, conv.ID, now)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	tools := &BookingTools{
		Org:          o,
		Customer:     cust,
		Catalog:      h.catalog,
		Engine:       h.engine,
		Appointments: h.appointments.WithTx(tx),
		Customers:    h.customers.WithTx(tx),
		Now:          now,
	}

	messages := append(conv.History(), ChatMessage{Role: ChatRoleUser, Content: text})
	result, err := h.runner.Run(ctx, AgentRequest{
		System:   h.systemPrompt(o, cust, sess, resumed, now),
		Messages: messages,
		Tools:    BookingToolDefs(),
	}, tools)
	if err != nil {
		if errors.Is(err, ErrAgentNotConfigured) {
			h.logger.Warn("agent not configured, sending fallback", "org_id", o.ID)
			if resumed {
				return welcomeBack + result.Text, nil
			}
			return result.Text, nil
		}
		span.RecordError(err)
		return "", err
	}

	if err := h.applyOutcomes(ctx, sessions, o.ID, conv.ID, sess, result.Outcomes, now); err != nil {
		span.RecordError(err)
		return "", err
	}

	reply := result.Text
	if resumed && reply != "" {
		reply = welcomeBack + reply
	}
	conv.AppendHistory(ChatRoleUser, text)
	conv.AppendHistory(ChatRoleAssistant, reply)
	if err := conversations.UpdateContext(ctx, conv); err != nil {
		span.RecordError(err)
		return "", err
	}
	return reply, nil
}

// resolveSession loads the conversation's active session, lazily abandoning
// it when it timed out mid-turn, and resumes the latest abandoned session
// when the customer comes back with nothing active.
func (h *CustomerHandler) resolveSession(ctx context.Context, sessions *flow.Store, conversationID string, now time.Time) (*flow.FlowSession, bool, error) {
	sess, err := sessions.GetActiveForConversation(ctx, conversationID)
	if err != nil && !errors.Is(err, flow.ErrNotFound) {
		return nil, false, err
	}
	if sess != nil {
		if !flow.TimedOut(sess, now, h.abandonTimeout) {
			return sess, false, nil
		}
		flow.Abandon(sess, now)
		if err := sessions.Update(ctx, sess); err != nil {
			return nil, false, err
		}
		if flow.Resume(sess, now) {
			if err := sessions.Update(ctx, sess); err != nil {
				return nil, false, err
			}
			return sess, true, nil
		}
		return nil, false, nil
	}

	latest, err := sessions.GetLatestForConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, flow.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !flow.Resume(latest, now) {
		return nil, false, nil
	}
	if err := sessions.Update(ctx, latest); err != nil {
		return nil, false, err
	}
	return latest, true, nil
}

// applyOutcomes advances the flow session for each tool outcome, opening a
// new session when none is active and switching flows when the customer
// changed their mind. The partial unique index backs the single-active
// invariant these writes rely on.
func (h *CustomerHandler) applyOutcomes(ctx context.Context, sessions *flow.Store, orgID, conversationID string, sess *flow.FlowSession, outcomes []flow.Outcome, now time.Time) error {
	touched := sess != nil
	for _, outcome := range outcomes {
		target, ok := flow.FlowForOutcome(outcome)
		if !ok {
			continue
		}
		if sess != nil && sess.IsActive() && sess.Type != target {
			sess.SetActive(false)
			sess.Touch(now)
			if err := sessions.Update(ctx, sess); err != nil {
				return err
			}
			sess = nil
		}
		if sess == nil || !sess.IsActive() {
			initial := flow.InitialState(target)
			fresh := &flow.FlowSession{
				OrgID:          orgID,
				ConversationID: conversationID,
				Type:           target,
				Current:        initial,
				// A flow whose initial state is already terminal (inquiry)
				// is born inactive, keeping the terminal-means-inactive
				// invariant for rows Transition never touches.
				Active:    !flow.Terminal(initial),
				LastMsgAt: now,
			}
			if fresh.Active {
				if err := flow.Transition(fresh, outcome); err != nil && !errors.Is(err, flow.ErrInvalidTransition) {
					return err
				}
			}
			if err := sessions.Create(ctx, fresh); err != nil {
				return err
			}
			sess = fresh
			continue
		}
		if err := flow.Transition(sess, outcome); err != nil {
			if errors.Is(err, flow.ErrInvalidTransition) {
				h.logger.Warn("ignoring invalid flow transition",
					"conversation_id", conversationID, "state", sess.State(), "outcome", string(outcome))
				continue
			}
			return err
		}
		sess.Touch(now)
		if err := sessions.Update(ctx, sess); err != nil {
			return err
		}
	}
	if touched && sess != nil && len(outcomes) == 0 {
		sess.Touch(now)
		return sessions.Update(ctx, sess)
	}
	return nil
}

func (h *CustomerHandler) systemPrompt(o *org.Organization, cust *customer.Customer, sess *flow.FlowSession, resumed bool, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the WhatsApp booking assistant for %s.\n", o.Name)
	fmt.Fprintf(&b, "Current time: %s (%s).\n", now.In(o.Location()).Format("Monday, Jan 2 2006 15:04"), o.Timezone)
	fmt.Fprintf(&b, "You are talking to %s.\n", cust.DisplayName())
	if cust.Name == nil {
		b.WriteString("You do not know the customer's name yet; ask for it before confirming a booking and save it with save_customer_name.\n")
	}
	b.WriteString("Help the customer book, reschedule, cancel, or rate appointments using the tools. " +
		"Always check availability before booking, and only offer slots the tools returned. " +
		"Confirm the full summary (service, date, time) before calling book_appointment. " +
		"Keep replies short and friendly, suitable for WhatsApp.\n")
	if sess != nil && sess.IsActive() {
		fmt.Fprintf(&b, "The customer is mid-way through a %s flow, currently at step %q. Continue from there.\n", sess.Type, sess.State())
	}
	if resumed {
		b.WriteString("The customer is returning to a conversation they left earlier. A welcome-back note is already prepended to your reply, so skip greetings and pick up where they left off.\n")
	}
	return b.String()
}
