package onboarding

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/pkg/logging"
)

var tracer = otel.Tracer("bookline.internal.onboarding")

// Handler runs the scripted onboarding exchange for senders the router
// could not match to any tenant. It never errors a message away: whatever
// the sender writes gets a reply and a lead record.
type Handler struct {
	leads  *Repository
	logger *logging.Logger
}

// NewHandler wires the onboarding script.
func NewHandler(leads *Repository, logger *logging.Logger) *Handler {
	if leads == nil {
		panic("onboarding: lead repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{leads: leads, logger: logger}
}

// Handle processes one message from an unrecognized sender inside the
// router's transaction.
func (h *Handler) Handle(ctx context.Context, tx pgx.Tx, phone, text string, now time.Time) (string, error) {
	ctx, span := tracer.Start(ctx, "onboarding.turn")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.phone", phone))

	leads := h.leads.WithTx(tx)
	lead, err := leads.Touch(ctx, phone)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if lead.MessageCount == 1 {
		h.logger.Info("new onboarding lead", "phone", phone)
		return "Hi! This is Bookline, the WhatsApp booking assistant for local businesses. " +
			"If you run a business and want customers to book over WhatsApp, reply with your business name and we'll get you set up.", nil
	}

	if lead.BusinessName == nil {
		name := strings.TrimSpace(text)
		if name != "" && len(name) <= 120 {
			if err := leads.SetBusinessName(ctx, phone, name); err != nil {
				span.RecordError(err)
				return "", err
			}
			return "Thanks! We've noted " + name + ". Our team will reach out shortly to finish setting up your booking number.", nil
		}
	}

	return "Thanks for your message! Our team will be in touch soon. " +
		"If you meant to book an appointment with a business, message their booking number directly.", nil
}
