package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/messaging"
	"github.com/bookline-ai/bookline/internal/router"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var webhookTracer = otel.Tracer("bookline.internal.http.webhook")

// WebhookHandler receives Twilio WhatsApp form posts and feeds them through
// the router. Replies go out over the transport after commit, so the webhook
// itself answers with an empty TwiML ack.
type WebhookHandler struct {
	router        *router.Router
	webhookSecret string
	logger        *logging.Logger
}

// NewWebhookHandler wires the inbound webhook.
func NewWebhookHandler(rt *router.Router, webhookSecret string, logger *logging.Logger) *WebhookHandler {
	if rt == nil {
		panic("handlers: router required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{router: rt, webhookSecret: webhookSecret, logger: logger}
}

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioWebhook handles POST /messaging/twilio/webhook.
func (h *WebhookHandler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "http.twilio_webhook")
	defer span.End()

	if h.webhookSecret != "" {
		if !messaging.ValidateSignature(r, h.webhookSecret, absoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	webhook, err := messaging.ParseWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	if webhook.MessageSid == "" || webhook.From == "" || webhook.Body == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("bookline.provider_message_id", webhook.MessageSid))

	res, err := h.router.Route(ctx, router.Inbound{
		ProviderMessageID: webhook.MessageSid,
		From:              webhook.From,
		To:                webhook.To,
		Body:              webhook.Body,
		DisplayName:       webhook.ProfileName,
		ReceivedAt:        time.Now(),
	})
	if err != nil {
		if errors.Is(err, router.ErrConversationBusy) {
			// 429 makes Twilio redeliver once the in-flight turn finishes.
			http.Error(w, "Busy", http.StatusTooManyRequests)
			return
		}
		h.logger.Error("routing failed", "error", err, "message_sid", webhook.MessageSid)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}
	if res.Status == router.StatusDuplicate {
		h.logger.Info("duplicate delivery acked", "message_sid", webhook.MessageSid)
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}

func absoluteURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
			scheme = fwd
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
