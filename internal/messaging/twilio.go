package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/tenancy"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var twilioTracer = otel.Tracer("bookline.internal.messaging.twilio")

// TwilioWhatsAppSender posts WhatsApp messages through Twilio's REST API.
type TwilioWhatsAppSender struct {
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioWhatsAppSender builds a sender with sane defaults. defaultFrom is
// the central number, used when a send does not name a sender number.
func NewTwilioWhatsAppSender(accountSID, authToken, defaultFrom string, logger *logging.Logger) *TwilioWhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioWhatsAppSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

var _ Transport = (*TwilioWhatsAppSender)(nil)

// Send dispatches a single WhatsApp message from the given number, falling
// back to the default from number when none is given.
func (s *TwilioWhatsAppSender) Send(ctx context.Context, from, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return ErrNotConfigured
	}
	if from == "" {
		from = s.from
	}
	if NormalizeE164(to) == "" {
		return errors.New("messaging: to required")
	}
	if NormalizeE164(from) == "" {
		return errors.New("messaging: from required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("bookline.to", NormalizeE164(to)))
	if orgID, ok := tenancy.OrgIDFromContext(ctx); ok {
		span.SetAttributes(attribute.String("bookline.org_id", orgID))
	}

	payload := url.Values{}
	payload.Set("To", WhatsAppAddress(to))
	payload.Set("From", WhatsAppAddress(from))
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("messaging: build request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("messaging: twilio send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("messaging: twilio send status %d: %s", resp.StatusCode, twilioErrorMessage(raw))
		span.RecordError(err)
		return err
	}
	return nil
}

func twilioErrorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
