package messaging

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConfigured indicates the transport has no usable credentials.
var ErrNotConfigured = errors.New("messaging: transport not configured")

// Transport delivers outbound messages. The from number keeps replies on
// the WhatsApp thread the customer wrote to; an empty from falls back to
// the transport's default. Errors are logged by callers and never roll back
// committed state.
type Transport interface {
	Send(ctx context.Context, from, to, body string) error
}

// NoopTransport swallows sends. Used by the simulation entrypoint and tests.
type NoopTransport struct {
	mu   sync.Mutex
	sent []SentMessage
}

// SentMessage records one suppressed send.
type SentMessage struct {
	From string
	To   string
	Body string
}

func NewNoopTransport() *NoopTransport {
	return &NoopTransport{}
}

// Send records the message without delivering it.
func (t *NoopTransport) Send(ctx context.Context, from, to, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, SentMessage{From: from, To: to, Body: body})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (t *NoopTransport) Sent() []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentMessage, len(t.sent))
	copy(out, t.sent)
	return out
}
