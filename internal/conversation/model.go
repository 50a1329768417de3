package conversation

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a chat thread.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// ParseStatus converts a storage string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusActive, StatusClosed:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("conversation: unknown status %q", raw)
	}
}

// Conversation is the chat thread between one org and one customer. At most
// one active conversation exists per (org, customer), enforced by a partial
// unique index.
type Conversation struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	CustomerID string         `json:"customer_id"`
	Status     Status         `json:"status"`
	Context    map[string]any `json:"context"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

const contextKeyMessages = "messages"

// historyLimit caps how many transcript turns ride along in the context
// blob. Older turns fall off; the agent only needs recent context.
const historyLimit = 20

// History decodes the recent transcript from the context blob.
func (c *Conversation) History() []ChatMessage {
	raw, ok := c.Context[contextKeyMessages].([]any)
	if !ok {
		return nil
	}
	var out []ChatMessage
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := entry["role"].(string)
		content, _ := entry["content"].(string)
		if role == "" || content == "" {
			continue
		}
		out = append(out, ChatMessage{Role: role, Content: content})
	}
	return out
}

// AppendHistory records a turn, trimming to the history limit.
func (c *Conversation) AppendHistory(role, content string) {
	if c.Context == nil {
		c.Context = make(map[string]any)
	}
	raw, _ := c.Context[contextKeyMessages].([]any)
	raw = append(raw, map[string]any{"role": role, "content": content})
	if len(raw) > historyLimit {
		raw = raw[len(raw)-historyLimit:]
	}
	c.Context[contextKeyMessages] = raw
}
