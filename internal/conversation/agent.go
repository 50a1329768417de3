package conversation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bookline-ai/bookline/internal/flow"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleTool      = "tool"
)

// ErrAgentNotConfigured indicates no usable agent client; callers degrade to
// a scripted fallback response.
var ErrAgentNotConfigured = errors.New("conversation: agent not configured")

// ChatMessage is one transcript entry sent to the agent.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is one function invocation requested by the agent.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ToolDef describes one callable tool in the schema handed to the agent.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// AgentRequest is one model invocation: system prompt, transcript, tool
// schema.
type AgentRequest struct {
	System   string
	Messages []ChatMessage
	Tools    []ToolDef
}

// AgentTurn is the sum-typed result of one model invocation: either final
// text for the user, or a batch of tool calls to execute and feed back.
type AgentTurn struct {
	FinalText string
	ToolCalls []ToolCall
}

// IsFinal reports whether this turn ends the tool-calling loop.
func (t AgentTurn) IsFinal() bool {
	return len(t.ToolCalls) == 0
}

// AgentClient is the conversational-agent collaborator boundary.
type AgentClient interface {
	Complete(ctx context.Context, req AgentRequest) (AgentTurn, error)
}

// ToolResult is the structured outcome of executing one tool call. The
// Outcome field, when set, drives flow-session transitions; Content is fed
// back to the agent verbatim.
type ToolResult struct {
	Content string
	Outcome flow.Outcome
}

// ToolExecutor runs tool calls issued by the agent.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}
