package conversation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/pkg/logging"
)

var runnerTracer = otel.Tracer("bookline.internal.conversation.runner")

// DefaultMaxToolRounds bounds the agent's tool-calling sub-loop per inbound
// message.
const DefaultMaxToolRounds = 5

// FallbackResponse is sent when the agent is unavailable or the loop cannot
// produce text. Router bookkeeping still commits around it.
const FallbackResponse = "Sorry, I'm having trouble responding right now. Please try again in a moment, or call the business directly."

// RunResult is what one full agent loop produced: the text to send and the
// ordered tool outcomes that drive flow transitions.
type RunResult struct {
	Text     string
	Outcomes []flow.Outcome
}

// Runner drives the agent through a bounded tool-calling loop. Hitting the
// round cap degrades to the best available text rather than failing the
// request.
type Runner struct {
	agent     AgentClient
	maxRounds int
	logger    *logging.Logger
}

// NewRunner constructs a runner. A nil agent is allowed and yields the
// scripted fallback on every run.
func NewRunner(agent AgentClient, maxRounds int, logger *logging.Logger) *Runner {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{agent: agent, maxRounds: maxRounds, logger: logger}
}

// Run executes the loop: ask the agent, execute any requested tools, feed
// the structured results back, repeat until final text or the round cap.
func (r *Runner) Run(ctx context.Context, req AgentRequest, exec ToolExecutor) (RunResult, error) {
	ctx, span := runnerTracer.Start(ctx, "conversation.agent_loop")
	defer span.End()

	if r.agent == nil {
		return RunResult{Text: FallbackResponse}, ErrAgentNotConfigured
	}

	result := RunResult{}
	messages := req.Messages

	for round := 0; round < r.maxRounds; round++ {
		turn, err := r.agent.Complete(ctx, AgentRequest{System: req.System, Messages: messages, Tools: req.Tools})
		if err != nil {
			span.RecordError(err)
			if errors.Is(err, ErrAgentNotConfigured) {
				result.Text = FallbackResponse
				return result, err
			}
			r.logger.Error("agent completion failed", "error", err, "round", round)
			result.Text = FallbackResponse
			return result, nil
		}

		if turn.IsFinal() {
			result.Text = turn.FinalText
			span.SetAttributes(attribute.Int("bookline.agent_rounds", round+1))
			return result, nil
		}

		messages = append(messages, ChatMessage{Role: ChatRoleAssistant, ToolCalls: turn.ToolCalls})
		for _, call := range turn.ToolCalls {
			toolResult, err := exec.Execute(ctx, call)
			if err != nil {
				// Tool failures are reported back to the agent, which can
				// explain them to the user; they do not abort the turn.
				r.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
				toolResult = ToolResult{Content: "error: " + err.Error()}
			}
			if toolResult.Outcome != "" {
				result.Outcomes = append(result.Outcomes, toolResult.Outcome)
			}
			messages = append(messages, ChatMessage{
				Role:       ChatRoleTool,
				Content:    toolResult.Content,
				ToolCallID: call.ID,
			})
		}
	}

	// Round cap hit: surface the best available text.
	r.logger.Warn("agent tool loop hit round cap", "max_rounds", r.maxRounds)
	result.Text = FallbackResponse
	return result, nil
}
