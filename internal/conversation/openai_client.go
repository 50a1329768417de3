package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the OpenAI chat-completions API with tool calling to
// the AgentClient boundary.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds the client. Returns nil when no API key is set;
// callers treat a nil agent as not configured and fall back to scripted
// responses.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}
}

var _ AgentClient = (*OpenAIClient)(nil)

// Complete runs one model invocation and maps the response into the
// FinalText-or-ToolCalls sum.
func (c *OpenAIClient) Complete(ctx context.Context, req AgentRequest) (AgentTurn, error) {
	if c == nil || c.client == nil {
		return AgentTurn{}, ErrAgentNotConfigured
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return AgentTurn{}, fmt.Errorf("conversation: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AgentTurn{}, fmt.Errorf("conversation: empty completion response")
	}

	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			calls = append(calls, ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: json.RawMessage(tc.Function.Arguments),
			})
		}
		return AgentTurn{ToolCalls: calls}, nil
	}
	return AgentTurn{FinalText: choice.Content}, nil
}

func toOpenAIMessage(m ChatMessage) openai.ChatCompletionMessage {
	out := openai.ChatCompletionMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: string(tc.Args),
			},
		})
	}
	return out
}
