package conversation

import (
	"fmt"
	"testing"
)

func TestAppendHistoryAndDecode(t *testing.T) {
	c := &Conversation{}

	c.AppendHistory(ChatRoleUser, "hi")
	c.AppendHistory(ChatRoleAssistant, "hello!")

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != ChatRoleUser || history[0].Content != "hi" {
		t.Fatalf("first entry = %+v", history[0])
	}
	if history[1].Role != ChatRoleAssistant || history[1].Content != "hello!" {
		t.Fatalf("second entry = %+v", history[1])
	}
}

func TestAppendHistoryTrimsOldTurns(t *testing.T) {
	c := &Conversation{}
	for i := 0; i < historyLimit+5; i++ {
		c.AppendHistory(ChatRoleUser, fmt.Sprintf("message %d", i))
	}

	history := c.History()
	if len(history) != historyLimit {
		t.Fatalf("history length = %d, want %d", len(history), historyLimit)
	}
	if history[0].Content != "message 5" {
		t.Fatalf("oldest surviving entry = %q, want message 5", history[0].Content)
	}
	if history[len(history)-1].Content != fmt.Sprintf("message %d", historyLimit+4) {
		t.Fatalf("newest entry = %q", history[len(history)-1].Content)
	}
}

func TestHistorySkipsMalformedEntries(t *testing.T) {
	c := &Conversation{Context: map[string]any{
		contextKeyMessages: []any{
			map[string]any{"role": ChatRoleUser, "content": "kept"},
			map[string]any{"role": "", "content": "dropped"},
			"not an object",
		},
	}}

	history := c.History()
	if len(history) != 1 || history[0].Content != "kept" {
		t.Fatalf("history = %+v", history)
	}
}

func TestHistoryEmptyContext(t *testing.T) {
	c := &Conversation{}
	if got := c.History(); got != nil {
		t.Fatalf("expected nil history, got %v", got)
	}
}
