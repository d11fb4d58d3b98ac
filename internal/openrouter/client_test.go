package openrouter_test

import (
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ndrwnv/zubrilabot/internal/memory"
	"github.com/ndrwnv/zubrilabot/internal/openrouter"
)

func TestBuildMessages(t *testing.T) {
	t.Parallel()

	history := []memory.Exchange{
		{Prompt: "first question", Response: "first answer", CreatedAt: time.Now()},
		{Prompt: "second question", Response: "second answer", CreatedAt: time.Now()},
	}

	messages := openrouter.BuildMessages("system text", history, "current question")

	if len(messages) != 6 {
		t.Fatalf("len(messages) = %d, want 6", len(messages))
	}

	want := []struct {
		role    string
		content string
	}{
		{openai.ChatMessageRoleSystem, "system text"},
		{openai.ChatMessageRoleUser, "first question"},
		{openai.ChatMessageRoleAssistant, "first answer"},
		{openai.ChatMessageRoleUser, "second question"},
		{openai.ChatMessageRoleAssistant, "second answer"},
		{openai.ChatMessageRoleUser, "current question"},
	}

	for i, w := range want {
		if messages[i].Role != w.role || messages[i].Content != w.content {
			t.Errorf("messages[%d] = (%s, %q), want (%s, %q)",
				i, messages[i].Role, messages[i].Content, w.role, w.content)
		}
	}
}

func TestBuildMessagesWithoutHistory(t *testing.T) {
	t.Parallel()

	messages := openrouter.BuildMessages("system text", nil, "question")

	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("messages[0].Role = %s, want system", messages[0].Role)
	}
	if messages[1].Role != openai.ChatMessageRoleUser || messages[1].Content != "question" {
		t.Errorf("messages[1] = (%s, %q), want user question", messages[1].Role, messages[1].Content)
	}
}
