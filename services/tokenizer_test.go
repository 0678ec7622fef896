package services

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func requireEncoding(t *testing.T, tok *Tokenizer) {
	t.Helper()
	if _, err := tok.encoding(); err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
}

func TestCountTokensGrowsWithContent(t *testing.T) {
	tok := NewTokenizer("gpt-4o-mini", 4096, 512)
	requireEncoding(t, tok)

	short, err := tok.CountTokens([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	long, err := tok.CountTokens([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: strings.Repeat("many words here ", 50)},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if short <= 0 {
		t.Fatalf("expected a positive count, got %d", short)
	}
	if long <= short {
		t.Fatalf("expected longer content to count more tokens: short=%d long=%d", short, long)
	}
}

func TestCountTokensIncludesTextParts(t *testing.T) {
	tok := NewTokenizer("gpt-4o-mini", 4096, 512)
	requireEncoding(t, tok)

	plain, err := tok.CountTokens([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	multi, err := tok.CountTokens([]openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "describe this image in detail"},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: "data:image/jpeg;base64,YWJj"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if multi <= plain {
		t.Fatalf("expected text parts to be counted: plain=%d multi=%d", plain, multi)
	}
}

func TestTrimKeepsShortPrompts(t *testing.T) {
	tok := NewTokenizer("gpt-4o-mini", 4096, 512)

	prompt := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are helpful."},
		{Role: openai.ChatMessageRoleUser, Content: "hello"},
	}
	trimmed := tok.Trim(prompt)
	if len(trimmed) != len(prompt) {
		t.Fatalf("expected a short prompt untouched, got %d messages", len(trimmed))
	}
}

func TestTrimDropsOldestTurnsFirst(t *testing.T) {
	tok := NewTokenizer("gpt-4o-mini", 200, 50)
	requireEncoding(t, tok)

	filler := strings.Repeat("lengthy conversation filler ", 20)
	prompt := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are helpful."},
		{Role: openai.ChatMessageRoleUser, Content: "oldest " + filler},
		{Role: openai.ChatMessageRoleAssistant, Content: "old reply " + filler},
		{Role: openai.ChatMessageRoleUser, Content: "newer " + filler},
		{Role: openai.ChatMessageRoleAssistant, Content: "newer reply " + filler},
		{Role: openai.ChatMessageRoleUser, Content: "the current question"},
	}

	trimmed := tok.Trim(prompt)

	if len(trimmed) >= len(prompt) {
		t.Fatalf("expected some turns dropped, kept %d of %d", len(trimmed), len(prompt))
	}
	if trimmed[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected the system message to survive, got role %q", trimmed[0].Role)
	}
	last := trimmed[len(trimmed)-1]
	if last.Content != "the current question" {
		t.Fatalf("expected the newest turn to survive, got %q", last.Content)
	}
	for _, msg := range trimmed[1:] {
		if strings.HasPrefix(msg.Content, "oldest ") {
			t.Fatal("expected the oldest turn to be dropped first")
		}
	}
}
