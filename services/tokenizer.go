package services

import (
	"fmt"

	tokenizer "github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// Tokenizer bounds prompt size before a completion call. Counting uses
// tiktoken encodings; image parts are not countable and are priced by the
// provider separately, so only text content enters the count.
type Tokenizer struct {
	model    string
	limit    int
	reserved int
}

// NewTokenizer creates a tokenizer for the given model with limit tokens of
// context, reserving reserved tokens for the completion.
func NewTokenizer(model string, limit, reserved int) *Tokenizer {
	if limit <= 0 {
		limit = 4096
	}
	if reserved <= 0 {
		reserved = 512
	}
	return &Tokenizer{model: model, limit: limit, reserved: reserved}
}

// CountTokens estimates the prompt size of messages.
func (t *Tokenizer) CountTokens(messages []openai.ChatCompletionMessage) (int, error) {
	enc, err := t.encoding()
	if err != nil {
		return 0, err
	}

	total := 0
	none := []string{}
	for _, msg := range messages {
		total += len(enc.Encode(msg.Role, none, none))
		total += len(enc.Encode(msg.Content, none, none))
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				total += len(enc.Encode(part.Text, none, none))
			}
		}
	}
	// every reply is primed with <|start|>assistant
	total += 3
	return total, nil
}

// Trim drops the oldest non-system messages until the prompt fits inside the
// context window minus the reserved completion budget. The system message and
// the final user turn always survive.
func (t *Tokenizer) Trim(messages []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	budget := t.limit - t.reserved
	if budget <= 0 || len(messages) <= 2 {
		return messages
	}

	count, err := t.CountTokens(messages)
	if err != nil || count <= budget {
		return messages
	}

	kept := make([]openai.ChatCompletionMessage, 0, len(messages))
	systemCount := 0
	for _, msg := range messages {
		if msg.Role == openai.ChatMessageRoleSystem {
			kept = append(kept, msg)
			systemCount++
		}
	}

	// walk backwards from the newest turn, keeping whatever still fits
	tail := make([]openai.ChatCompletionMessage, 0, len(messages)-systemCount)
	for i := len(messages) - 1; i >= systemCount; i-- {
		candidate := make([]openai.ChatCompletionMessage, 0, len(kept)+len(tail)+1)
		candidate = append(candidate, kept...)
		candidate = append(candidate, messages[i])
		candidate = append(candidate, tail...)

		tokens, err := t.CountTokens(candidate)
		if err != nil {
			break
		}
		if tokens > budget && len(tail) > 0 {
			break
		}
		tail = append([]openai.ChatCompletionMessage{messages[i]}, tail...)
	}

	return append(kept, tail...)
}

func (t *Tokenizer) encoding() (*tokenizer.Tiktoken, error) {
	if enc, err := tokenizer.EncodingForModel(t.model); err == nil {
		return enc, nil
	}
	enc, err := tokenizer.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get cl100k_base encoding: %w", err)
	}
	return enc, nil
}
