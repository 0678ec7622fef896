package services

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"whatsapp-bridge/internal/models"
)

const (
	textSystemTemplate = "You are a helpful, concise assistant chatting on WhatsApp with %s. " +
		"Keep answers short and conversational."
	imageSystemTemplate = "You are a helpful, concise assistant chatting on WhatsApp with %s. " +
		"The user has sent an image. Describe it briefly if you can, " +
		"and respond to their caption or the image context. " +
		"If you cannot process or describe the image, acknowledge it gracefully."
)

// PromptBuilder assembles chat-completion payloads: a system message, the
// stored history, then the current user turn (plain text or multimodal).
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildText composes the prompt for a text message. systemOverride replaces
// the default system template when non-empty.
func (b *PromptBuilder) BuildText(name, body string, transcript []models.Message, systemOverride string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2+len(transcript))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: b.systemPrompt(textSystemTemplate, name, systemOverride),
	})
	messages = append(messages, historyMessages(transcript)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: body,
	})
	return messages
}

// BuildImage composes a multimodal prompt carrying the image as a data URL
// part next to a short textual framing of the caption.
func (b *PromptBuilder) BuildImage(name, dataURL, caption string, transcript []models.Message, systemOverride string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2+len(transcript))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: b.systemPrompt(imageSystemTemplate, name, systemOverride),
	})
	messages = append(messages, historyMessages(transcript)...)

	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: ImageTurnText(name, caption),
			},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
			},
		},
	})
	return messages
}

// ImageTurnText is the textual framing of an image turn. It doubles as the
// history rendering of the turn, since stored transcripts are text-only.
func ImageTurnText(name, caption string) string {
	text := fmt.Sprintf("Image received from %s.", name)
	if caption != "" {
		return text + fmt.Sprintf(" The caption is: '%s'.", caption)
	}
	return text + " There was no caption."
}

func (b *PromptBuilder) systemPrompt(template, name, override string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf(template, name)
}

func historyMessages(transcript []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, msg := range transcript {
		if msg.Content == "" {
			continue
		}
		role := msg.Role
		if role == "" {
			role = models.RoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
