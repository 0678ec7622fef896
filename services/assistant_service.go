package services

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"whatsapp-bridge/internal/history"
	"whatsapp-bridge/internal/models"
)

const (
	llmFailureReply   = "I encountered an issue trying to process your request. Please try again."
	mediaFailureReply = "I couldn't read that image. Please try sending it again."
)

// Completer produces an assistant reply for a prepared prompt.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// TextSender delivers a text message to a WhatsApp contact.
type TextSender interface {
	SendText(ctx context.Context, waID, text string) (string, error)
}

// MediaResolver turns a Cloud API media ID into an inline data URL.
type MediaResolver interface {
	DataURL(ctx context.Context, mediaID string) (string, error)
}

// AssistantService orchestrates one inbound message end to end: history
// lookup, prompt assembly, completion, outbound send, history update.
type AssistantService struct {
	llm     Completer
	sender  TextSender
	media   MediaResolver
	store   history.Store
	prompts *PromptBuilder
	trimmer *Tokenizer
	logger  *zap.SugaredLogger
}

func NewAssistantService(
	llm Completer,
	sender TextSender,
	media MediaResolver,
	store history.Store,
	trimmer *Tokenizer,
	logger *zap.SugaredLogger,
) *AssistantService {
	return &AssistantService{
		llm:     llm,
		sender:  sender,
		media:   media,
		store:   store,
		prompts: NewPromptBuilder(),
		trimmer: trimmer,
		logger:  logger,
	}
}

// HandleText answers a plain text message.
func (a *AssistantService) HandleText(ctx context.Context, waID, name, body string) error {
	transcript, err := a.store.List(ctx, waID)
	if err != nil {
		a.logger.Warnw("history lookup failed, continuing without context", "wa_id", waID, "error", err)
	}

	prompt := a.prompts.BuildText(name, body, transcript, "")
	return a.respond(ctx, waID, body, prompt)
}

// HandleImage answers an image message by inlining the picture into a
// multimodal prompt.
func (a *AssistantService) HandleImage(ctx context.Context, waID, name, mediaID, caption string) error {
	dataURL, err := a.media.DataURL(ctx, mediaID)
	if err != nil {
		a.logger.Warnw("media fetch failed", "wa_id", waID, "media_id", mediaID, "error", err)
		_, sendErr := a.sender.SendText(ctx, waID, mediaFailureReply)
		return sendErr
	}

	transcript, err := a.store.List(ctx, waID)
	if err != nil {
		a.logger.Warnw("history lookup failed, continuing without context", "wa_id", waID, "error", err)
	}

	prompt := a.prompts.BuildImage(name, dataURL, caption, transcript, "")
	return a.respond(ctx, waID, ImageTurnText(name, caption), prompt)
}

// respond runs the completion, sends the reply, and records the exchange.
// userTurn is the textual rendering stored in history for the inbound side.
func (a *AssistantService) respond(ctx context.Context, waID, userTurn string, prompt []openai.ChatCompletionMessage) error {
	if a.trimmer != nil {
		prompt = a.trimmer.Trim(prompt)
	}

	reply, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		// the contact still gets an answer; the exchange is not recorded so
		// the failed turn cannot poison future prompts
		a.logger.Warnw("completion failed", "wa_id", waID, "error", err)
		_, sendErr := a.sender.SendText(ctx, waID, llmFailureReply)
		return sendErr
	}

	if _, err := a.sender.SendText(ctx, waID, reply); err != nil {
		return err
	}

	if err := a.store.Append(ctx, waID, models.Message{Role: models.RoleUser, Content: userTurn}); err != nil {
		a.logger.Warnw("history append failed", "wa_id", waID, "error", err)
	}
	if err := a.store.Append(ctx, waID, models.Message{Role: models.RoleAssistant, Content: reply}); err != nil {
		a.logger.Warnw("history append failed", "wa_id", waID, "error", err)
	}

	return nil
}
