package services

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"whatsapp-bridge/config"
)

// emptyCompletionReply is returned when the backend answers with no usable
// text; the contact still deserves an answer.
const emptyCompletionReply = "I received that, but I'm not sure how to respond just yet."

// completionAPI is the slice of the OpenAI client the service uses; tests
// substitute a fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMService issues chat completions against whichever OpenAI-compatible
// backend the configuration selected (OpenAI, Azure OpenAI or vLLM).
type LLMService struct {
	client      completionAPI
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.SugaredLogger
}

// NewLLMService builds the client for the configured provider.
func NewLLMService(cfg *config.Config, logger *zap.SugaredLogger) (*LLMService, error) {
	llm := cfg.LLM

	var clientCfg openai.ClientConfig
	switch llm.Provider {
	case config.ProviderAzure:
		clientCfg = openai.DefaultAzureConfig(llm.APIKey, llm.AzureEndpoint)
		if llm.AzureAPIVer != "" {
			clientCfg.APIVersion = llm.AzureAPIVer
		}
	case config.ProviderOpenAI, config.ProviderVLLM:
		clientCfg = openai.DefaultConfig(llm.APIKey)
		if llm.BaseURL != "" {
			clientCfg.BaseURL = llm.BaseURL
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", llm.Provider)
	}

	return &LLMService{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       llm.Model,
		temperature: llm.Temperature,
		maxTokens:   llm.MaxTokens,
		logger:      logger,
	}, nil
}

// Complete requests a chat completion for the prepared prompt and returns the
// assistant text.
func (s *LLMService) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("prompt contains no messages")
	}

	response, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return emptyCompletionReply, nil
	}

	if response.Usage.TotalTokens > 0 {
		s.logger.Debugw("completion usage",
			"prompt_tokens", response.Usage.PromptTokens,
			"completion_tokens", response.Usage.CompletionTokens)
	}

	return text, nil
}

// Model returns the chat model or deployment in use.
func (s *LLMService) Model() string {
	return s.model
}
