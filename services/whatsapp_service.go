package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"whatsapp-bridge/config"
)

// maxOutboundRunes is the Cloud API body limit for a single text message.
const maxOutboundRunes = 4096

// WhatsAppService sends messages through the Meta Cloud API.
type WhatsAppService struct {
	sendURL     string
	accessToken string
	client      httpDoer
	logger      *zap.SugaredLogger
}

// NewWhatsAppService constructs the outbound adapter from cfg.
func NewWhatsAppService(cfg *config.Config, logger *zap.SugaredLogger) *WhatsAppService {
	wa := cfg.WhatsApp
	return &WhatsAppService{
		sendURL:     fmt.Sprintf("%s/%s/%s/messages", wa.GraphBaseURL, wa.APIVersion, wa.PhoneNumberID),
		accessToken: wa.AccessToken,
		client:      newDefaultHTTPClient(),
		logger:      logger,
	}
}

type textMessagePayload struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type sendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphAPIError `json:"error,omitempty"`
}

// SendText delivers a text message to the contact identified by waID. The
// returned string is the message ID assigned by Meta.
func (s *WhatsAppService) SendText(ctx context.Context, waID, text string) (string, error) {
	waID = strings.TrimSpace(waID)
	if waID == "" {
		return "", fmt.Errorf("recipient wa_id is required")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("message text cannot be empty")
	}
	text = truncateRunes(text, maxOutboundRunes)

	payload := textMessagePayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               "+" + strings.TrimPrefix(waID, "+"),
		Type:             "text",
		Text:             textPayload{PreviewURL: false, Body: text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal message payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create send request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+s.accessToken)
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("call send message api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read send response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", buildGraphAPIError(response.StatusCode, respBody)
	}

	var apiResp sendMessageResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	if apiResp.Error != nil && apiResp.Error.Message != "" {
		return "", fmt.Errorf("whatsapp send error: %s", apiResp.Error.Message)
	}

	messageID := ""
	if len(apiResp.Messages) > 0 {
		messageID = apiResp.Messages[0].ID
	}

	s.logger.Debugw("message sent", "to", payload.To, "message_id", messageID)
	return messageID, nil
}

func truncateRunes(input string, max int) string {
	if max <= 0 {
		return input
	}
	runes := []rune(input)
	if len(runes) <= max {
		return input
	}
	return string(runes[:max-1]) + "…"
}
