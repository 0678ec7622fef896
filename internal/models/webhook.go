package models

import "errors"

// Webhook payload shapes for Meta's WhatsApp Business Cloud API, reduced to
// the fields this service consumes. See
// https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/payload-examples
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *TextContent  `json:"text,omitempty"`
	Image     *ImageContent `json:"image,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type ImageContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Sha256   string `json:"sha256"`
	Caption  string `json:"caption"`
}

// Statuses (sent/delivered/read) arrive on the same webhook; they are
// acknowledged but never processed.
type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Inbound is the extracted view of one user message, valid only for the
// duration of a single delivery.
type Inbound struct {
	MessageID string
	WaID      string
	Name      string
	Type      string
	Text      string
	MediaID   string
	Caption   string
}

var (
	ErrNotUserMessage = errors.New("payload carries no user message")
	ErrWrongObject    = errors.New("payload is not a whatsapp business account event")
)

// ExtractInbound validates the fixed webhook shape and pulls out the first
// message together with its contact. Status-only payloads return
// ErrNotUserMessage so callers can acknowledge them without processing.
func (p *WebhookPayload) ExtractInbound() (*Inbound, error) {
	if p.Object != "whatsapp_business_account" {
		return nil, ErrWrongObject
	}
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, ErrNotUserMessage
	}

	value := p.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 || len(value.Contacts) == 0 {
		return nil, ErrNotUserMessage
	}

	contact := value.Contacts[0]
	msg := value.Messages[0]
	if msg.Type == "" {
		return nil, ErrNotUserMessage
	}

	inbound := &Inbound{
		MessageID: msg.ID,
		WaID:      contact.WaID,
		Name:      contact.Profile.Name,
		Type:      msg.Type,
	}
	if inbound.WaID == "" {
		inbound.WaID = msg.From
	}

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			inbound.Text = msg.Text.Body
		}
	case "image":
		if msg.Image != nil {
			inbound.MediaID = msg.Image.ID
			inbound.Caption = msg.Image.Caption
		}
	}

	return inbound, nil
}
