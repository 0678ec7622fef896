package models

import (
	"encoding/json"
	"errors"
	"testing"
)

const textEventJSON = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550009999", "phone_number_id": "1234567890"},
        "contacts": [{"wa_id": "15550001111", "profile": {"name": "Alice"}}],
        "messages": [{
          "id": "wamid.abc",
          "from": "15550001111",
          "timestamp": "1714000000",
          "type": "text",
          "text": {"body": "hello there"}
        }]
      }
    }]
  }]
}`

func TestExtractInboundText(t *testing.T) {
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(textEventJSON), &payload); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}

	inbound, err := payload.ExtractInbound()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inbound.MessageID != "wamid.abc" {
		t.Errorf("unexpected message id %q", inbound.MessageID)
	}
	if inbound.WaID != "15550001111" || inbound.Name != "Alice" {
		t.Errorf("unexpected contact: %q / %q", inbound.WaID, inbound.Name)
	}
	if inbound.Type != "text" || inbound.Text != "hello there" {
		t.Errorf("unexpected message content: %q / %q", inbound.Type, inbound.Text)
	}
}

func TestExtractInboundImage(t *testing.T) {
	payload := WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []WebhookEntry{{
			Changes: []WebhookChange{{
				Value: WebhookValue{
					Contacts: []WebhookContact{{WaID: "15550001111"}},
					Messages: []WebhookMessage{{
						ID:    "wamid.img",
						Type:  "image",
						Image: &ImageContent{ID: "media-1", MimeType: "image/jpeg", Caption: "a beach"},
					}},
				},
			}},
		}},
	}

	inbound, err := payload.ExtractInbound()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inbound.MediaID != "media-1" || inbound.Caption != "a beach" {
		t.Errorf("unexpected media fields: %q / %q", inbound.MediaID, inbound.Caption)
	}
}

func TestExtractInboundFallsBackToFrom(t *testing.T) {
	payload := WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []WebhookEntry{{
			Changes: []WebhookChange{{
				Value: WebhookValue{
					Contacts: []WebhookContact{{}},
					Messages: []WebhookMessage{{
						ID:   "wamid.x",
						From: "15550002222",
						Type: "text",
						Text: &TextContent{Body: "hi"},
					}},
				},
			}},
		}},
	}

	inbound, err := payload.ExtractInbound()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inbound.WaID != "15550002222" {
		t.Errorf("expected wa_id taken from the message sender, got %q", inbound.WaID)
	}
}

func TestExtractInboundWrongObject(t *testing.T) {
	payload := WebhookPayload{Object: "instagram"}
	if _, err := payload.ExtractInbound(); !errors.Is(err, ErrWrongObject) {
		t.Fatalf("expected ErrWrongObject, got %v", err)
	}
}

func TestExtractInboundStatusOnly(t *testing.T) {
	payload := WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []WebhookEntry{{
			Changes: []WebhookChange{{
				Value: WebhookValue{
					Statuses: []WebhookStatus{{ID: "wamid.sent", Status: "delivered"}},
				},
			}},
		}},
	}
	if _, err := payload.ExtractInbound(); !errors.Is(err, ErrNotUserMessage) {
		t.Fatalf("expected ErrNotUserMessage, got %v", err)
	}
}

func TestExtractInboundEmptyPayload(t *testing.T) {
	payload := WebhookPayload{Object: "whatsapp_business_account"}
	if _, err := payload.ExtractInbound(); !errors.Is(err, ErrNotUserMessage) {
		t.Fatalf("expected ErrNotUserMessage, got %v", err)
	}
}
