package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestWhatsAppService(t *testing.T, handler http.HandlerFunc) (*WhatsAppService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := &WhatsAppService{
		sendURL:     server.URL + "/v19.0/1234567890/messages",
		accessToken: "test-token",
		client:      server.Client(),
		logger:      zap.NewNop().Sugar(),
	}
	return svc, server
}

func TestSendTextSuccess(t *testing.T) {
	var captured map[string]any
	svc, _ := newTestWhatsAppService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.out.1"}]}`))
	})

	messageID, err := svc.SendText(context.Background(), "15550001111", "hello back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messageID != "wamid.out.1" {
		t.Fatalf("expected message id wamid.out.1, got %q", messageID)
	}

	if captured["messaging_product"] != "whatsapp" {
		t.Errorf("unexpected messaging_product %v", captured["messaging_product"])
	}
	if captured["recipient_type"] != "individual" {
		t.Errorf("unexpected recipient_type %v", captured["recipient_type"])
	}
	if captured["to"] != "+15550001111" {
		t.Errorf("expected recipient +15550001111, got %v", captured["to"])
	}
	text, _ := captured["text"].(map[string]any)
	if text["body"] != "hello back" {
		t.Errorf("unexpected body %v", text["body"])
	}
	if text["preview_url"] != false {
		t.Errorf("expected preview_url false, got %v", text["preview_url"])
	}
}

func TestSendTextDoesNotDoublePlusPrefix(t *testing.T) {
	var to string
	svc, _ := newTestWhatsAppService(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		to, _ = payload["to"].(string)
		w.Write([]byte(`{"messages":[{"id":"wamid.out.2"}]}`))
	})

	if _, err := svc.SendText(context.Background(), "+15550001111", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if to != "+15550001111" {
		t.Fatalf("expected +15550001111, got %q", to)
	}
}

func TestSendTextTruncatesLongMessages(t *testing.T) {
	var sentBody string
	svc, _ := newTestWhatsAppService(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		text, _ := payload["text"].(map[string]any)
		sentBody, _ = text["body"].(string)
		w.Write([]byte(`{"messages":[{"id":"wamid.out.3"}]}`))
	})

	long := strings.Repeat("a", 5000)
	if _, err := svc.SendText(context.Background(), "15550001111", long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len([]rune(sentBody)); got != maxOutboundRunes {
		t.Fatalf("expected body trimmed to %d runes, got %d", maxOutboundRunes, got)
	}
	if !strings.HasSuffix(sentBody, "…") {
		t.Fatal("expected truncated body to end with an ellipsis")
	}
}

func TestSendTextGraphError(t *testing.T) {
	svc, _ := newTestWhatsAppService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190,"fbtrace_id":"trace-1"}}`))
	})

	_, err := svc.SendText(context.Background(), "15550001111", "hello")
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Fatalf("expected the api message surfaced, got %q", err)
	}
	if !strings.Contains(err.Error(), "190") {
		t.Fatalf("expected the api code surfaced, got %q", err)
	}
}

func TestSendTextRejectsEmptyInput(t *testing.T) {
	svc, _ := newTestWhatsAppService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued for invalid input")
	})

	if _, err := svc.SendText(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected error for empty wa_id")
	}
	if _, err := svc.SendText(context.Background(), "15550001111", "   "); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("expected short string unchanged, got %q", got)
	}
	got := truncateRunes("héllo wörld", 5)
	if len([]rune(got)) != 5 {
		t.Fatalf("expected 5 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}
