package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	graphHTTPTimeout = 10 * time.Second
	// media payloads can be large; downloads get a more generous budget
	mediaHTTPTimeout = 30 * time.Second
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// graphAPIError is the error object Meta returns on non-2xx responses, see
// https://developers.facebook.com/docs/graph-api/guides/error-handling
type graphAPIError struct {
	Message   string `json:"message,omitempty"`
	Type      string `json:"type,omitempty"`
	Code      int    `json:"code,omitempty"`
	Subcode   int    `json:"error_subcode,omitempty"`
	FBTraceID string `json:"fbtrace_id,omitempty"`
}

type graphErrorEnvelope struct {
	Error *graphAPIError `json:"error,omitempty"`
}

func newDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: graphHTTPTimeout}
}

func newHTTPClientWithTimeout(d time.Duration) *http.Client {
	if d <= 0 {
		d = graphHTTPTimeout
	}
	return &http.Client{Timeout: d}
}

func decodeGraphError(body []byte) *graphAPIError {
	if len(body) == 0 {
		return nil
	}

	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	if envelope.Error == nil {
		return nil
	}

	envelope.Error.Message = strings.TrimSpace(envelope.Error.Message)
	return envelope.Error
}

func buildGraphAPIError(statusCode int, body []byte) error {
	if apiErr := decodeGraphError(body); apiErr != nil {
		if apiErr.Code != 0 && apiErr.Message != "" {
			return fmt.Errorf("graph api error (%d, code %d): %s", statusCode, apiErr.Code, apiErr.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("graph api error (%d): %s", statusCode, apiErr.Message)
		}
		if apiErr.Code != 0 {
			return fmt.Errorf("graph api error (%d, code %d)", statusCode, apiErr.Code)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return fmt.Errorf("graph api error (%d): %s", statusCode, snippet)
}
