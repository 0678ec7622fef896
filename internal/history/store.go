package history

import (
	"context"

	"whatsapp-bridge/internal/models"
)

// Store keeps the per-contact conversation transcript. Implementations must
// be safe for concurrent use: Meta retries deliveries and nothing prevents
// two webhooks for the same contact from racing.
type Store interface {
	// Append records one turn for the contact, discarding the oldest turns
	// once the transcript exceeds the configured bound.
	Append(ctx context.Context, waID string, msg models.Message) error
	// List returns the transcript in order, oldest first.
	List(ctx context.Context, waID string) ([]models.Message, error)
	// Clear drops the transcript for the contact.
	Clear(ctx context.Context, waID string) error
}
