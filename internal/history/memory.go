package history

import (
	"context"
	"sync"

	"whatsapp-bridge/internal/models"
)

// MemoryStore holds transcripts in-process. State is lost on restart, which
// matches the lifetime of a webhook relay with no durable storage.
type MemoryStore struct {
	mu      sync.RWMutex
	byWaID  map[string][]models.Message
	maxMsgs int
}

// NewMemoryStore builds a store keeping at most maxTurns user/assistant pairs
// per contact.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 12
	}
	return &MemoryStore{
		byWaID:  make(map[string][]models.Message),
		maxMsgs: maxTurns * 2,
	}
}

func (s *MemoryStore) Append(_ context.Context, waID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := append(s.byWaID[waID], msg)
	if excess := len(transcript) - s.maxMsgs; excess > 0 {
		transcript = transcript[excess:]
	}
	s.byWaID[waID] = transcript
	return nil
}

func (s *MemoryStore) List(_ context.Context, waID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transcript := s.byWaID[waID]
	if len(transcript) == 0 {
		return nil, nil
	}
	out := make([]models.Message, len(transcript))
	copy(out, transcript)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, waID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byWaID, waID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
