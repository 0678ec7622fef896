package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"whatsapp-bridge/internal/models"
)

// RedisStore keeps each contact's transcript as one JSON blob with a TTL, so
// idle conversations age out instead of growing without bound.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	maxMsgs int
}

func NewRedisStore(client *redis.Client, ttl time.Duration, maxTurns int) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxTurns <= 0 {
		maxTurns = 12
	}
	return &RedisStore{client: client, ttl: ttl, maxMsgs: maxTurns * 2}
}

func historyKey(waID string) string {
	return "chat_history:" + waID
}

func (s *RedisStore) Append(ctx context.Context, waID string, msg models.Message) error {
	transcript, err := s.List(ctx, waID)
	if err != nil {
		return err
	}

	transcript = append(transcript, msg)
	if excess := len(transcript) - s.maxMsgs; excess > 0 {
		transcript = transcript[excess:]
	}

	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := s.client.Set(ctx, historyKey(waID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, waID string) ([]models.Message, error) {
	data, err := s.client.Get(ctx, historyKey(waID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	var transcript []models.Message
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return transcript, nil
}

func (s *RedisStore) Clear(ctx context.Context, waID string) error {
	if err := s.client.Del(ctx, historyKey(waID)).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
