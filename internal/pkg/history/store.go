package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "message_history"

// Turn is one conversation exchange half, either what the user said or
// what the assistant replied. Immutable once appended.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Store is the expiring per-(user, scope) buffer of recent conversation
// turns used to assemble LLM context windows. It is best-effort: the
// durable dialog log, not this buffer, is the permanent record, so a
// Redis outage must never block message delivery, only degrade context.
type Store struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewStore creates a history store bounded to maxTurns entries per
// buffer, each buffer expiring ttl after its last append.
func NewStore(client *redis.Client, maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Store{
		client:   client,
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

func (s *Store) key(telegramID, scope string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, telegramID)
}

// Append adds a turn to the tail of the buffer, trims the head beyond
// the configured maximum and refreshes the buffer's expiry.
func (s *Store) Append(ctx context.Context, telegramID, scope string, turn Turn) error {
	key := s.key(telegramID, scope)

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal history turn: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("history: append failed for user %s scope %s: %v", telegramID, scope, err)
		return err
	}
	return nil
}

// Read returns the buffered turns oldest-first. A missing buffer or an
// unreachable backend yields an empty slice, never an error the caller
// has to handle.
func (s *Store) Read(ctx context.Context, telegramID, scope string) []Turn {
	key := s.key(telegramID, scope)

	entries, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		log.Warnf("history: read failed for user %s scope %s: %v", telegramID, scope, err)
		return nil
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		var turn Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			log.Warnf("history: dropping malformed turn for user %s scope %s: %v", telegramID, scope, err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}

// Clear deletes the buffer. Clearing a nonexistent buffer is a no-op.
func (s *Store) Clear(ctx context.Context, telegramID, scope string) error {
	if err := s.client.Del(ctx, s.key(telegramID, scope)).Err(); err != nil {
		log.Warnf("history: clear failed for user %s scope %s: %v", telegramID, scope, err)
		return err
	}
	return nil
}
