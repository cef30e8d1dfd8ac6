package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers processor event ids that were already fulfilled. It is a
// fast path only: the authoritative duplicate check is the unique payment
// transaction id on the orders table.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(eventID string) string {
	return fmt.Sprintf("idem:webhook:%s", eventID)
}

// Seen reports whether the key was marked earlier. A redis failure reads as
// not seen so the caller falls through to the database check.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key after the event was fully processed. Marking before
// processing would swallow the processor's redelivery of a failed attempt.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
