package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/opspilot/internal/domain"
)

const stateKeyPrefix = "oauth-state:"

// StateStore keeps single-use values with a TTL, e.g. OAuth state tokens.
type StateStore struct {
	client *redis.Client
	prefix string
}

// NewStateStore stores values under prefix + "oauth-state:" + key.
func NewStateStore(client *redis.Client, prefix string) *StateStore {
	return &StateStore{client: client, prefix: prefix + stateKeyPrefix}
}

func (s *StateStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.StateStore.Put: %w", err)
	}
	return nil
}

// Take atomically reads and deletes the value.
func (s *StateStore) Take(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis.StateStore.Take: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis.StateStore.Take: %w", err)
	}
	return v, nil
}
