package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onchain-guard/gatekeeper/ports"
)

// RedisStore is a Redis-backed nonce store for multi-instance deployments.
// Consume relies on GETDEL so concurrent duplicate submissions of the same
// nonce resolve to exactly one winner; Redis key expiry handles eviction.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis nonce store. A ttl of zero selects
// DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:nonce:",
		ttl:    ttl,
	}
}

// Issue generates and records a fresh nonce with the store's TTL.
func (s *RedisStore) Issue(ctx context.Context) (string, error) {
	value, err := newValue()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+value, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}

	return value, nil
}

// Consume atomically removes value from the store.
func (s *RedisStore) Consume(ctx context.Context, value string) (bool, error) {
	_, err := s.client.GetDel(ctx, s.prefix+value).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return true, nil
}

var _ ports.NonceStore = (*RedisStore)(nil)
