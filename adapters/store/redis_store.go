package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onchain-guard/gatekeeper/ports"
)

// RedisStore is a Redis-backed revocation list shared by all instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis revocation list.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:revoked:",
	}
}

// Revoke records tokenID as revoked; the key expires with the token.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is currently revoked.
func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return val > 0, nil
}

var _ ports.RevocationList = (*RedisStore)(nil)
