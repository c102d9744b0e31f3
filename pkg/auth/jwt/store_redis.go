package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/unibot/pkg/component/redis"
)

// RedisStore implements Store using Redis, for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed revocation store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "jwt:revoked:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Revoke marks a token ID as revoked, expiring with the token.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiration time.Duration) error {
	return s.client.Client().Set(ctx, s.prefix+tokenID, "revoked", expiration).Err()
}

// IsRevoked checks whether a token ID is on the revocation list.
func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := s.client.Client().Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return count > 0, nil
}

// Close is a no-op; the client is managed externally.
func (s *RedisStore) Close() error {
	return nil
}
