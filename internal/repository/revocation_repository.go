package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revokedKeyPrefix = "revoked:"

// RevocationRepository tracks revoked access tokens in Redis. Keys carry a
// TTL equal to the token's remaining lifetime, so the set is shared across
// instances and prunes itself.
type RevocationRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRevocationRepository constructs a revocation repository.
func NewRevocationRepository(client *redis.Client, logger *zap.Logger) *RevocationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationRepository{client: client, logger: logger}
}

// Revoke marks a token as revoked until its natural expiry. Tokens that are
// already past expiry need no entry.
func (r *RevocationRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := revokedKey(token)
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// IsRevoked reports whether a token is in the revoked set. Lookup failures
// propagate so callers can fail closed.
func (r *RevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	key := revokedKey(token)
	_, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return true, nil
}

// Tokens are bearer secrets: only their digest is stored.
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}
