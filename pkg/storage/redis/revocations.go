package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/platinummonkey/larder/pkg/observability"
)

// DefaultKeyPrefix namespaces revocation keys
const DefaultKeyPrefix = "larder:revoked:"

// RevocationStore keeps revoked tokens as Redis keys that expire with the token
type RevocationStore struct {
	client  *goredis.Client
	prefix  string
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRevocationStore creates a Redis-backed revocation list. metrics may be nil.
func NewRevocationStore(client *goredis.Client, metrics *observability.Metrics) *RevocationStore {
	return &RevocationStore{
		client:  client,
		prefix:  DefaultKeyPrefix,
		metrics: metrics,
		now:     time.Now,
	}
}

// key hashes the token so key length does not grow with claim size
func (s *RevocationStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Revoke stores the token until it would have expired anyway.
// Tokens already past expiry are not stored.
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	start := time.Now()
	err := s.client.SetNX(ctx, s.key(token), now.UTC().Unix(), ttl).Err()
	s.metrics.RecordRedisCommand("setnx", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token's key exists
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	start := time.Now()
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	s.metrics.RecordRedisCommand("exists", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op; Redis expires keys itself
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// HealthCheck pings Redis
func (s *RevocationStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
