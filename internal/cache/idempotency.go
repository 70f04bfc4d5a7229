package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyPrefix is the key prefix for idempotency records
	IdempotencyPrefix = "idem:"

	// DefaultIdempotencyTTL bounds how long a key is remembered
	DefaultIdempotencyTTL = 10 * time.Minute

	// pendingMarker is stored while the first request is still running
	pendingMarker = "pending"
)

// IdempotencyStore remembers the result of a create request under a client
// supplied key so a retried request returns the original entity.
type IdempotencyStore interface {
	// Reserve claims key. When the key is already claimed it returns the
	// stored result id, or "" with pending=true if the first request has
	// not finished yet.
	Reserve(ctx context.Context, key string) (resultID string, pending bool, reserved bool, err error)

	// Complete records the result id for a reserved key.
	Complete(ctx context.Context, key, resultID string) error

	// Release drops a reservation after a failed request so the client can retry.
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore implements IdempotencyStore with SET NX + TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return IdempotencyPrefix + key
}

// Reserve uses SET NX so only one request wins the key; losers read what
// the winner stored.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, bool, error) {
	k := idempotencyKey(key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", false, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", false, true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; claim it again
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return "", false, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return "", true, false, nil
	}
	return val, false, false, nil
}

// Complete overwrites the marker and keeps the original TTL window.
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, resultID string) error {
	if err := s.client.Set(ctx, idempotencyKey(key), resultID, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
