package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	opts.DB = 1

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewIdempotencyStore(client, time.Minute)

	_, pending, reserved, err := store.Reserve(ctx, "comment:bob:k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.False(t, pending)

	_, pending, reserved, err = store.Reserve(ctx, "comment:bob:k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.True(t, pending)

	require.NoError(t, store.Complete(ctx, "comment:bob:k1", "665f1c2e9b1e8a0001a1b2c3"))
	id, pending, reserved, err := store.Reserve(ctx, "comment:bob:k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.False(t, pending)
	assert.Equal(t, "665f1c2e9b1e8a0001a1b2c3", id)

	ttl, err := client.TTL(ctx, IdempotencyPrefix+"comment:bob:k1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "complete keeps the ttl")
}

func TestIdempotencyStore_Release(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewIdempotencyStore(client, 0)

	_, _, reserved, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, store.Release(ctx, "k"))

	_, _, reserved, err = store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, reserved)
}
