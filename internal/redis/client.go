package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared Redis client. The notification stream and the
// idempotency store use the same pool.
type Client struct {
	*redis.Client
}

// Connect parses a redis:// URL, opens the pool and pings it so startup
// fails fast when Redis is unreachable.
// URL format: redis://[:password@]host:port[/db]
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.ReadTimeout = 3 * time.Second

	c := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Client.Ping(pingCtx).Err(); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}
