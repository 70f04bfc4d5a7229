package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message represents a message read from a Redis stream. Err is set when the
// payload could not be parsed; such messages should be acked and dropped.
type Message struct {
	ID      string
	Payload NotificationMessage
	Err     error
}

// Consumer reads events from a stream through a consumer group.
type Consumer interface {
	// EnsureGroup creates the consumer group (and stream) if missing.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read returns new messages for this consumer, blocking up to block.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns messages delivered to this consumer but never acked.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// Ack removes messages from the consumer's pending list.
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error

	// Pending returns the number of unacknowledged messages for the group.
	Pending(ctx context.Context, stream, group string) (int64, error)
}

// RedisConsumer implements Consumer using Redis Streams.
type RedisConsumer struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewConsumer(client *redis.Client, log zerolog.Logger) Consumer {
	return &RedisConsumer{client: client, log: log.With().Str("component", "consumer").Logger()}
}

// EnsureGroup uses XGROUP CREATE ... MKSTREAM starting at "0" so a fresh
// group also sees events published before the first worker started.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}
	c.log.Info().Str("stream", stream).Str("group", group).Msg("consumer group created")
	return nil
}

// Read uses XREADGROUP with ">" (never-delivered messages only).
func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.read(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	})
}

// ReadPending uses "0" instead of ">" to replay this consumer's in-flight
// messages after a crash.
func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	return c.read(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
	})
}

func (c *RedisConsumer) read(ctx context.Context, args *redis.XReadGroupArgs) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	var messages []Message
	for _, s := range streams {
		for _, msg := range s.Messages {
			payload, err := ParseNotificationMessage(msg.Values)
			if err != nil {
				c.log.Warn().Err(err).Str("msg_id", msg.ID).Msg("malformed message")
			}
			messages = append(messages, Message{ID: msg.ID, Payload: payload, Err: err})
		}
	}
	return messages, nil
}

// Ack acknowledges messages using XACK.
func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}
