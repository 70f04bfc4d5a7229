package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"babagram/internal/model"
)

// Publisher adds notification events to a stream.
type Publisher interface {
	// Publish returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, msg NotificationMessage) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	log    zerolog.Logger
	// MaxLen caps the stream length (approximate trimming). 0 disables it.
	MaxLen int64
}

func NewPublisher(client *redis.Client, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		log:    log.With().Str("component", "publisher").Logger(),
		MaxLen: 100000,
	}
}

// Publish adds a message with XADD and an auto-generated id.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, msg NotificationMessage) (string, error) {
	start := time.Now()

	values, err := msg.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if p.MaxLen > 0 {
		args.MaxLen = p.MaxLen
		args.Approx = true
	}
	messageID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		p.log.Error().Err(err).Str("stream", stream).Str("kind", msg.Kind).Msg("publish failed")
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	p.log.Debug().
		Str("stream", stream).
		Str("kind", msg.Kind).
		Str("msg_id", messageID).
		Str("recipient", msg.RecipientID).
		Str("target", msg.Target.String()).
		Dur("duration", time.Since(start)).
		Msg("published")
	return messageID, nil
}

// Notify enqueues a notification event on the notification stream.
func (p *RedisPublisher) Notify(ctx context.Context, e model.NotificationEvent) error {
	_, err := p.Publish(ctx, StreamNotifications, NewNotificationMessage(e))
	return err
}
