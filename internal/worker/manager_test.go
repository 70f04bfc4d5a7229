package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babagram/internal/model"
	"babagram/internal/queue"
)

// fakeConsumer serves one pending batch and one fresh batch, then blocks
// until the context is cancelled.
type fakeConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	fresh   []queue.Message
	acked   []string
	groups  []string
	done    chan struct{}
}

func (c *fakeConsumer) EnsureGroup(_ context.Context, stream, group string) error {
	c.groups = append(c.groups, stream+"/"+group)
	return nil
}

func (c *fakeConsumer) Read(ctx context.Context, _, _, _ string, _ int64, _ time.Duration) ([]queue.Message, error) {
	c.mu.Lock()
	batch := c.fresh
	c.fresh = nil
	c.mu.Unlock()
	if batch != nil {
		return batch, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeConsumer) ReadPending(_ context.Context, _, _, _ string, _ int64) ([]queue.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.pending
	c.pending = nil
	return batch, nil
}

func (c *fakeConsumer) Ack(_ context.Context, _, _ string, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked = append(c.acked, ids...)
	if len(c.acked) == 3 {
		close(c.done)
	}
	return nil
}

func (c *fakeConsumer) Pending(context.Context, string, string) (int64, error) { return 0, nil }

type handlerFunc func(ctx context.Context, msg queue.NotificationMessage) error

func (f handlerFunc) HandleMessage(ctx context.Context, msg queue.NotificationMessage) error {
	return f(ctx, msg)
}

func TestManager_AcksEveryMessage(t *testing.T) {
	event := func(recipient string) queue.NotificationMessage {
		return queue.NotificationMessage{NotificationEvent: model.NotificationEvent{RecipientID: recipient, SenderID: "bob", Kind: model.NotificationLike}}
	}
	consumer := &fakeConsumer{
		pending: []queue.Message{{ID: "1-0", Payload: event("alice")}},
		fresh: []queue.Message{
			{ID: "2-0", Err: errors.New("malformed")},
			{ID: "3-0", Payload: event("carol")},
		},
		done: make(chan struct{}),
	}

	var mu sync.Mutex
	var handled []string
	h := handlerFunc(func(_ context.Context, msg queue.NotificationMessage) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg.RecipientID)
		if msg.RecipientID == "carol" {
			return errors.New("delivery failed")
		}
		return nil
	})

	m := NewManager(consumer, h, ManagerConfig{WorkerCount: 1, InstanceID: "test"}, zerolog.Nop())
	require.NoError(t, m.Start(context.Background()))

	select {
	case <-consumer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages were not acked")
	}
	m.Stop()

	assert.Equal(t, []string{queue.StreamNotifications + "/" + queue.ConsumerGroupNotifications}, consumer.groups)
	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, consumer.acked)
	assert.Equal(t, []string{"alice", "carol"}, handled, "malformed messages are not handled")
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(&fakeConsumer{}, handlerFunc(nil), DefaultManagerConfig(), zerolog.Nop())
	m.Stop()
	assert.Equal(t, "worker-"+m.instance+"-1", m.consumerName(1))
}
