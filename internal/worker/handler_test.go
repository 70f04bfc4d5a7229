package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
	"babagram/internal/queue"
)

type mockDeliverer struct {
	deliverFn func(ctx context.Context, e model.NotificationEvent) error
	delivered []model.NotificationEvent
}

func (m *mockDeliverer) Deliver(ctx context.Context, e model.NotificationEvent) error {
	m.delivered = append(m.delivered, e)
	if m.deliverFn != nil {
		return m.deliverFn(ctx, e)
	}
	return nil
}

var handlerNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(d NotificationDeliverer) *Handler {
	h := NewHandler(d, zerolog.Nop())
	h.now = func() time.Time { return handlerNow }
	return h
}

func likeMessage(age time.Duration) queue.NotificationMessage {
	return queue.NotificationMessage{
		NotificationEvent: model.NotificationEvent{
			RecipientID: "alice",
			SenderID:    "bob",
			Kind:        model.NotificationLike,
			Target:      model.ContentRef{Type: model.ContentTypePost, ID: primitive.NewObjectID()},
		},
		Timestamp: handlerNow.Add(-age).Unix(),
	}
}

func TestHandleMessage_Delivers(t *testing.T) {
	d := &mockDeliverer{}
	msg := likeMessage(time.Minute)

	err := newTestHandler(d).HandleMessage(context.Background(), msg)

	require.NoError(t, err)
	require.Len(t, d.delivered, 1)
	assert.Equal(t, msg.NotificationEvent, d.delivered[0])
}

func TestHandleMessage_DropsStale(t *testing.T) {
	d := &mockDeliverer{}

	err := newTestHandler(d).HandleMessage(context.Background(), likeMessage(25*time.Hour))

	require.NoError(t, err)
	assert.Empty(t, d.delivered)
}

func TestHandleMessage_KeepsStaleWhenMaxAgeDisabled(t *testing.T) {
	d := &mockDeliverer{}
	h := newTestHandler(d)
	h.MaxAge = 0

	require.NoError(t, h.HandleMessage(context.Background(), likeMessage(48*time.Hour)))
	assert.Len(t, d.delivered, 1)
}

func TestHandleMessage_SkipsSelfNotification(t *testing.T) {
	d := &mockDeliverer{}
	msg := likeMessage(0)
	msg.SenderID = msg.RecipientID

	require.NoError(t, newTestHandler(d).HandleMessage(context.Background(), msg))
	assert.Empty(t, d.delivered)
}

func TestHandleMessage_WrapsDeliveryError(t *testing.T) {
	boom := errors.New("postgres down")
	d := &mockDeliverer{deliverFn: func(context.Context, model.NotificationEvent) error { return boom }}

	err := newTestHandler(d).HandleMessage(context.Background(), likeMessage(0))

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "alice")
}
