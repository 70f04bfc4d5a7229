package http

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"babagram/internal/model"
	"babagram/internal/service"
)

type recordingPublisher struct {
	events []model.NotificationEvent
}

func (p *recordingPublisher) Notify(_ context.Context, e model.NotificationEvent) error {
	p.events = append(p.events, e)
	return nil
}

func TestChooseNotifier(t *testing.T) {
	notifService := service.NewNotificationService(nil, nil, nil, zerolog.Nop())

	t.Run("no postgres drops events even with a stream", func(t *testing.T) {
		pub := &recordingPublisher{}
		n := chooseNotifier(pub, nil, zerolog.Nop())

		assert.IsType(t, service.NopNotifier{}, n)
		assert.NoError(t, n.Notify(context.Background(), model.NotificationEvent{Kind: model.NotificationLike}))
		assert.Empty(t, pub.events)
	})

	t.Run("stream with postgres publishes", func(t *testing.T) {
		pub := &recordingPublisher{}
		n := chooseNotifier(pub, notifService, zerolog.Nop())

		assert.Same(t, pub, n)
	})

	t.Run("postgres without stream delivers in background", func(t *testing.T) {
		n := chooseNotifier(nil, notifService, zerolog.Nop())

		assert.IsType(t, service.NotifierFunc(nil), n)
	})
}
