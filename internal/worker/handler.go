package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"babagram/internal/metrics"
	"babagram/internal/model"
	"babagram/internal/queue"
)

// NotificationDeliverer persists a notification and pushes it to the
// recipient's devices. Implemented by service.NotificationService.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, e model.NotificationEvent) error
}

// Handler processes notification messages from the queue.
type Handler struct {
	deliverer NotificationDeliverer
	log       zerolog.Logger
	// MaxAge drops messages that sat in the stream longer than this. 0 keeps all.
	MaxAge time.Duration
	now    func() time.Time
}

func NewHandler(deliverer NotificationDeliverer, log zerolog.Logger) *Handler {
	return &Handler{
		deliverer: deliverer,
		log:       log.With().Str("component", "worker_handler").Logger(),
		MaxAge:    24 * time.Hour,
		now:       time.Now,
	}
}

// HandleMessage validates and delivers one message.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.NotificationMessage) error {
	start := time.Now()

	if h.MaxAge > 0 && msg.Timestamp > 0 {
		age := h.now().Sub(time.Unix(msg.Timestamp, 0))
		if age > h.MaxAge {
			h.log.Warn().Str("kind", msg.Kind).Dur("age", age).Msg("dropping stale notification")
			return nil
		}
	}
	if msg.RecipientID == msg.SenderID {
		// Never notify an actor about their own action
		return nil
	}

	err := h.deliverer.Deliver(ctx, msg.NotificationEvent)
	metrics.ObserveNotification(msg.Kind, err)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", msg.Kind, msg.RecipientID, err)
	}

	h.log.Debug().
		Str("kind", msg.Kind).
		Str("recipient", msg.RecipientID).
		Str("target", msg.Target.String()).
		Dur("duration", time.Since(start)).
		Msg("notification delivered")
	return nil
}
