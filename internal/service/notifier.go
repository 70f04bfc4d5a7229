package service

import (
	"context"

	"github.com/rs/zerolog"

	"babagram/internal/model"
)

// Notifier is the fan-out boundary. Implementations must not block the
// request on delivery; errors are logged by the caller and never fail a
// committed interaction.
type Notifier interface {
	Notify(ctx context.Context, e model.NotificationEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e model.NotificationEvent) error

func (f NotifierFunc) Notify(ctx context.Context, e model.NotificationEvent) error {
	return f(ctx, e)
}

// NopNotifier drops every event. Used when no queue is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.NotificationEvent) error { return nil }

// mentionEvents builds one mention event per distinct mentioned actor,
// skipping the actor and the author (who gets their own event).
func mentionEvents(actorID, authorID string, mentions []string, target model.ContentRef, text string) []model.NotificationEvent {
	seen := make(map[string]struct{}, len(mentions))
	var events []model.NotificationEvent
	for _, m := range mentions {
		if m == "" || m == actorID || m == authorID {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		events = append(events, model.NotificationEvent{
			RecipientID: m,
			SenderID:    actorID,
			Kind:        model.NotificationMention,
			Target:      target,
			Text:        text,
		})
	}
	return events
}

// dispatch hands events to the notifier. Failures are logged and dropped:
// the change they describe is already committed.
func dispatch(ctx context.Context, n Notifier, log zerolog.Logger, events []model.NotificationEvent) {
	for _, e := range events {
		if err := n.Notify(ctx, e); err != nil {
			log.Warn().Err(err).
				Str("kind", e.Kind).
				Str("recipient", e.RecipientID).
				Str("target", e.Target.String()).
				Msg("notify failed")
		}
	}
}
