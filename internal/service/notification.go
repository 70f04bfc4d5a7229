package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// Pusher sends a push notification to device tokens and reports the tokens
// that are no longer registered. Implemented by FCMClient.
type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (stale []string, err error)
}

// NotificationService persists notifications and pushes them to devices.
// Interaction code never calls it directly: events reach it through the
// notification stream and the worker.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	tokenRepo repository.DeviceTokenRepository
	pusher    Pusher // nil when push is not configured
	log       zerolog.Logger
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	pusher Pusher,
	log zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		tokenRepo: tokenRepo,
		pusher:    pusher,
		log:       log.With().Str("component", "notification_service").Logger(),
	}
}

// GetNotifications returns individual notifications (mentions, comments,
// replies) and counter notifications aggregated per content item.
func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	items, err := s.notifRepo.ListIndividual(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	aggregated, err := s.notifRepo.ListAggregated(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Items:       items,
		Aggregated:  aggregated,
		UnreadCount: unread,
	}, nil
}

// MarkAsRead marks the given notifications read, or all of them when ids is empty.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, ids []int64) error {
	if len(ids) == 0 {
		return s.notifRepo.MarkAllAsRead(ctx, userID)
	}
	return s.notifRepo.MarkAsRead(ctx, userID, ids)
}

// GetUnreadCount returns the number of unread notifications (for badge display).
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// RegisterDeviceToken stores or reassigns an FCM token.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID string, req model.RegisterTokenRequest) error {
	return s.tokenRepo.Register(ctx, userID, strings.TrimSpace(req.Token), req.Platform)
}

// RemoveDeviceToken removes one of the user's device tokens (e.g. on logout).
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, userID, token string) error {
	return s.tokenRepo.Unregister(ctx, userID, strings.TrimSpace(token))
}

// Deliver stores the notification and pushes it. Push failures are logged;
// only a failed insert is returned.
func (s *NotificationService) Deliver(ctx context.Context, e model.NotificationEvent) error {
	if e.RecipientID == "" || e.RecipientID == e.SenderID {
		return nil
	}

	n := &model.Notification{
		RecipientID: e.RecipientID,
		SenderID:    e.SenderID,
		Kind:        e.Kind,
		ContentType: string(e.Target.Type),
		ContentID:   e.Target.ID.Hex(),
	}
	if e.Text != "" {
		text := e.Text
		n.Text = &text
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return err
	}

	if s.pusher != nil {
		s.push(ctx, e)
	}
	return nil
}

func (s *NotificationService) push(ctx context.Context, e model.NotificationEvent) {
	tokens, err := s.tokenRepo.Tokens(ctx, e.RecipientID)
	if err != nil {
		s.log.Error().Err(err).Str("user", e.RecipientID).Msg("get device tokens failed")
		return
	}
	if len(tokens) == 0 {
		return
	}

	title, body := buildPushMessage(e)
	data := map[string]string{
		"kind":        e.Kind,
		"senderId":    e.SenderID,
		"contentType": string(e.Target.Type),
		"contentId":   e.Target.ID.Hex(),
	}

	stale, err := s.pusher.SendToTokens(ctx, tokens, title, body, data)
	if err != nil {
		s.log.Error().Err(err).Str("user", e.RecipientID).Msg("push failed")
	}
	if n, err := s.tokenRepo.Prune(ctx, stale); err != nil {
		s.log.Warn().Err(err).Int("tokens", len(stale)).Msg("prune stale device tokens failed")
	} else if n > 0 {
		s.log.Debug().Int64("pruned", n).Str("user", e.RecipientID).Msg("stale device tokens removed")
	}
}

// buildPushMessage creates the title and body for a push notification.
func buildPushMessage(e model.NotificationEvent) (title, body string) {
	what := contentNoun(e.Target.Type)
	switch e.Kind {
	case model.NotificationLike:
		return "New Like", e.SenderID + " liked your " + what
	case model.NotificationComment:
		return "New Comment", e.SenderID + " commented: " + truncate(e.Text, 80)
	case model.NotificationReply:
		return "New Reply", e.SenderID + " replied: " + truncate(e.Text, 80)
	case model.NotificationMention:
		return "New Mention", e.SenderID + " mentioned you in a " + what
	case model.NotificationShare:
		return "New Share", e.SenderID + " shared your " + what
	case model.NotificationSave:
		return "New Save", e.SenderID + " saved your " + what
	case model.NotificationView:
		return "New View", e.SenderID + " viewed your " + what
	case model.NotificationHighlight:
		return "New Highlight", e.SenderID + " added your story to a highlight"
	}
	return "Babagram", "You have a new notification"
}

func contentNoun(t model.ContentType) string {
	if t == model.ContentTypePagePost {
		return "post"
	}
	return string(t)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
