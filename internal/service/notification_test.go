package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
)

type mockNotificationRepository struct {
	created   []*model.Notification
	createErr error
}

func (m *mockNotificationRepository) Create(_ context.Context, n *model.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepository) ListIndividual(context.Context, string, int) ([]model.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepository) ListAggregated(context.Context, string, int) ([]model.AggregatedNotification, error) {
	return nil, nil
}

func (m *mockNotificationRepository) MarkAsRead(context.Context, string, []int64) error { return nil }

func (m *mockNotificationRepository) MarkAllAsRead(context.Context, string) error { return nil }

func (m *mockNotificationRepository) GetUnreadCount(context.Context, string) (int, error) {
	return len(m.created), nil
}

type mockDeviceTokenRepository struct {
	tokens map[string][]string
	pruned []string
}

func (m *mockDeviceTokenRepository) Register(_ context.Context, userID, token, _ string) error {
	for owner, list := range m.tokens {
		m.tokens[owner] = slices.DeleteFunc(list, func(t string) bool { return t == token })
	}
	m.tokens[userID] = append(m.tokens[userID], token)
	return nil
}

func (m *mockDeviceTokenRepository) Tokens(_ context.Context, userID string) ([]string, error) {
	return m.tokens[userID], nil
}

func (m *mockDeviceTokenRepository) Unregister(_ context.Context, userID, token string) error {
	m.tokens[userID] = slices.DeleteFunc(m.tokens[userID], func(t string) bool { return t == token })
	return nil
}

func (m *mockDeviceTokenRepository) Prune(_ context.Context, tokens []string) (int64, error) {
	m.pruned = append(m.pruned, tokens...)
	return int64(len(tokens)), nil
}

type mockPusher struct {
	sendFn func(tokens []string, title, body string, data map[string]string) ([]string, error)
	calls  int
}

func (m *mockPusher) SendToTokens(_ context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	m.calls++
	return m.sendFn(tokens, title, body, data)
}

func commentEvent() model.NotificationEvent {
	return model.NotificationEvent{
		RecipientID: "alice",
		SenderID:    "bob",
		Kind:        model.NotificationComment,
		Target:      model.ContentRef{Type: model.ContentTypePost, ID: primitive.NewObjectID()},
		Text:        "nice shot",
	}
}

func TestNotification_DeliverStoresAndPushes(t *testing.T) {
	notifs := &mockNotificationRepository{}
	tokens := &mockDeviceTokenRepository{tokens: map[string][]string{"alice": {"t1", "t2"}}}
	var gotTitle, gotBody string
	var gotData map[string]string
	pusher := &mockPusher{sendFn: func(tokens []string, title, body string, data map[string]string) ([]string, error) {
		gotTitle, gotBody, gotData = title, body, data
		return []string{"t2"}, nil
	}}
	svc := NewNotificationService(notifs, tokens, pusher, zerolog.Nop())
	e := commentEvent()

	require.NoError(t, svc.Deliver(context.Background(), e))

	require.Len(t, notifs.created, 1)
	n := notifs.created[0]
	assert.Equal(t, "alice", n.RecipientID)
	assert.Equal(t, "post", n.ContentType)
	assert.Equal(t, e.Target.ID.Hex(), n.ContentID)
	require.NotNil(t, n.Text)
	assert.Equal(t, "nice shot", *n.Text)

	assert.Equal(t, "New Comment", gotTitle)
	assert.Equal(t, "bob commented: nice shot", gotBody)
	assert.Equal(t, model.NotificationComment, gotData["kind"])
	assert.Equal(t, []string{"t2"}, tokens.pruned, "unregistered tokens are forgotten")
}

func TestNotification_DeliverSkipsSelfAndEmpty(t *testing.T) {
	notifs := &mockNotificationRepository{}
	svc := NewNotificationService(notifs, &mockDeviceTokenRepository{tokens: map[string][]string{}}, nil, zerolog.Nop())

	e := commentEvent()
	e.SenderID = e.RecipientID
	require.NoError(t, svc.Deliver(context.Background(), e))
	e.RecipientID = ""
	require.NoError(t, svc.Deliver(context.Background(), e))

	assert.Empty(t, notifs.created)
}

func TestNotification_PushFailureIsNotReturned(t *testing.T) {
	notifs := &mockNotificationRepository{}
	tokens := &mockDeviceTokenRepository{tokens: map[string][]string{"alice": {"t1"}}}
	pusher := &mockPusher{sendFn: func([]string, string, string, map[string]string) ([]string, error) {
		return nil, errors.New("fcm down")
	}}
	svc := NewNotificationService(notifs, tokens, pusher, zerolog.Nop())

	require.NoError(t, svc.Deliver(context.Background(), commentEvent()))
	assert.Len(t, notifs.created, 1)
	assert.Equal(t, 1, pusher.calls)
}

func TestNotification_NoTokensNoPush(t *testing.T) {
	pusher := &mockPusher{sendFn: func([]string, string, string, map[string]string) ([]string, error) {
		return nil, nil
	}}
	svc := NewNotificationService(&mockNotificationRepository{}, &mockDeviceTokenRepository{tokens: map[string][]string{}}, pusher, zerolog.Nop())

	require.NoError(t, svc.Deliver(context.Background(), commentEvent()))
	assert.Zero(t, pusher.calls)
}

func TestNotification_InsertFailureIsReturned(t *testing.T) {
	boom := errors.New("insert failed")
	svc := NewNotificationService(&mockNotificationRepository{createErr: boom}, &mockDeviceTokenRepository{}, nil, zerolog.Nop())

	assert.ErrorIs(t, svc.Deliver(context.Background(), commentEvent()), boom)
}

func TestBuildPushMessage(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		kind  string
		ctype model.ContentType
		text  string
		title string
		body  string
	}{
		{model.NotificationLike, model.ContentTypePagePost, "", "New Like", "bob liked your post"},
		{model.NotificationView, model.ContentTypeStory, "", "New View", "bob viewed your story"},
		{model.NotificationMention, model.ContentTypeVideo, "", "New Mention", "bob mentioned you in a video"},
		{model.NotificationHighlight, model.ContentTypeStory, "", "New Highlight", "bob added your story to a highlight"},
		{model.NotificationUnlike, model.ContentTypePost, "", "Babagram", "You have a new notification"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			title, body := buildPushMessage(model.NotificationEvent{
				SenderID: "bob",
				Kind:     tt.kind,
				Target:   model.ContentRef{Type: tt.ctype, ID: id},
				Text:     tt.text,
			})
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestNotification_DeviceTokenMovesAndLogoutIsScoped(t *testing.T) {
	tokens := &mockDeviceTokenRepository{tokens: map[string][]string{}}
	svc := NewNotificationService(&mockNotificationRepository{}, tokens, nil, zerolog.Nop())
	ctx := context.Background()
	req := model.RegisterTokenRequest{Token: " phone-1 ", Platform: model.PlatformIOS}

	require.NoError(t, svc.RegisterDeviceToken(ctx, "alice", req))
	require.NoError(t, svc.RegisterDeviceToken(ctx, "bob", req))
	require.NoError(t, svc.RemoveDeviceToken(ctx, "alice", "phone-1"))

	assert.Empty(t, tokens.tokens["alice"])
	assert.Equal(t, []string{"phone-1"}, tokens.tokens["bob"], "alice's late logout leaves bob's device alone")
}
