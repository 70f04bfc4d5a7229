package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
)

// =============================================================================
// STORIES
// =============================================================================

func TestStory_CreateNotifiesMentions(t *testing.T) {
	e := newEngine(t)

	story := e.createStory(t, "alice", func(r *model.CreateStoryRequest) {
		r.Caption = "with @bob"
		r.Mentions = []string{"bob", "alice", "bob"}
	})

	events := e.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.NotificationEvent{
		RecipientID: "bob",
		SenderID:    "alice",
		Kind:        model.NotificationMention,
		Target:      model.Ref(story),
		Text:        "with @bob",
	}, events[0])
}

func TestStory_AllowedViewersRequireCloseStory(t *testing.T) {
	e := newEngine(t)

	_, err := e.stories.Create(context.Background(), "alice", model.CreateStoryRequest{
		Media:          []model.MediaRef{{URL: "https://cdn.example/s.jpg"}},
		AllowedViewers: []string{"bob"},
	})

	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestStory_GetAppliesGate(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	story := e.createStory(t, "alice", func(r *model.CreateStoryRequest) {
		r.IsCloseStory = true
		r.AllowedViewers = []string{"bob"}
	})

	got, err := e.stories.Get(ctx, "bob", story.ID)
	require.NoError(t, err)
	assert.False(t, got.IsExpiredNow)

	_, err = e.stories.Get(ctx, "carol", story.ID)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	e.advance(25 * time.Hour)
	_, err = e.stories.Get(ctx, "carol", story.ID)
	assert.ErrorIs(t, err, model.ErrStoryExpired)
	_, err = e.stories.Get(ctx, "alice", story.ID)
	assert.ErrorIs(t, err, model.ErrStoryExpired)
}

func TestStory_ListByAuthorFiltersVisibilityAndExpiry(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	public := e.createStory(t, "alice", nil)
	e.advance(time.Hour)
	closeCircle := e.createStory(t, "alice", func(r *model.CreateStoryRequest) {
		r.IsCloseStory = true
		r.AllowedViewers = []string{"bob"}
	})
	e.createStory(t, "dave", nil)

	forBob, err := e.stories.ListByAuthor(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, forBob, 2)
	assert.Equal(t, closeCircle.ID, forBob[0].ID, "newest first")

	forCarol, err := e.stories.ListByAuthor(ctx, "carol", "alice")
	require.NoError(t, err)
	require.Len(t, forCarol, 1)
	assert.Equal(t, public.ID, forCarol[0].ID)

	// 24h after the first story only the second is left
	e.advance(23*time.Hour + time.Minute)
	forBob, err = e.stories.ListByAuthor(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, closeCircle.ID, forBob[0].ID)
}

func TestStory_SoftDelete(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	story := e.createStory(t, "alice", nil)

	assert.ErrorIs(t, e.stories.Delete(ctx, "bob", story.ID), model.ErrNotAuthorized)
	require.NoError(t, e.stories.Delete(ctx, "alice", story.ID))

	_, err := e.stories.Get(ctx, "alice", story.ID)
	assert.ErrorIs(t, err, model.ErrContentInactive)
	_, err = e.apply("bob", model.Ref(story), model.ActionView, nil)
	assert.ErrorIs(t, err, model.ErrContentInactive)
}

func TestStory_HardDeleteCascades(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	story := e.createStory(t, "alice", nil)
	keep := e.createStory(t, "alice", nil)
	h1, err := e.highlights.Create(ctx, "alice", model.CreateHighlightRequest{Name: "A", Stories: []string{story.ID.Hex(), keep.ID.Hex()}})
	require.NoError(t, err)
	h2, err := e.highlights.Create(ctx, "alice", model.CreateHighlightRequest{Name: "B", Stories: []string{story.ID.Hex()}})
	require.NoError(t, err)

	assert.ErrorIs(t, e.stories.HardDelete(ctx, "bob", story.ID), model.ErrNotAuthorized)
	require.NoError(t, e.stories.HardDelete(ctx, "alice", story.ID))

	assert.Equal(t, [][]string{{"stories/s.jpg"}}, e.media.deleted)
	_, err = e.store.Get(ctx, model.Ref(story))
	assert.ErrorIs(t, err, model.ErrContentNotFound)

	got1, err := e.store.Highlights().Get(ctx, h1.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{keep.ID}, got1.Stories)
	got2, err := e.store.Highlights().Get(ctx, h2.ID)
	require.NoError(t, err)
	assert.Empty(t, got2.Stories)
}

func TestStory_HardDeleteKeepsDocumentWhenMediaFails(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.media.err = errBoom
	story := e.createStory(t, "alice", nil)

	err := e.stories.HardDelete(ctx, "alice", story.ID)

	assert.ErrorIs(t, err, errBoom)
	_, err = e.store.Get(ctx, model.Ref(story))
	assert.NoError(t, err)
}
