package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// =============================================================================
// COUNTER ACTIONS
// =============================================================================

func TestInteraction_LikeScenario(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	ref := model.Ref(post)

	// ACT: bob likes twice, then unlikes
	first, err := e.apply("bob", ref, model.ActionLike, nil)
	require.NoError(t, err)
	second, err := e.apply("bob", ref, model.ActionLike, nil)
	require.NoError(t, err)

	// ASSERT
	assert.Equal(t, map[string]interface{}{"liked": true, "likesCount": 1, "changed": true}, first.Data())
	assert.Equal(t, map[string]interface{}{"liked": true, "likesCount": 1, "changed": false}, second.Data())

	events := e.notifier.Events()
	require.Len(t, events, 1, "second like must not notify")
	assert.Equal(t, model.NotificationEvent{
		RecipientID: "alice",
		SenderID:    "bob",
		Kind:        model.NotificationLike,
		Target:      ref,
	}, events[0])

	third, err := e.apply("bob", ref, model.ActionUnlike, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"liked": false, "likesCount": 0, "changed": true}, third.Data())

	stored := e.reload(t, ref).(*model.Post)
	assert.Empty(t, stored.Likes)
	assert.Equal(t, 0, stored.LikesCount)
}

func TestInteraction_SelfLikeDoesNotNotify(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)

	res, err := e.apply("alice", model.Ref(post), model.ActionLike, nil)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Empty(t, e.notifier.Events())
}

func TestInteraction_NotifierErrorsAreSwallowed(t *testing.T) {
	e := newEngine(t)
	e.notifier.err = errBoom
	post := e.createPost(t, "alice", nil)

	res, err := e.apply("bob", model.Ref(post), model.ActionSave, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Len(t, e.notifier.Events(), 1)
}

func TestInteraction_ShareAndViewAreMonotonic(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	ref := model.Ref(post)

	for _, actor := range []string{"bob", "carol", "bob"} {
		_, err := e.apply(actor, ref, model.ActionShare, nil)
		require.NoError(t, err)
		_, err = e.apply(actor, ref, model.ActionView, nil)
		require.NoError(t, err)
	}

	stored := e.reload(t, ref).(*model.Post)
	assert.Equal(t, 2, stored.SharesCount)
	assert.Equal(t, 2, stored.ViewsCount)
	assert.ElementsMatch(t, []string{"bob", "carol"}, stored.Shares)
}

func TestInteraction_ConcurrentLikesKeepCountEqualToSet(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	ref := model.Ref(post)

	var wg sync.WaitGroup
	actors := []string{"a", "b", "c", "d", "e", "f"}
	for _, actor := range actors {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			// Conflicts may exhaust retries under contention; the invariant must hold either way
			_, _ = e.apply(actor, ref, model.ActionLike, nil)
		}(actor)
	}
	wg.Wait()

	stored := e.reload(t, ref).(*model.Post)
	assert.Equal(t, len(stored.Likes), stored.LikesCount)
}

// =============================================================================
// VALIDATION ORDER
// =============================================================================

func TestInteraction_ValidationOrder(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	id := post.ID.Hex()

	tests := []struct {
		name    string
		req     model.InteractionRequest
		wantErr error
	}{
		{"bad action wins over bad type", model.InteractionRequest{ContentType: "reel", ContentID: "x", Action: "poke"}, model.ErrInvalidAction},
		{"unknown type", model.InteractionRequest{ContentType: "reel", ContentID: id, Action: "like"}, model.ErrUnknownContentType},
		{"action not on type wins over bad id", model.InteractionRequest{ContentType: "comment", ContentID: "x", Action: "save"}, model.ErrInvalidAction},
		{"bad id", model.InteractionRequest{ContentType: "post", ContentID: "x", Action: "like"}, model.ErrInvalidContentID},
		{"missing", model.InteractionRequest{ContentType: "post", ContentID: primitive.NewObjectID().Hex(), Action: "like"}, model.ErrContentNotFound},
		{"wrong collection", model.InteractionRequest{ContentType: "video", ContentID: id, Action: "like"}, model.ErrContentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.interactions.Apply(context.Background(), "bob", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInteraction_RequiresActor(t *testing.T) {
	e := newEngine(t)

	_, err := e.interactions.Apply(context.Background(), "", model.InteractionRequest{})

	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestInteraction_InactiveContent(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	require.NoError(t, e.posts.SetActive(context.Background(), "alice", model.Ref(post), false))

	_, err := e.apply("bob", model.Ref(post), model.ActionLike, nil)

	assert.ErrorIs(t, err, model.ErrContentInactive)
}

func TestInteraction_FeatureFlags(t *testing.T) {
	e := newEngine(t)
	off := false
	post := e.createPost(t, "alice", func(r *model.CreatePostRequest) {
		r.AllowLikes = &off
		r.AllowComments = &off
	})
	ref := model.Ref(post)

	_, err := e.apply("bob", ref, model.ActionLike, nil)
	assert.ErrorIs(t, err, model.ErrActionNotPermitted)

	_, err = e.apply("bob", ref, model.ActionComment, &model.InteractionPayload{Text: "hey"})
	assert.ErrorIs(t, err, model.ErrActionNotPermitted)

	res, err := e.apply("bob", ref, model.ActionSave, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	stored := e.reload(t, ref).(*model.Post)
	assert.Equal(t, 0, stored.LikesCount)
	assert.Equal(t, 0, stored.CommentsCount)
}

// =============================================================================
// STORIES
// =============================================================================

func TestInteraction_StoryExpiry(t *testing.T) {
	e := newEngine(t)
	story := e.createStory(t, "alice", nil)
	ref := model.Ref(story)

	// 23h in: still active
	e.advance(23 * time.Hour)
	res, err := e.apply("bob", ref, model.ActionView, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	// 25h in: gone for viewing and liking
	e.advance(2 * time.Hour)
	_, err = e.apply("carol", ref, model.ActionView, nil)
	assert.ErrorIs(t, err, model.ErrStoryExpired)
	_, err = e.apply("carol", ref, model.ActionLike, nil)
	assert.ErrorIs(t, err, model.ErrStoryExpired)

	// but still highlightable by its author
	res, err = e.apply("alice", ref, model.ActionHighlight, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"highlighted": true, "highlightedCount": 1, "changed": true}, res.Data())
}

func TestInteraction_CloseStoryVisibility(t *testing.T) {
	e := newEngine(t)
	story := e.createStory(t, "alice", func(r *model.CreateStoryRequest) {
		r.IsCloseStory = true
		r.AllowedViewers = []string{"bob"}
	})
	ref := model.Ref(story)

	_, err := e.apply("bob", ref, model.ActionLike, nil)
	require.NoError(t, err)

	_, err = e.apply("carol", ref, model.ActionLike, nil)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	_, err = e.apply("carol", ref, model.ActionHighlight, nil)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	stored := e.reload(t, ref).(*model.Story)
	assert.Equal(t, []string{"bob"}, stored.Likes)
}

func TestInteraction_HighlightFilesIntoHighlight(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	story := e.createStory(t, "alice", nil)
	hl, err := e.highlights.Create(ctx, "alice", model.CreateHighlightRequest{Name: "Trips"})
	require.NoError(t, err)
	payload := &model.InteractionPayload{HighlightID: hl.ID.Hex()}

	_, err = e.apply("alice", model.Ref(story), model.ActionHighlight, payload)
	require.NoError(t, err)

	got, err := e.store.Highlights().Get(ctx, hl.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{story.ID}, got.Stories)

	_, err = e.apply("alice", model.Ref(story), model.ActionUnhighlight, payload)
	require.NoError(t, err)

	got, err = e.store.Highlights().Get(ctx, hl.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Stories)
	assert.Equal(t, 0, e.reload(t, model.Ref(story)).(*model.Story).HighlightedCount)
}

func TestInteraction_HighlightIntoForeignHighlight(t *testing.T) {
	e := newEngine(t)
	story := e.createStory(t, "alice", nil)
	hl, err := e.highlights.Create(context.Background(), "bob", model.CreateHighlightRequest{Name: "Mine"})
	require.NoError(t, err)

	_, err = e.apply("alice", model.Ref(story), model.ActionHighlight, &model.InteractionPayload{HighlightID: hl.ID.Hex()})

	assert.ErrorIs(t, err, model.ErrNotHighlightOwner)
	assert.Equal(t, 0, e.reload(t, model.Ref(story)).(*model.Story).HighlightedCount)
}

// =============================================================================
// COMMENTS AND MENTIONS
// =============================================================================

func TestInteraction_CommentAndReply(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)

	cres, err := e.apply("bob", model.Ref(post), model.ActionComment, &model.InteractionPayload{Text: "great shot"})
	require.NoError(t, err)
	require.NotNil(t, cres.Comment)
	assert.Equal(t, 1, cres.Data()["commentsCount"])

	rres, err := e.apply("carol", model.Ref(cres.Comment), model.ActionReply, &model.InteractionPayload{Text: "agreed"})
	require.NoError(t, err)
	assert.Equal(t, 1, rres.Data()["repliesCount"])

	reply := rres.Comment
	require.NotNil(t, reply.ParentComment)
	assert.Equal(t, cres.Comment.ID, *reply.ParentComment)
	assert.Equal(t, model.Ref(post), reply.Root)

	parent := e.reload(t, model.Ref(cres.Comment)).(*model.Comment)
	assert.Equal(t, []primitive.ObjectID{reply.ID}, parent.Replies)
	assert.Equal(t, 1, parent.RepliesCount)

	events := e.notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "alice", events[0].RecipientID)
	assert.Equal(t, model.NotificationComment, events[0].Kind)
	assert.Equal(t, "great shot", events[0].Text)
	assert.Equal(t, "bob", events[1].RecipientID)
	assert.Equal(t, model.NotificationReply, events[1].Kind)
}

func TestInteraction_MentionsAreDeduplicated(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)

	_, err := e.apply("bob", model.Ref(post), model.ActionComment, &model.InteractionPayload{
		Text:     "@carol @dave @carol @alice @bob look",
		Mentions: []string{"carol", "dave", "carol", "alice", "bob"},
	})
	require.NoError(t, err)

	var mentioned []string
	for _, ev := range e.notifier.Events() {
		if ev.Kind == model.NotificationMention {
			mentioned = append(mentioned, ev.RecipientID)
			assert.Equal(t, model.ContentTypeComment, ev.Target.Type)
		}
	}
	assert.Equal(t, []string{"carol", "dave"}, mentioned)
}

func TestInteraction_CommentIdempotencyReplay(t *testing.T) {
	e := newEngine(t)
	post := e.createPost(t, "alice", nil)
	payload := &model.InteractionPayload{Text: "first!", IdempotencyKey: "k-1"}

	first, err := e.apply("bob", model.Ref(post), model.ActionComment, payload)
	require.NoError(t, err)
	second, err := e.apply("bob", model.Ref(post), model.ActionComment, payload)
	require.NoError(t, err)

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Comment.ID, second.Comment.ID)
	assert.Equal(t, 1, second.Count)
	assert.Len(t, e.notifier.Events(), 1)
}

func TestInteraction_HighlightFilingUndoneWhenCounterFails(t *testing.T) {
	e := newEngineWithRepo(t, func(store *repository.MemoryStore) repository.ContentRepository {
		return &mockContentRepository{
			ContentRepository: store,
			addMemberFn: func(context.Context, model.ContentRef, int64, model.MemberSet, string) error {
				return model.ErrWriteConflict
			},
		}
	})
	ctx := context.Background()
	story := e.createStory(t, "alice", nil)
	hl, err := e.highlights.Create(ctx, "alice", model.CreateHighlightRequest{Name: "Trips"})
	require.NoError(t, err)

	_, err = e.apply("alice", model.Ref(story), model.ActionHighlight, &model.InteractionPayload{HighlightID: hl.ID.Hex()})
	assert.ErrorIs(t, err, model.ErrCounterUpdateFailed)

	got, err := e.store.Highlights().Get(ctx, hl.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Stories)
	assert.Equal(t, 0, e.reload(t, model.Ref(story)).(*model.Story).HighlightedCount)
}

func TestInteraction_HighlightIDRejectedWhenUnusable(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	story := e.createStory(t, "alice", nil)
	hl, err := e.highlights.Create(ctx, "alice", model.CreateHighlightRequest{Name: "Trips"})
	require.NoError(t, err)
	payload := &model.InteractionPayload{HighlightID: hl.ID.Hex()}

	// A like carrying a highlight id does not file anything
	_, err = e.apply("alice", model.Ref(story), model.ActionLike, payload)
	assert.ErrorIs(t, err, model.ErrValidation)

	noHighlights := NewInteractionService(e.store, e.counter, e.comments, nil, e.notifier, zerolog.Nop())
	_, err = noHighlights.Apply(ctx, "alice", model.InteractionRequest{
		ContentType: string(model.ContentTypeStory),
		ContentID:   story.ID.Hex(),
		Action:      string(model.ActionHighlight),
		Payload:     payload,
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	stored := e.reload(t, model.Ref(story)).(*model.Story)
	assert.Equal(t, 0, stored.HighlightedCount)
	assert.Empty(t, stored.Likes)
}
