package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// recordingNotifier captures every event. err, when set, is returned from
// every Notify call.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e model.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Events() []model.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.NotificationEvent(nil), n.events...)
}

// memoryIdempotency is an in-process IdempotencyStore.
type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{entries: make(map[string]string)}
}

// Every call fails once ctx is done, the way the Redis client does.
func (m *memoryIdempotency) Reserve(ctx context.Context, key string) (string, bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		m.entries[key] = ""
		return "", false, true, nil
	}
	if v == "" {
		return "", true, false, nil
	}
	return v, false, false, nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, key, resultID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = resultID
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// mockContentRepository wraps a real store and lets a test override single
// methods, the same fn-field pattern used for the other repository mocks.
type mockContentRepository struct {
	repository.ContentRepository

	addMemberFn   func(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error
	appendChildFn func(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error)

	addMemberCalls int
	deleteCalls    []model.ContentRef
}

func (m *mockContentRepository) AddMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error {
	m.addMemberCalls++
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, ref, revision, set, actorID)
	}
	return m.ContentRepository.AddMember(ctx, ref, revision, set, actorID)
}

func (m *mockContentRepository) AppendChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error) {
	if m.appendChildFn != nil {
		return m.appendChildFn(ctx, parent, childID)
	}
	return m.ContentRepository.AppendChild(ctx, parent, childID)
}

func (m *mockContentRepository) Delete(ctx context.Context, ref model.ContentRef) error {
	m.deleteCalls = append(m.deleteCalls, ref)
	return m.ContentRepository.Delete(ctx, ref)
}

// mockMediaStore records deleted keys.
type mockMediaStore struct {
	deleted [][]string
	err     error
}

func (m *mockMediaStore) DeleteObjects(_ context.Context, keys []string) error {
	m.deleted = append(m.deleted, keys)
	return m.err
}

var errBoom = errors.New("boom")

// =============================================================================
// FIXTURE
// =============================================================================

// engine wires every service against one in-memory store with a fixed clock.
type engine struct {
	store        *repository.MemoryStore
	notifier     *recordingNotifier
	idempotency  *memoryIdempotency
	media        *mockMediaStore
	clock        time.Time
	counter      *CounterService
	comments     *CommentService
	stories      *StoryService
	highlights   *HighlightService
	posts        *PostService
	interactions *InteractionService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	return newEngineWithRepo(t, nil)
}

// newEngineWithRepo lets a test swap the content repository seen by the
// services. wrap receives the in-memory store and returns the repository to use.
func newEngineWithRepo(t *testing.T, wrap func(*repository.MemoryStore) repository.ContentRepository) *engine {
	t.Helper()
	log := zerolog.Nop()
	e := &engine{
		store:       repository.NewMemoryStore(),
		notifier:    &recordingNotifier{},
		idempotency: newMemoryIdempotency(),
		media:       &mockMediaStore{},
		clock:       testEpoch,
	}
	var content repository.ContentRepository = e.store
	if wrap != nil {
		content = wrap(e.store)
	}
	now := func() time.Time { return e.clock }

	e.counter = NewCounterService(content, DefaultCounterMaxAttempts, log)
	e.comments = NewCommentService(content, e.store, e.idempotency, log)
	e.comments.now = now
	e.highlights = NewHighlightService(e.store.Highlights(), content, e.store, log)
	e.highlights.now = now
	e.stories = NewStoryService(content, e.store, e.store.Highlights(), e.media, e.notifier, model.DefaultStoryTTL, log)
	e.stories.now = now
	e.posts = NewPostService(content, e.notifier, log)
	e.posts.now = now
	e.interactions = NewInteractionService(content, e.counter, e.comments, e.highlights, e.notifier, log)
	e.interactions.now = now
	return e
}

func (e *engine) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *engine) createPost(t *testing.T, author string, mutate func(*model.CreatePostRequest)) *model.Post {
	t.Helper()
	req := model.CreatePostRequest{
		Caption: "sunset",
		Media:   []model.MediaRef{{URL: "https://cdn.example/p.jpg", Key: "media/p.jpg", Type: model.MediaImage}},
	}
	if mutate != nil {
		mutate(&req)
	}
	c, err := e.posts.Create(context.Background(), author, model.ContentTypePost, req)
	require.NoError(t, err)
	return c.(*model.Post)
}

func (e *engine) createStory(t *testing.T, author string, mutate func(*model.CreateStoryRequest)) *model.Story {
	t.Helper()
	req := model.CreateStoryRequest{
		Media: []model.MediaRef{{URL: "https://cdn.example/s.jpg", Key: "stories/s.jpg", Type: model.MediaImage}},
	}
	if mutate != nil {
		mutate(&req)
	}
	s, err := e.stories.Create(context.Background(), author, req)
	require.NoError(t, err)
	return s
}

func (e *engine) apply(actor string, ref model.ContentRef, action model.Action, payload *model.InteractionPayload) (*model.InteractionResult, error) {
	return e.interactions.Apply(context.Background(), actor, model.InteractionRequest{
		ContentType: string(ref.Type),
		ContentID:   ref.ID.Hex(),
		Action:      string(action),
		Payload:     payload,
	})
}

func (e *engine) reload(t *testing.T, ref model.ContentRef) model.Content {
	t.Helper()
	c, err := e.store.Get(context.Background(), ref)
	require.NoError(t, err)
	return c
}
