package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
	"babagram/internal/repository"
)

type StoryService struct {
	contentRepo   repository.ContentRepository
	storyRepo     repository.StoryRepository
	highlightRepo repository.HighlightRepository
	media         MediaStore // nil when R2 is not configured
	notifier      Notifier
	ttl           time.Duration
	log           zerolog.Logger
	now           func() time.Time
}

func NewStoryService(
	contentRepo repository.ContentRepository,
	storyRepo repository.StoryRepository,
	highlightRepo repository.HighlightRepository,
	media MediaStore,
	notifier Notifier,
	ttl time.Duration,
	log zerolog.Logger,
) *StoryService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if ttl <= 0 {
		ttl = model.DefaultStoryTTL
	}
	return &StoryService{
		contentRepo:   contentRepo,
		storyRepo:     storyRepo,
		highlightRepo: highlightRepo,
		media:         media,
		notifier:      notifier,
		ttl:           ttl,
		log:           log.With().Str("component", "story_service").Logger(),
		now:           time.Now,
	}
}

// Create publishes a story and notifies mentioned users.
func (s *StoryService) Create(ctx context.Context, authorID string, req model.CreateStoryRequest) (*model.Story, error) {
	if len(req.Media) == 0 {
		return nil, fmt.Errorf("%w: at least one media item is required", model.ErrValidation)
	}
	if !req.IsCloseStory && len(req.AllowedViewers) > 0 {
		return nil, fmt.Errorf("%w: allowedViewers requires isCloseStory", model.ErrValidation)
	}

	story := model.NewStory(authorID, req, s.now(), s.ttl)
	if err := s.contentRepo.Insert(ctx, story); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	dispatch(ctx, s.notifier, s.log, mentionEvents(authorID, authorID, story.Mentions, model.Ref(story), story.Caption))
	s.log.Debug().Str("author", authorID).Str("story", story.ID.Hex()).Bool("close", story.IsCloseStory).Msg("story created")
	return story, nil
}

// Get returns a story if readerID may see it right now.
func (s *StoryService) Get(ctx context.Context, readerID string, storyID primitive.ObjectID) (*model.Story, error) {
	story, err := resolveAs[*model.Story](ctx, s.contentRepo, model.ContentRef{Type: model.ContentTypeStory, ID: storyID})
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := story.CheckAccess(readerID, now, false); err != nil {
		return nil, err
	}
	story.IsExpiredNow = story.IsExpired(now)
	return story, nil
}

// ListByAuthor returns the author's unexpired stories that readerID may see.
func (s *StoryService) ListByAuthor(ctx context.Context, readerID, authorID string) ([]model.Story, error) {
	now := s.now()
	stories, err := s.storyRepo.ListActiveByAuthor(ctx, authorID, now)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Story, 0, len(stories))
	for i := range stories {
		st := &stories[i]
		// The query and the clock can disagree at the boundary
		if st.IsExpired(now) || !st.CanView(readerID) {
			continue
		}
		visible = append(visible, *st)
	}
	return visible, nil
}

// Delete soft deletes a story. Highlights keep referencing it but stop
// showing it.
func (s *StoryService) Delete(ctx context.Context, actorID string, storyID primitive.ObjectID) error {
	ref := model.ContentRef{Type: model.ContentTypeStory, ID: storyID}
	_, err := updateContent(ctx, s.contentRepo, ref, func(c model.Content) error {
		if c.AuthorID() != actorID {
			return model.ErrNotAuthorized
		}
		if !c.Active() {
			return fmt.Errorf("%w: %s", model.ErrContentInactive, ref)
		}
		model.SetActive(c, false)
		return nil
	})
	return err
}

// HardDelete removes the story's media objects, pulls it from every
// highlight and deletes the document. Works on soft-deleted stories too.
func (s *StoryService) HardDelete(ctx context.Context, actorID string, storyID primitive.ObjectID) error {
	ref := model.ContentRef{Type: model.ContentTypeStory, ID: storyID}
	c, err := s.contentRepo.Get(ctx, ref)
	if err != nil {
		return err
	}
	story, ok := c.(*model.Story)
	if !ok {
		return fmt.Errorf("%w: %s resolved to %T", model.ErrUnknownContentType, ref, c)
	}
	if story.Author != actorID {
		return model.ErrNotAuthorized
	}

	if keys := story.MediaKeys(); len(keys) > 0 {
		if s.media == nil {
			s.log.Warn().Str("story", storyID.Hex()).Int("keys", len(keys)).Msg("media storage not configured, objects left behind")
		} else if err := s.media.DeleteObjects(ctx, keys); err != nil {
			// Keep the document so the delete can be retried
			return fmt.Errorf("delete story media: %w", err)
		}
	}

	pulled, err := s.highlightRepo.PullStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("pull story from highlights: %w", err)
	}
	if err := s.contentRepo.Delete(ctx, ref); err != nil {
		return err
	}

	s.log.Info().Str("story", storyID.Hex()).Int("highlights", pulled).Msg("story hard deleted")
	return nil
}
