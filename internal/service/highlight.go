package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// HighlightService manages highlight lists. The highlightedBy membership set
// on stories is owned by the "highlight" interaction, not by these calls.
type HighlightService struct {
	highlightRepo repository.HighlightRepository
	contentRepo   repository.ContentRepository
	storyRepo     repository.StoryRepository
	log           zerolog.Logger
	now           func() time.Time
}

func NewHighlightService(
	highlightRepo repository.HighlightRepository,
	contentRepo repository.ContentRepository,
	storyRepo repository.StoryRepository,
	log zerolog.Logger,
) *HighlightService {
	return &HighlightService{
		highlightRepo: highlightRepo,
		contentRepo:   contentRepo,
		storyRepo:     storyRepo,
		log:           log.With().Str("component", "highlight_service").Logger(),
		now:           time.Now,
	}
}

// Create makes a highlight, optionally seeded with stories.
func (s *HighlightService) Create(ctx context.Context, ownerID string, req model.CreateHighlightRequest) (*model.Highlight, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}

	now := s.now()
	h := &model.Highlight{
		Owner:     ownerID,
		Name:      name,
		CoverURL:  req.CoverURL,
		Stories:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, raw := range req.Stories {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidContentID, raw)
		}
		if _, err := s.highlightable(ctx, ownerID, id); err != nil {
			return nil, err
		}
		h.AddStory(id)
	}

	if err := s.highlightRepo.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create highlight: %w", err)
	}
	return h, nil
}

func (s *HighlightService) List(ctx context.Context, ownerID string) ([]model.Highlight, error) {
	return s.highlightRepo.ListByOwner(ctx, ownerID)
}

// Get resolves a highlight's stories for readerID. Expired stories stay
// listed; soft-deleted ones and ones hidden from the reader are dropped.
func (s *HighlightService) Get(ctx context.Context, readerID string, highlightID primitive.ObjectID) (*model.HighlightView, error) {
	h, err := s.highlightRepo.Get(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	stories, err := s.storyRepo.GetMany(ctx, h.Stories)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]model.Story, 0, len(stories))
	for i := range stories {
		st := &stories[i]
		if !st.IsActive || st.CheckAccess(readerID, now, true) != nil {
			continue
		}
		st.IsExpiredNow = st.IsExpired(now)
		items = append(items, *st)
	}
	return &model.HighlightView{Highlight: *h, Items: items}, nil
}

// AddStory files a story into the owner's highlight. Adding a story that is
// already there is a no-op.
func (s *HighlightService) AddStory(ctx context.Context, ownerID string, highlightID, storyID primitive.ObjectID) (*model.Highlight, bool, error) {
	if _, err := s.owned(ctx, ownerID, highlightID); err != nil {
		return nil, false, err
	}
	if _, err := s.highlightable(ctx, ownerID, storyID); err != nil {
		return nil, false, err
	}
	return s.highlightRepo.AddStory(ctx, highlightID, ownerID, storyID, s.now())
}

// RemoveStory takes a story out of the highlight. Removing an absent story
// is a no-op.
func (s *HighlightService) RemoveStory(ctx context.Context, ownerID string, highlightID, storyID primitive.ObjectID) (*model.Highlight, bool, error) {
	return s.highlightRepo.RemoveStory(ctx, highlightID, ownerID, storyID, s.now())
}

// Update renames the highlight or changes its cover.
func (s *HighlightService) Update(ctx context.Context, ownerID string, highlightID primitive.ObjectID, req model.UpdateHighlightRequest) (*model.Highlight, error) {
	if req.Name == nil && req.CoverURL == nil {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}
	h, err := s.owned(ctx, ownerID, highlightID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
		}
		h.Name = name
	}
	if req.CoverURL != nil {
		h.CoverURL = *req.CoverURL
	}
	h.UpdatedAt = s.now()
	if err := s.highlightRepo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HighlightService) Delete(ctx context.Context, ownerID string, highlightID primitive.ObjectID) error {
	if _, err := s.owned(ctx, ownerID, highlightID); err != nil {
		return err
	}
	return s.highlightRepo.Delete(ctx, highlightID)
}

func (s *HighlightService) owned(ctx context.Context, ownerID string, highlightID primitive.ObjectID) (*model.Highlight, error) {
	h, err := s.highlightRepo.Get(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	if h.Owner != ownerID {
		return nil, model.ErrNotHighlightOwner
	}
	return h, nil
}

// highlightable resolves an active story the owner may see, expired or not.
func (s *HighlightService) highlightable(ctx context.Context, ownerID string, storyID primitive.ObjectID) (*model.Story, error) {
	story, err := resolveAs[*model.Story](ctx, s.contentRepo, model.ContentRef{Type: model.ContentTypeStory, ID: storyID})
	if err != nil {
		return nil, err
	}
	if err := story.CheckAccess(ownerID, s.now(), true); err != nil {
		return nil, err
	}
	return story, nil
}

// FileStory adds or removes a story in one of the actor's highlights and
// reports whether the list changed. Used by the highlight/unhighlight
// interactions when a highlight id is given.
func (s *HighlightService) FileStory(ctx context.Context, actorID, highlightID string, storyID primitive.ObjectID, remove bool) (bool, error) {
	id, err := primitive.ObjectIDFromHex(highlightID)
	if err != nil {
		return false, fmt.Errorf("%w: highlightId %q", model.ErrValidation, highlightID)
	}
	var changed bool
	if remove {
		_, changed, err = s.RemoveStory(ctx, actorID, id, storyID)
	} else {
		_, changed, err = s.AddStory(ctx, actorID, id, storyID)
	}
	return changed, err
}
