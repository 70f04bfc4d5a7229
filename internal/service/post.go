package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// errUnchanged short-circuits updateContent when the entity is already in
// the requested state.
var errUnchanged = errors.New("unchanged")

// PostService authors posts, videos and page posts. Counters are never
// touched here.
type PostService struct {
	contentRepo repository.ContentRepository
	notifier    Notifier
	log         zerolog.Logger
	now         func() time.Time
}

func NewPostService(contentRepo repository.ContentRepository, notifier Notifier, log zerolog.Logger) *PostService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PostService{
		contentRepo: contentRepo,
		notifier:    notifier,
		log:         log.With().Str("component", "post_service").Logger(),
		now:         time.Now,
	}
}

// Create stores a new post-like item of the given type and notifies the
// users mentioned in it.
func (s *PostService) Create(ctx context.Context, authorID string, t model.ContentType, req model.CreatePostRequest) (model.Content, error) {
	if len(req.Media) == 0 {
		return nil, fmt.Errorf("%w: at least one media item is required", model.ErrValidation)
	}
	if len(req.Mentions) > model.MaxMentions {
		return nil, fmt.Errorf("%w: at most %d mentions", model.ErrValidation, model.MaxMentions)
	}

	body := model.NewPost(authorID, req, s.now())
	var c model.Content
	switch t {
	case model.ContentTypePost:
		c = &body
	case model.ContentTypeVideo:
		c = &model.Video{Post: body, DurationSecs: req.DurationSecs, ThumbnailURL: req.ThumbnailURL}
	case model.ContentTypePagePost:
		if strings.TrimSpace(req.PageID) == "" {
			return nil, fmt.Errorf("%w: pageId is required", model.ErrValidation)
		}
		c = &model.PagePost{Post: body, PageID: req.PageID}
	default:
		return nil, fmt.Errorf("%w: %s is not a post type", model.ErrUnknownContentType, t)
	}

	if err := s.contentRepo.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("create %s: %w", t, err)
	}

	dispatch(ctx, s.notifier, s.log, mentionEvents(authorID, authorID, req.Mentions, model.Ref(c), req.Caption))
	s.log.Debug().Str("author", authorID).Str("target", model.Ref(c).String()).Msg("post created")
	return c, nil
}

// Get returns an active post-like item with the viewer's liked/saved flags.
func (s *PostService) Get(ctx context.Context, viewerID string, ref model.ContentRef) (model.Content, error) {
	if !ref.Type.IsPostLike() {
		return nil, fmt.Errorf("%w: %s is not a post type", model.ErrUnknownContentType, ref.Type)
	}
	c, err := resolveActive(ctx, s.contentRepo, ref)
	if err != nil {
		return nil, err
	}
	if body, ok := model.PostBody(c); ok && viewerID != "" {
		body.IsLiked = model.IsMember(body, model.SetLikes, viewerID)
		body.IsSaved = model.IsMember(body, model.SetSaves, viewerID)
	}
	return c, nil
}

// Update changes caption and feature flags. Last writer wins.
func (s *PostService) Update(ctx context.Context, actorID string, ref model.ContentRef, req model.UpdatePostRequest) (model.Content, error) {
	if !ref.Type.IsPostLike() {
		return nil, fmt.Errorf("%w: %s is not a post type", model.ErrUnknownContentType, ref.Type)
	}
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}

	now := s.now()
	return updateContent(ctx, s.contentRepo, ref, func(c model.Content) error {
		if c.AuthorID() != actorID {
			return model.ErrNotAuthorized
		}
		if !c.Active() {
			return fmt.Errorf("%w: %s", model.ErrContentInactive, ref)
		}
		body, _ := model.PostBody(c)
		req.Apply(body, now)
		return nil
	})
}

// SetActive soft deletes (active=false) or restores a post-like item.
// Setting the current state again is a no-op.
func (s *PostService) SetActive(ctx context.Context, actorID string, ref model.ContentRef, active bool) error {
	if !ref.Type.IsPostLike() {
		return fmt.Errorf("%w: %s is not a post type", model.ErrUnknownContentType, ref.Type)
	}

	now := s.now()
	_, err := updateContent(ctx, s.contentRepo, ref, func(c model.Content) error {
		if c.AuthorID() != actorID {
			return model.ErrNotAuthorized
		}
		if c.Active() == active {
			return errUnchanged
		}
		model.SetActive(c, active)
		body, _ := model.PostBody(c)
		body.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info().Str("target", ref.String()).Bool("active", active).Msg("post state changed")
	return nil
}
