package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/cache"
	"babagram/internal/model"
	"babagram/internal/repository"
)

type CommentService struct {
	contentRepo repository.ContentRepository
	commentRepo repository.CommentRepository
	idempotency cache.IdempotencyStore // nil disables Idempotency-Key handling
	log         zerolog.Logger
	now         func() time.Time
}

func NewCommentService(
	contentRepo repository.ContentRepository,
	commentRepo repository.CommentRepository,
	idempotency cache.IdempotencyStore,
	log zerolog.Logger,
) *CommentService {
	return &CommentService{
		contentRepo: contentRepo,
		commentRepo: commentRepo,
		idempotency: idempotency,
		log:         log.With().Str("component", "comment_service").Logger(),
		now:         time.Now,
	}
}

// CreateResult is the outcome of a comment or reply submission.
type CreateResult struct {
	Comment    *model.Comment
	ChildCount int
	// Replayed is true when an earlier request with the same idempotency key
	// already created the comment.
	Replayed bool
}

// Create stores a comment under parent (a post-like item) or a reply under
// parent (a comment) and links it on the parent. The two writes are not
// atomic: if linking fails the new document is removed again.
func (s *CommentService) Create(ctx context.Context, actorID string, parent model.HasChildren, p model.InteractionPayload) (*CreateResult, error) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}
	if utf8.RuneCountInString(text) > model.MaxCommentLength {
		return nil, fmt.Errorf("%w: text exceeds %d characters", model.ErrValidation, model.MaxCommentLength)
	}
	if len(p.Mentions) > model.MaxMentions {
		return nil, fmt.Errorf("%w: at most %d mentions", model.ErrValidation, model.MaxMentions)
	}

	var idemKey string
	if p.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = "comment:" + actorID + ":" + p.IdempotencyKey
		prior, err := s.replay(ctx, idemKey, parent)
		if prior != nil || err != nil {
			return prior, err
		}
	}

	comment, count, err := s.insertAndLink(ctx, actorID, text, p.Mentions, parent)
	// The outcome is settled once the link commits, even if the caller has
	// given up by now: a key left pending would block retries for the whole TTL.
	settleCtx := context.WithoutCancel(ctx)
	if err != nil {
		if idemKey != "" {
			if relErr := s.idempotency.Release(settleCtx, idemKey); relErr != nil {
				s.log.Warn().Err(relErr).Msg("release idempotency key failed")
			}
		}
		return nil, err
	}

	if idemKey != "" {
		if err := s.idempotency.Complete(settleCtx, idemKey, comment.ID.Hex()); err != nil {
			s.log.Warn().Err(err).Msg("complete idempotency key failed")
		}
	}
	return &CreateResult{Comment: comment, ChildCount: count}, nil
}

// replay claims the idempotency key. It returns a result when a previous
// request already created the comment.
func (s *CommentService) replay(ctx context.Context, key string, parent model.HasChildren) (*CreateResult, error) {
	resultID, pending, reserved, err := s.idempotency.Reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	if reserved {
		return nil, nil
	}
	if pending {
		return nil, model.ErrIdempotencyConflict
	}

	id, err := primitive.ObjectIDFromHex(resultID)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %q: %w", resultID, err)
	}
	c, err := s.contentRepo.Get(ctx, model.ContentRef{Type: model.ContentTypeComment, ID: id})
	if err != nil {
		return nil, err
	}
	prior, ok := c.(*model.Comment)
	if !ok {
		return nil, fmt.Errorf("idempotency record %q resolved to %T", resultID, c)
	}
	if want := model.Ref(parent); prior.ParentRef() != want {
		return nil, fmt.Errorf("%w: key already used on %s", model.ErrIdempotencyConflict, prior.ParentRef())
	}
	return &CreateResult{Comment: prior, ChildCount: model.ChildCount(parent), Replayed: true}, nil
}

func (s *CommentService) insertAndLink(ctx context.Context, actorID, text string, mentions []string, parent model.HasChildren) (*model.Comment, int, error) {
	now := s.now()
	parentRef := model.Ref(parent)

	var comment *model.Comment
	switch p := parent.(type) {
	case *model.Comment:
		parentID := p.ID
		comment = model.NewComment(actorID, text, mentions, p.Root, &parentID, now)
	default:
		if !parentRef.Type.IsPostLike() {
			return nil, 0, fmt.Errorf("%w: cannot comment on %s", model.ErrInvalidAction, parentRef.Type)
		}
		comment = model.NewComment(actorID, text, mentions, parentRef, nil, now)
	}

	if err := s.contentRepo.Insert(ctx, comment); err != nil {
		return nil, 0, err
	}

	count, err := s.contentRepo.AppendChild(ctx, parentRef, comment.ID)
	if err != nil {
		commentRef := model.Ref(comment)
		if delErr := s.contentRepo.Delete(context.WithoutCancel(ctx), commentRef); delErr != nil {
			s.log.Error().Err(delErr).Str("comment", commentRef.String()).Msg("orphan comment left behind")
		}
		if errors.Is(err, model.ErrContentNotFound) {
			// Parent went away between resolve and link
			return nil, 0, fmt.Errorf("%w: %s", model.ErrContentInactive, parentRef)
		}
		return nil, 0, err
	}

	s.log.Debug().Str("author", actorID).Str("parent", parentRef.String()).Str("comment", comment.ID.Hex()).Msg("comment created")
	return comment, count, nil
}

// List returns the top-level comments of a post-like item.
func (s *CommentService) List(ctx context.Context, root model.ContentRef, cursor *string, limit int) (*model.CommentListResponse, error) {
	if !root.Type.IsPostLike() {
		return nil, fmt.Errorf("%w: %s has no comments", model.ErrInvalidAction, root.Type)
	}
	if _, err := resolveActive(ctx, s.contentRepo, root); err != nil {
		return nil, err
	}
	comments, next, err := s.commentRepo.ListByRoot(ctx, root, cursor, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return commentPage(comments, next), nil
}

// ListReplies returns the replies of a comment.
func (s *CommentService) ListReplies(ctx context.Context, commentID primitive.ObjectID, cursor *string, limit int) (*model.CommentListResponse, error) {
	ref := model.ContentRef{Type: model.ContentTypeComment, ID: commentID}
	if _, err := resolveActive(ctx, s.contentRepo, ref); err != nil {
		return nil, err
	}
	replies, next, err := s.commentRepo.ListReplies(ctx, commentID, cursor, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return commentPage(replies, next), nil
}

// Delete soft deletes a comment, unlinks it from its parent and deactivates
// its replies. Only the author may delete.
func (s *CommentService) Delete(ctx context.Context, actorID string, commentID primitive.ObjectID) error {
	ref := model.ContentRef{Type: model.ContentTypeComment, ID: commentID}
	comment, err := resolveAs[*model.Comment](ctx, s.contentRepo, ref)
	if err != nil {
		return err
	}
	if comment.Author != actorID {
		return model.ErrNotAuthorized
	}

	now := s.now()
	_, err = updateContent(ctx, s.contentRepo, ref, func(c model.Content) error {
		if !c.Active() {
			return fmt.Errorf("%w: %s", model.ErrContentInactive, ref)
		}
		cm := c.(*model.Comment)
		cm.IsActive = false
		cm.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	parentRef := comment.Root
	if comment.ParentComment != nil {
		parentRef = model.ContentRef{Type: model.ContentTypeComment, ID: *comment.ParentComment}
	}
	if _, err := s.contentRepo.RemoveChild(ctx, parentRef, commentID); err != nil && !errors.Is(err, model.ErrContentNotFound) {
		return err
	}

	n, err := s.commentRepo.DeactivateReplies(ctx, commentID, now)
	if err != nil {
		return err
	}
	s.log.Debug().Str("comment", commentID.Hex()).Int("replies", n).Msg("comment deleted")
	return nil
}

func commentPage(comments []model.Comment, next *string) *model.CommentListResponse {
	if comments == nil {
		comments = []model.Comment{}
	}
	return &model.CommentListResponse{
		Comments:   comments,
		NextCursor: next,
		HasMore:    next != nil,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 50)
}
