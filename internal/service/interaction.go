package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/metrics"
	"babagram/internal/model"
	"babagram/internal/repository"
)

// InteractionService is the single entry point for like, share, save, view,
// comment, reply and highlight interactions.
type InteractionService struct {
	contentRepo repository.ContentRepository
	counter     *CounterService
	comments    *CommentService
	highlights  *HighlightService // optional, files highlighted stories
	notifier    Notifier
	log         zerolog.Logger
	now         func() time.Time
}

func NewInteractionService(
	contentRepo repository.ContentRepository,
	counter *CounterService,
	comments *CommentService,
	highlights *HighlightService,
	notifier Notifier,
	log zerolog.Logger,
) *InteractionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &InteractionService{
		contentRepo: contentRepo,
		counter:     counter,
		comments:    comments,
		highlights:  highlights,
		notifier:    notifier,
		log:         log.With().Str("component", "interaction").Logger(),
		now:         time.Now,
	}
}

// Apply validates and applies one interaction on behalf of actorID.
//
// Checks run in a fixed order so the first failing one decides the error:
// action literal, content type, action/type matrix, id, resolution, story
// gate, feature flags. Notifications go out only when state changed.
func (s *InteractionService) Apply(ctx context.Context, actorID string, req model.InteractionRequest) (res *model.InteractionResult, err error) {
	if actorID == "" {
		return nil, model.ErrUnauthenticated
	}

	action, err := model.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	contentType, err := model.ParseContentType(req.ContentType)
	if err != nil {
		return nil, err
	}
	defer func() {
		metrics.ObserveInteraction(string(contentType), string(action), err, res != nil && res.Changed)
	}()

	if !action.SupportedOn(contentType) {
		return nil, fmt.Errorf("%w: %s is not supported on %s", model.ErrInvalidAction, action, contentType)
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ContentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidContentID, req.ContentID)
	}
	ref := model.ContentRef{Type: contentType, ID: id}

	var payload model.InteractionPayload
	if req.Payload != nil {
		payload = *req.Payload
	}

	target, err := resolveActive(ctx, s.contentRepo, ref)
	if err != nil {
		return nil, err
	}

	if lc, ok := target.(model.HasLifecycle); ok {
		// Highlighting curates past stories, so only visibility applies
		ignoreExpiry := action == model.ActionHighlight || action == model.ActionUnhighlight
		if err := model.CheckLifecycle(lc, actorID, s.now(), ignoreExpiry); err != nil {
			return nil, err
		}
	}
	if hf, ok := target.(model.HasFeatures); ok && !hf.FeatureEnabled(action) {
		return nil, fmt.Errorf("%w: %s disabled on %s", model.ErrActionNotPermitted, action, ref)
	}

	if action.IsCreation() {
		res, err = s.create(ctx, actorID, action, target, payload)
	} else {
		res, err = s.toggle(ctx, actorID, action, target, payload)
	}
	if err != nil {
		return nil, err
	}

	if res.Changed {
		s.notify(ctx, actorID, target, res, payload)
	}
	return res, nil
}

func (s *InteractionService) toggle(ctx context.Context, actorID string, action model.Action, target model.Content, p model.InteractionPayload) (*model.InteractionResult, error) {
	binding, _ := action.Binding()
	hm, ok := target.(model.HasMembershipSets)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no membership sets", model.ErrInvalidAction, target.ContentType())
	}

	filed := false
	if p.HighlightID != "" {
		switch {
		case action != model.ActionHighlight && action != model.ActionUnhighlight:
			return nil, fmt.Errorf("%w: highlightId is only accepted by highlight and unhighlight", model.ErrValidation)
		case s.highlights == nil:
			return nil, fmt.Errorf("%w: highlights are not available", model.ErrValidation)
		}
		changed, err := s.highlights.FileStory(ctx, actorID, p.HighlightID, target.ContentID(), binding.Remove)
		if err != nil {
			return nil, err
		}
		filed = changed
	}

	var (
		mr  model.MemberResult
		err error
	)
	if binding.Remove {
		mr, err = s.counter.RemoveMember(ctx, hm, binding.Set, actorID)
	} else {
		mr, err = s.counter.AddMember(ctx, hm, binding.Set, actorID)
	}
	if err != nil {
		if filed {
			// Put the highlight list back so it matches the unchanged counter
			if _, undoErr := s.highlights.FileStory(context.WithoutCancel(ctx), actorID, p.HighlightID, target.ContentID(), !binding.Remove); undoErr != nil {
				s.log.Error().Err(undoErr).Str("highlight", p.HighlightID).Str("story", target.ContentID().Hex()).Msg("undo highlight filing failed")
			}
		}
		return nil, err
	}
	return &model.InteractionResult{
		Action:  action,
		Target:  model.Ref(target),
		Member:  mr.Member,
		Count:   mr.Count,
		Changed: mr.Changed,
	}, nil
}

func (s *InteractionService) create(ctx context.Context, actorID string, action model.Action, target model.Content, p model.InteractionPayload) (*model.InteractionResult, error) {
	parent, ok := target.(model.HasChildren)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot have %ss", model.ErrInvalidAction, target.ContentType(), action)
	}
	cr, err := s.comments.Create(ctx, actorID, parent, p)
	if err != nil {
		return nil, err
	}
	return &model.InteractionResult{
		Action:  action,
		Target:  model.Ref(target),
		Member:  true,
		Count:   cr.ChildCount,
		Changed: !cr.Replayed,
		Comment: cr.Comment,
	}, nil
}

// notify tells the author (unless they acted on their own content) and
// every mentioned user. Delivery errors never fail the interaction.
func (s *InteractionService) notify(ctx context.Context, actorID string, target model.Content, res *model.InteractionResult, p model.InteractionPayload) {
	authorID := target.AuthorID()
	targetRef := model.Ref(target)

	var events []model.NotificationEvent
	text := ""
	if res.Comment != nil {
		text = res.Comment.Text
	}
	if actorID != authorID {
		events = append(events, model.NotificationEvent{
			RecipientID: authorID,
			SenderID:    actorID,
			Kind:        res.Action.NotificationKind(),
			Target:      targetRef,
			Text:        text,
		})
	}

	mentionTarget := targetRef
	if res.Comment != nil {
		mentionTarget = model.Ref(res.Comment)
	}
	events = append(events, mentionEvents(actorID, authorID, p.Mentions, mentionTarget, text)...)

	dispatch(ctx, s.notifier, s.log, events)
}
