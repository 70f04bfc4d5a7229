package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"babagram/internal/metrics"
	"babagram/internal/model"
	"babagram/internal/repository"
)

// DefaultCounterMaxAttempts bounds the optimistic retry loop.
const DefaultCounterMaxAttempts = 4

// CounterService is the only writer of membership sets and their counts.
// Every change is one conditional write pinned to the revision that was
// read; a lost race re-reads and tries again, up to maxAttempts.
type CounterService struct {
	repo        repository.ContentRepository
	maxAttempts int
	log         zerolog.Logger
}

func NewCounterService(repo repository.ContentRepository, maxAttempts int, log zerolog.Logger) *CounterService {
	if maxAttempts < 1 {
		maxAttempts = DefaultCounterMaxAttempts
	}
	return &CounterService{
		repo:        repo,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "counter").Logger(),
	}
}

// AddMember puts actorID into set. Adding an existing member succeeds with
// Changed=false and the current count.
func (s *CounterService) AddMember(ctx context.Context, c model.HasMembershipSets, set model.MemberSet, actorID string) (model.MemberResult, error) {
	return s.mutate(ctx, c, set, actorID, false)
}

// RemoveMember takes actorID out of set. Removing a non-member succeeds with
// Changed=false and the current count.
func (s *CounterService) RemoveMember(ctx context.Context, c model.HasMembershipSets, set model.MemberSet, actorID string) (model.MemberResult, error) {
	return s.mutate(ctx, c, set, actorID, true)
}

func (s *CounterService) mutate(ctx context.Context, c model.HasMembershipSets, set model.MemberSet, actorID string, remove bool) (model.MemberResult, error) {
	if !model.Supports(c, set) {
		return model.MemberResult{}, fmt.Errorf("%w: %s has no %s", model.ErrInvalidAction, c.ContentType(), set)
	}
	ref := model.Ref(c)
	current := c

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			reloaded, err := s.reload(ctx, ref)
			if err != nil {
				return model.MemberResult{}, err
			}
			current = reloaded
		}

		member := model.IsMember(current, set, actorID)
		if member != remove {
			// Already in the requested state
			return model.MemberResult{Count: model.MemberCount(current, set), Member: member}, nil
		}

		var err error
		if remove {
			err = s.repo.RemoveMember(ctx, ref, current.Revision(), set, actorID)
		} else {
			err = s.repo.AddMember(ctx, ref, current.Revision(), set, actorID)
		}
		if err == nil {
			// Mirror the committed write on the local copy to report the new count
			if remove {
				return model.RemoveMember(current, set, actorID)
			}
			return model.AddMember(current, set, actorID)
		}
		if !errors.Is(err, model.ErrWriteConflict) {
			return model.MemberResult{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.MemberResult{}, fmt.Errorf("%w: %v", model.ErrCounterUpdateFailed, ctxErr)
		}

		metrics.CounterRetriesTotal.WithLabelValues(string(ref.Type)).Inc()
		s.log.Debug().Str("target", ref.String()).Str("set", string(set)).Int("attempt", attempt).Msg("write conflict")
	}

	metrics.CounterFailuresTotal.WithLabelValues(string(ref.Type)).Inc()
	s.log.Warn().Str("target", ref.String()).Str("set", string(set)).Int("attempts", s.maxAttempts).Msg("counter update abandoned")
	return model.MemberResult{}, fmt.Errorf("%w: %s %s after %d attempts", model.ErrCounterUpdateFailed, ref, set, s.maxAttempts)
}

// reload re-reads the target after a conflict. A conflict can also mean the
// item was deleted or deactivated meanwhile; those surface as such.
func (s *CounterService) reload(ctx context.Context, ref model.ContentRef) (model.HasMembershipSets, error) {
	c, err := resolveActive(ctx, s.repo, ref)
	if err != nil {
		return nil, err
	}
	hm, ok := c.(model.HasMembershipSets)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidAction, ref)
	}
	return hm, nil
}
