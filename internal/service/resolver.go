package service

import (
	"context"
	"errors"
	"fmt"

	"babagram/internal/model"
	"babagram/internal/repository"
)

// resolveActive loads ref and rejects soft-deleted content.
func resolveActive(ctx context.Context, repo repository.ContentRepository, ref model.ContentRef) (model.Content, error) {
	c, err := repo.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !c.Active() {
		return nil, fmt.Errorf("%w: %s", model.ErrContentInactive, ref)
	}
	return c, nil
}

// resolveAs loads an active entity and asserts its concrete type.
func resolveAs[T model.Content](ctx context.Context, repo repository.ContentRepository, ref model.ContentRef) (T, error) {
	var zero T
	c, err := resolveActive(ctx, repo, ref)
	if err != nil {
		return zero, err
	}
	v, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %T", model.ErrUnknownContentType, ref, c)
	}
	return v, nil
}

// replaceAttempts bounds the read-modify-replace loop used for author edits.
const replaceAttempts = DefaultCounterMaxAttempts

// updateContent loads ref, applies edit and writes the whole document back
// conditional on the revision that was read. Concurrent counter writes bump
// the revision, so a lost race re-reads and re-applies edit.
func updateContent(ctx context.Context, repo repository.ContentRepository, ref model.ContentRef, edit func(model.Content) error) (model.Content, error) {
	for attempt := 0; attempt < replaceAttempts; attempt++ {
		c, err := repo.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		revision := c.Revision()
		if err := edit(c); err != nil {
			return nil, err
		}
		err = repo.Replace(ctx, c, revision)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, model.ErrWriteConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s kept changing", model.ErrCounterUpdateFailed, ref)
}
