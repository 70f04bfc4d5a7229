package model

import "errors"

// Engine errors. Handlers map these with errors.Is; KindOf gives the stable
// machine-readable code returned to clients.
var (
	ErrContentNotFound     = errors.New("content not found")
	ErrContentInactive     = errors.New("content is no longer active")
	ErrUnknownContentType  = errors.New("unknown content type")
	ErrInvalidContentID    = errors.New("invalid content id")
	ErrInvalidAction       = errors.New("invalid action")
	ErrActionNotPermitted  = errors.New("action not permitted on this content")
	ErrNotAuthorized       = errors.New("not authorized to access this content")
	ErrStoryExpired        = errors.New("story has expired")
	ErrCounterUpdateFailed = errors.New("counter update failed")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrValidation          = errors.New("validation failed")
	ErrIdempotencyConflict = errors.New("request with this idempotency key is still in progress")

	// ErrWriteConflict is returned by repositories when a conditional update
	// lost a race. It never leaves the service layer.
	ErrWriteConflict = errors.New("write conflict")
)

// Error kinds (stable codes for HTTP responses)
const (
	KindContentNotFound     = "CONTENT_NOT_FOUND"
	KindContentInactive     = "CONTENT_INACTIVE"
	KindUnknownContentType  = "UNKNOWN_CONTENT_TYPE"
	KindInvalidContentID    = "INVALID_CONTENT_ID"
	KindInvalidAction       = "INVALID_ACTION"
	KindActionNotPermitted  = "ACTION_NOT_PERMITTED"
	KindNotAuthorized       = "NOT_AUTHORIZED"
	KindStoryExpired        = "STORY_EXPIRED"
	KindCounterUpdateFailed = "COUNTER_UPDATE_FAILED"
	KindUnauthenticated     = "UNAUTHENTICATED"
	KindValidation          = "VALIDATION_FAILED"
	KindIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	KindInternal            = "INTERNAL_ERROR"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrContentNotFound, KindContentNotFound},
	{ErrContentInactive, KindContentInactive},
	{ErrUnknownContentType, KindUnknownContentType},
	{ErrInvalidContentID, KindInvalidContentID},
	{ErrInvalidAction, KindInvalidAction},
	{ErrActionNotPermitted, KindActionNotPermitted},
	{ErrNotAuthorized, KindNotAuthorized},
	{ErrStoryExpired, KindStoryExpired},
	{ErrCounterUpdateFailed, KindCounterUpdateFailed},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrValidation, KindValidation},
	{ErrIdempotencyConflict, KindIdempotencyConflict},
}

// KindOf returns the error kind for err, or KindInternal for anything that
// is not part of the engine's taxonomy.
func KindOf(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
