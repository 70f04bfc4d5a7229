package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidAction),
		errors.Is(err, model.ErrUnknownContentType),
		errors.Is(err, model.ErrInvalidContentID),
		errors.Is(err, model.ErrFileTooLarge),
		errors.Is(err, model.ErrInvalidMediaType):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotAuthorized),
		errors.Is(err, model.ErrActionNotPermitted),
		errors.Is(err, model.ErrNotHighlightOwner):
		return http.StatusForbidden
	case errors.Is(err, model.ErrContentNotFound),
		errors.Is(err, model.ErrHighlightNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoryExpired),
		errors.Is(err, model.ErrContentInactive):
		return http.StatusGone
	case errors.Is(err, service.ErrMediaNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// codeFor returns the stable error code for the response body.
func codeFor(err error) string {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		return model.CodeFileTooLarge
	case errors.Is(err, model.ErrInvalidMediaType):
		return model.CodeInvalidMediaType
	case errors.Is(err, model.ErrHighlightNotFound):
		return httputil.ErrCodeNotFound
	case errors.Is(err, model.ErrNotHighlightOwner):
		return httputil.ErrCodeForbidden
	}
	return model.KindOf(err)
}

// writeServiceError renders err. Unexpected failures are logged and their
// details kept out of the response.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(fallback)
		httputil.WriteError(w, status, codeFor(err), fallback)
		return
	}
	httputil.WriteError(w, status, codeFor(err), err.Error())
}
