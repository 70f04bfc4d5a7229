package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

// CommentHandler serves comment reads and deletes. Comments and replies are
// created through POST /interactions.
type CommentHandler struct {
	commentService *service.CommentService
	log            zerolog.Logger
}

func NewCommentHandler(commentService *service.CommentService, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log.With().Str("component", "comment_handler").Logger(),
	}
}

// List handles GET /content/{contentType}/{id}/comments?cursor=&limit=
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ref, err := contentRefParam(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	cursor, limit, err := pageParams(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	page, err := h.commentService.List(r.Context(), ref, cursor, limit)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get comments")
		return
	}
	httputil.WriteOK(w, page)
}

// ListReplies handles GET /comments/{id}/replies?cursor=&limit=
func (h *CommentHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	commentID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	cursor, limit, err := pageParams(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	page, err := h.commentService.ListReplies(r.Context(), commentID, cursor, limit)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get replies")
		return
	}
	httputil.WriteOK(w, page)
}

// Delete handles DELETE /comments/{id}
// Soft deletes the comment and its replies (only the author can delete).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	commentID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.commentService.Delete(r.Context(), userID, commentID); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to delete comment")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Comment deleted", nil)
}
