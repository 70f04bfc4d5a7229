package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

// PostHandler serves posts, videos and page posts under /content/{contentType}.
type PostHandler struct {
	postService *service.PostService
	log         zerolog.Logger
}

func NewPostHandler(postService *service.PostService, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		log:         log.With().Str("component", "post_handler").Logger(),
	}
}

// Create handles POST /content/{contentType}
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	contentType, err := model.ParseContentType(chi.URLParam(r, "contentType"))
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.CreatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	c, err := h.postService.Create(r.Context(), userID, contentType, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to create content")
		return
	}
	httputil.WriteCreated(w, "Content created", c)
}

// Get handles GET /content/{contentType}/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	ref, err := contentRefParam(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	c, err := h.postService.Get(r.Context(), userID, ref)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get content")
		return
	}
	httputil.WriteOK(w, c)
}

// Update handles PATCH /content/{contentType}/{id}
// Only the author may edit caption and feature flags.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	ref, err := contentRefParam(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.UpdatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	c, err := h.postService.Update(r.Context(), userID, ref, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to update content")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Content updated", c)
}

// Delete handles DELETE /content/{contentType}/{id}
// Soft delete; the item can be restored by its author.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false, "Content deleted")
}

// Restore handles POST /content/{contentType}/{id}/restore
func (h *PostHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true, "Content restored")
}

func (h *PostHandler) setActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	ref, err := contentRefParam(r)
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.postService.SetActive(r.Context(), userID, ref, active); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to change content state")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, message, nil)
}
