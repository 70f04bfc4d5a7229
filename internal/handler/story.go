package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

// StoryImageUploader normalizes and stores a story image.
type StoryImageUploader interface {
	UploadStoryImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.MediaRef, error)
}

type StoryHandler struct {
	storyService *service.StoryService
	uploader     StoryImageUploader // nil when media storage is not configured
	log          zerolog.Logger
}

func NewStoryHandler(storyService *service.StoryService, uploader StoryImageUploader, log zerolog.Logger) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
		uploader:     uploader,
		log:          log.With().Str("component", "story_handler").Logger(),
	}
}

// Create handles POST /stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.CreateStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	story, err := h.storyService.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to create story")
		return
	}
	httputil.WriteCreated(w, "Story created", story)
}

// UploadImage handles POST /stories/media (multipart/form-data, field "file")
// Returns a media reference to pass to POST /stories.
func (h *StoryHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUserID(r.Context()); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	if h.uploader == nil {
		writeServiceError(w, h.log, r, service.ErrMediaNotConfigured, "")
		return
	}

	// Leave headroom for multipart overhead
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxStoryImageSizeBytes+(1<<20))
	if err := r.ParseMultipartForm(model.MaxStoryImageSizeBytes); err != nil {
		writeServiceError(w, h.log, r, model.ErrFileTooLarge, "")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	ref, err := h.uploader.UploadStoryImage(r.Context(), file, header)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to upload image")
		return
	}
	httputil.WriteCreated(w, "Image uploaded", ref)
}

// Get handles GET /stories/{id}
func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	storyID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	story, err := h.storyService.Get(r.Context(), userID, storyID)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get story")
		return
	}
	httputil.WriteOK(w, story)
}

// ListByAuthor handles GET /users/{userID}/stories
func (h *StoryHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	stories, err := h.storyService.ListByAuthor(r.Context(), userID, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get stories")
		return
	}
	httputil.WriteOK(w, map[string]interface{}{"stories": stories})
}

// Delete handles DELETE /stories/{id}
// Soft delete; ?permanent=true removes media and highlight references too.
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	storyID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if r.URL.Query().Get("permanent") == "true" {
		err = h.storyService.HardDelete(r.Context(), userID, storyID)
	} else {
		err = h.storyService.Delete(r.Context(), userID, storyID)
	}
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to delete story")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Story deleted", nil)
}
