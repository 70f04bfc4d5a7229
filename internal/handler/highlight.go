package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

type HighlightHandler struct {
	highlightService *service.HighlightService
	log              zerolog.Logger
}

func NewHighlightHandler(highlightService *service.HighlightService, log zerolog.Logger) *HighlightHandler {
	return &HighlightHandler{
		highlightService: highlightService,
		log:              log.With().Str("component", "highlight_handler").Logger(),
	}
}

// Create handles POST /highlights
func (h *HighlightHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.CreateHighlightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	hl, err := h.highlightService.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to create highlight")
		return
	}
	httputil.WriteCreated(w, "Highlight created", hl)
}

// ListByOwner handles GET /users/{userID}/highlights
func (h *HighlightHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	highlights, err := h.highlightService.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get highlights")
		return
	}
	if highlights == nil {
		highlights = []model.Highlight{}
	}
	httputil.WriteOK(w, map[string]interface{}{"highlights": highlights})
}

// Get handles GET /highlights/{id}
func (h *HighlightHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	highlightID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	view, err := h.highlightService.Get(r.Context(), userID, highlightID)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get highlight")
		return
	}
	httputil.WriteOK(w, view)
}

// Update handles PATCH /highlights/{id}
func (h *HighlightHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	highlightID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.UpdateHighlightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	hl, err := h.highlightService.Update(r.Context(), userID, highlightID, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to update highlight")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Highlight updated", hl)
}

// AddStory handles POST /highlights/{id}/stories
func (h *HighlightHandler) AddStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	highlightID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.AddHighlightStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	storyID, err := primitive.ObjectIDFromHex(req.StoryID)
	if err != nil {
		writeServiceError(w, h.log, r, model.ErrInvalidContentID, "")
		return
	}

	hl, changed, err := h.highlightService.AddStory(r.Context(), userID, highlightID, storyID)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to add story to highlight")
		return
	}
	httputil.WriteOK(w, map[string]interface{}{"highlight": hl, "changed": changed})
}

// RemoveStory handles DELETE /highlights/{id}/stories/{storyID}
func (h *HighlightHandler) RemoveStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	highlightID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	storyID, err := objectIDParam(r, "storyID")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	hl, changed, err := h.highlightService.RemoveStory(r.Context(), userID, highlightID, storyID)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to remove story from highlight")
		return
	}
	httputil.WriteOK(w, map[string]interface{}{"highlight": hl, "changed": changed})
}

// Delete handles DELETE /highlights/{id}
func (h *HighlightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	highlightID, err := objectIDParam(r, "id")
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.highlightService.Delete(r.Context(), userID, highlightID); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to delete highlight")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Highlight deleted", nil)
}
