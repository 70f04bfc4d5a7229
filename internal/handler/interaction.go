package handler

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

// IdempotencyKeyHeader lets clients dedupe comment and reply submissions
// without putting the key in the body.
const IdempotencyKeyHeader = "Idempotency-Key"

type InteractionHandler struct {
	interactionService *service.InteractionService
	log                zerolog.Logger
}

func NewInteractionHandler(interactionService *service.InteractionService, log zerolog.Logger) *InteractionHandler {
	return &InteractionHandler{
		interactionService: interactionService,
		log:                log.With().Str("component", "interaction_handler").Logger(),
	}
}

// Apply handles POST /interactions
// Body: {"contentType": "post", "contentId": "...", "action": "like", "payload": {...}}
func (h *InteractionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.InteractionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		if req.Payload == nil {
			req.Payload = &model.InteractionPayload{}
		}
		if req.Payload.IdempotencyKey == "" {
			req.Payload.IdempotencyKey = key
		}
	}

	res, err := h.interactionService.Apply(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to apply interaction")
		return
	}

	status := http.StatusOK
	if res.Action.IsCreation() && res.Changed {
		status = http.StatusCreated
	}
	httputil.WriteSuccess(w, status, "Interaction applied", res.Data())
}
