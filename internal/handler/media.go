package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

// Presigner issues direct-to-bucket upload URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, req model.PresignUploadRequest) (*model.PresignUploadResponse, error)
}

type MediaHandler struct {
	presigner Presigner // nil when media storage is not configured
	log       zerolog.Logger
}

func NewMediaHandler(presigner Presigner, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		presigner: presigner,
		log:       log.With().Str("component", "media_handler").Logger(),
	}
}

// Presign handles POST /media/presign
// Returns a presigned URL for uploading post, video or story media directly to R2.
func (h *MediaHandler) Presign(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	var req model.PresignUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	res, err := h.presigner.PresignUpload(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to create upload URL")
		return
	}
	httputil.WriteOK(w, res)
}

// PresignBatch handles POST /media/presign/batch
func (h *MediaHandler) PresignBatch(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	var req model.PresignUploadBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	items := make([]model.PresignUploadResponse, 0, len(req.Items))
	for i, item := range req.Items {
		res, err := h.presigner.PresignUpload(r.Context(), item)
		if err != nil {
			writeServiceError(w, h.log, r, fmt.Errorf("items[%d]: %w", i, err), "Failed to create upload URL")
			return
		}
		items = append(items, *res)
	}
	httputil.WriteOK(w, model.PresignUploadBatchResponse{Items: items})
}

func (h *MediaHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	if _, err := middleware.RequireUserID(r.Context()); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return false
	}
	if h.presigner == nil {
		writeServiceError(w, h.log, r, service.ErrMediaNotConfigured, "")
		return false
	}
	return true
}
