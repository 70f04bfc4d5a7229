package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"babagram/internal/httputil"
	"babagram/internal/model"
	"babagram/internal/service"
	"babagram/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notifService *service.NotificationService
	log          zerolog.Logger
}

func NewNotificationHandler(notifService *service.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
		log:          log.With().Str("component", "notification_handler").Logger(),
	}
}

// List handles GET /notifications
// Returns comments, replies and mentions one by one, counter kinds aggregated per item.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = min(parsed, 100)
	}

	notifications, err := h.notifService.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get notifications")
		return
	}
	httputil.WriteOK(w, notifications)
}

// MarkRead handles PATCH /notifications/read
// An empty notificationIds list marks everything read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.MarkReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.notifService.MarkAsRead(r.Context(), userID, req.NotificationIDs); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to mark notifications as read")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Notifications marked as read", nil)
}

// GetUnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, r, err, "Failed to get unread count")
		return
	}
	httputil.WriteOK(w, map[string]int{"unreadCount": count})
}

// RegisterToken handles POST /devices/token
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req model.RegisterTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), userID, req); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to register device token")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Device token registered", nil)
}

// RemoveToken handles DELETE /devices/token (e.g. on logout)
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.log, r, err, "")
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), userID, req.Token); err != nil {
		writeServiceError(w, h.log, r, err, "Failed to remove device token")
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Device token removed", nil)
}
