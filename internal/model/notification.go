package model

import (
	"time"
)

// Notification kinds. Interaction kinds are 1:1 with the action literal.
const (
	NotificationLike        = "like"
	NotificationUnlike      = "unlike"
	NotificationShare       = "share"
	NotificationSave        = "save"
	NotificationUnsave      = "unsave"
	NotificationView        = "view"
	NotificationComment     = "comment"
	NotificationReply       = "reply"
	NotificationHighlight   = "highlight"
	NotificationUnhighlight = "unhighlight"
	NotificationMention     = "mention"
)

// NotificationEvent is handed to the notifier after a committed change.
type NotificationEvent struct {
	RecipientID string     `json:"recipientId"`
	SenderID    string     `json:"senderId"`
	Kind        string     `json:"kind"`
	Target      ContentRef `json:"target"`
	Text        string     `json:"text,omitempty"`
}

// Notification represents a single notification record in the database.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"-"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	Kind        string    `db:"kind" json:"kind"`
	ContentType string    `db:"content_type" json:"contentType"`
	ContentID   string    `db:"content_id" json:"contentId"`
	Text        *string   `db:"text" json:"text,omitempty"`
	IsRead      bool      `db:"is_read" json:"isRead"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// AggregatedNotification groups notifications of one kind on the same item.
// Used for "user1 and 5 others liked your post" display.
type AggregatedNotification struct {
	Kind        string    `json:"kind"`
	ContentType string    `json:"contentType"`
	ContentID   string    `json:"contentId"`
	Senders     []string  `json:"senders"`
	TotalCount  int       `json:"totalCount"`
	LatestAt    time.Time `json:"latestAt"`
	IsRead      bool      `json:"isRead"`
}

// NotificationListResponse is the notification list response.
type NotificationListResponse struct {
	// Mentions, comments and replies carry text and are shown individually
	Items []Notification `json:"items"`
	// Counter kinds are aggregated per content item
	Aggregated  []AggregatedNotification `json:"aggregated"`
	UnreadCount int                      `json:"unreadCount"`
}

// MarkReadRequest is the request body for marking notifications as read.
// An empty list marks everything read.
type MarkReadRequest struct {
	NotificationIDs []int64 `json:"notificationIds" validate:"omitempty,max=500"`
}

// IsAggregated reports whether notifications of kind are grouped per item.
func IsAggregated(kind string) bool {
	switch kind {
	case NotificationLike, NotificationShare, NotificationSave, NotificationView, NotificationHighlight:
		return true
	}
	return false
}
