package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"babagram/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// aggregatedKinds mirrors model.IsAggregated for use in SQL.
var aggregatedKinds = pq.StringArray{
	model.NotificationLike,
	model.NotificationShare,
	model.NotificationSave,
	model.NotificationView,
	model.NotificationHighlight,
}

// Create inserts a new notification.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, kind, content_type, content_id, text)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		n.RecipientID, n.SenderID, n.Kind, n.ContentType, n.ContentID, n.Text,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListIndividual returns mentions, comments and replies, newest first.
func (r *notificationRepository) ListIndividual(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, recipient_id, sender_id, kind, content_type, content_id, text, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND NOT (kind = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3
	`
	notifications := []model.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, recipientID, aggregatedKinds, limit)
	if err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	return notifications, nil
}

// ListAggregated returns counter notifications grouped by kind and content item.
func (r *notificationRepository) ListAggregated(ctx context.Context, recipientID string, limit int) ([]model.AggregatedNotification, error) {
	query := `
		SELECT
			kind,
			content_type,
			content_id,
			array_agg(sender_id ORDER BY created_at DESC) AS sender_ids,
			COUNT(*) AS total_count,
			MAX(created_at) AS latest_at,
			bool_and(is_read) AS is_read
		FROM notifications
		WHERE recipient_id = $1 AND kind = ANY($2)
		GROUP BY kind, content_type, content_id
		ORDER BY latest_at DESC
		LIMIT $3
	`

	type aggRow struct {
		Kind        string         `db:"kind"`
		ContentType string         `db:"content_type"`
		ContentID   string         `db:"content_id"`
		SenderIDs   pq.StringArray `db:"sender_ids"`
		TotalCount  int            `db:"total_count"`
		LatestAt    time.Time      `db:"latest_at"`
		IsRead      bool           `db:"is_read"`
	}

	var rows []aggRow
	err := r.db.SelectContext(ctx, &rows, query, recipientID, aggregatedKinds, limit)
	if err != nil {
		return nil, fmt.Errorf("get aggregated notifications: %w", err)
	}

	result := make([]model.AggregatedNotification, len(rows))
	for i, row := range rows {
		// Only the first 3 senders are shown
		senders := []string(row.SenderIDs)
		if len(senders) > 3 {
			senders = senders[:3]
		}
		result[i] = model.AggregatedNotification{
			Kind:        row.Kind,
			ContentType: row.ContentType,
			ContentID:   row.ContentID,
			Senders:     senders,
			TotalCount:  row.TotalCount,
			LatestAt:    row.LatestAt,
			IsRead:      row.IsRead,
		}
	}
	return result, nil
}

// MarkAsRead marks specific notifications as read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, recipientID string, notificationIDs []int64) error {
	if len(notificationIDs) == 0 {
		return nil
	}

	query := `
		UPDATE notifications
		SET is_read = true
		WHERE recipient_id = $1 AND id = ANY($2)
	`
	_, err := r.db.ExecContext(ctx, query, recipientID, pq.Array(notificationIDs))
	if err != nil {
		return fmt.Errorf("mark notifications as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications for a user as read.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE recipient_id = $1 AND is_read = false
	`
	_, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return fmt.Errorf("mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications.
func (r *notificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND is_read = false
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, recipientID)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
