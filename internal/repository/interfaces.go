package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
)

// ContentRepository stores every interactable entity, one collection per
// content type. Writes that depend on a previously read state take the
// revision that was read and fail with model.ErrWriteConflict when it moved.
type ContentRepository interface {
	// Insert assigns an id when the entity has none and stores it.
	Insert(ctx context.Context, c model.Content) error
	// Get loads an entity in any state. Missing documents give model.ErrContentNotFound.
	Get(ctx context.Context, ref model.ContentRef) (model.Content, error)
	// AddMember inserts actorID into set and increments the paired count,
	// conditional on the revision. The caller has observed actorID absent.
	AddMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error
	// RemoveMember pulls actorID and decrements the paired count, conditional
	// on the revision. The caller has observed actorID present.
	RemoveMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error
	// AppendChild pushes a comment/reply id onto the parent and returns the new child count.
	AppendChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error)
	// RemoveChild unlinks a comment/reply id. Unknown ids are a no-op.
	RemoveChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error)
	// Replace overwrites the document, conditional on the revision.
	Replace(ctx context.Context, c model.Content, revision int64) error
	// Delete removes the document permanently.
	Delete(ctx context.Context, ref model.ContentRef) error
}

type CommentRepository interface {
	// ListByRoot returns active top-level comments of a post-like item, oldest first.
	ListByRoot(ctx context.Context, root model.ContentRef, cursor *string, limit int) ([]model.Comment, *string, error)
	// ListReplies returns active replies of a comment, oldest first.
	ListReplies(ctx context.Context, parentID primitive.ObjectID, cursor *string, limit int) ([]model.Comment, *string, error)
	// DeactivateReplies soft deletes every reply below parentID and returns how many changed.
	DeactivateReplies(ctx context.Context, parentID primitive.ObjectID, now time.Time) (int, error)
}

type StoryRepository interface {
	// ListActiveByAuthor returns the author's active, unexpired stories, newest first.
	ListActiveByAuthor(ctx context.Context, authorID string, now time.Time) ([]model.Story, error)
	// GetMany loads stories by id regardless of expiry. Unknown ids are skipped.
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]model.Story, error)
}

type HighlightRepository interface {
	Create(ctx context.Context, h *model.Highlight) error
	Get(ctx context.Context, id primitive.ObjectID) (*model.Highlight, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Highlight, error)
	// Update persists name and cover. The story list only changes through
	// AddStory, RemoveStory and PullStory.
	Update(ctx context.Context, h *model.Highlight) error
	// AddStory appends storyID to ownerID's highlight unless already there
	// and returns the stored highlight and whether the list changed.
	// ErrHighlightNotFound / ErrNotHighlightOwner when the filter misses.
	AddStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error)
	// RemoveStory is the inverse of AddStory; an absent story is a no-op.
	RemoveStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// PullStory removes storyID from every highlight and returns how many changed.
	PullStory(ctx context.Context, storyID primitive.ObjectID) (int, error)
}

type NotificationRepository interface {
	// Create inserts a new notification
	Create(ctx context.Context, n *model.Notification) error
	// ListIndividual returns the kinds that are shown one by one
	ListIndividual(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
	// ListAggregated returns counter kinds grouped by content item
	ListAggregated(ctx context.Context, recipientID string, limit int) ([]model.AggregatedNotification, error)
	// MarkAsRead marks specific notifications as read
	MarkAsRead(ctx context.Context, recipientID string, notificationIDs []int64) error
	// MarkAllAsRead marks all notifications for a user as read
	MarkAllAsRead(ctx context.Context, recipientID string) error
	// GetUnreadCount returns the count of unread notifications
	GetUnreadCount(ctx context.Context, recipientID string) (int, error)
}

type DeviceTokenRepository interface {
	// Register stores a token for userID, taking it over from any previous owner
	Register(ctx context.Context, userID, token, platform string) error
	Tokens(ctx context.Context, userID string) ([]string, error)
	// Unregister is a no-op when the token belongs to someone else
	Unregister(ctx context.Context, userID, token string) error
	Prune(ctx context.Context, tokens []string) (int64, error)
}
