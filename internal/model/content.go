package model

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentType is the closed set of entities the interaction engine works on.
type ContentType string

const (
	ContentTypePost     ContentType = "post"
	ContentTypeVideo    ContentType = "video"
	ContentTypeStory    ContentType = "story"
	ContentTypeComment  ContentType = "comment"
	ContentTypePagePost ContentType = "page_post"
)

// Backing collections, one per content type
const (
	CollectionPosts      = "posts"
	CollectionVideos     = "videos"
	CollectionStories    = "stories"
	CollectionComments   = "comments"
	CollectionPagePosts  = "pagePosts"
	CollectionHighlights = "highlights"
)

var contentCollections = map[ContentType]string{
	ContentTypePost:     CollectionPosts,
	ContentTypeVideo:    CollectionVideos,
	ContentTypeStory:    CollectionStories,
	ContentTypeComment:  CollectionComments,
	ContentTypePagePost: CollectionPagePosts,
}

// ParseContentType validates a client supplied content type.
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := contentCollections[ct]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
	}
	return ct, nil
}

// Collection returns the backing collection name.
func (t ContentType) Collection() string {
	return contentCollections[t]
}

// IsPostLike reports whether the type carries a top-level comment list.
func (t ContentType) IsPostLike() bool {
	return t == ContentTypePost || t == ContentTypeVideo || t == ContentTypePagePost
}

// ContentRef identifies a content item.
type ContentRef struct {
	Type ContentType        `json:"contentType" bson:"contentType"`
	ID   primitive.ObjectID `json:"contentId" bson:"contentId"`
}

// ParseContentRef validates both halves of a (contentType, contentId) pair.
func ParseContentRef(contentType, contentID string) (ContentRef, error) {
	ct, err := ParseContentType(contentType)
	if err != nil {
		return ContentRef{}, err
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(contentID))
	if err != nil {
		return ContentRef{}, fmt.Errorf("%w: %q", ErrInvalidContentID, contentID)
	}
	return ContentRef{Type: ct, ID: id}, nil
}

func (r ContentRef) String() string {
	return string(r.Type) + ":" + r.ID.Hex()
}

// Content is implemented by every entity the engine resolves.
type Content interface {
	ContentID() primitive.ObjectID
	ContentType() ContentType
	AuthorID() string
	Active() bool
	// Revision is the optimistic concurrency token. Every committed write
	// bumps it.
	Revision() int64
}

// Ref returns the reference for a resolved content item.
func Ref(c Content) ContentRef {
	return ContentRef{Type: c.ContentType(), ID: c.ContentID()}
}

// HasLifecycle is implemented by content whose readability depends on time
// and on the reader (stories).
type HasLifecycle interface {
	Content
	IsExpired(now time.Time) bool
	CanView(readerID string) bool
}

// CheckLifecycle is the read gate for ephemeral content: ErrStoryExpired
// first, then ErrNotAuthorized.
func CheckLifecycle(c HasLifecycle, readerID string, now time.Time, ignoreExpiry bool) error {
	if !ignoreExpiry && c.IsExpired(now) {
		return ErrStoryExpired
	}
	if !c.CanView(readerID) {
		return ErrNotAuthorized
	}
	return nil
}

// HasFeatures is implemented by content whose author can switch interactions off.
type HasFeatures interface {
	Content
	FeatureEnabled(action Action) bool
}

// HasChildren is implemented by content that owns an ordered list of comments
// (posts) or replies (comments).
type HasChildren interface {
	Content
	children() (*[]primitive.ObjectID, *int)
}

// ChildFields returns the bson field names of the child list and its count.
func ChildFields(t ContentType) (list, count string) {
	if t == ContentTypeComment {
		return "replies", "repliesCount"
	}
	return "comments", "commentsCount"
}

// ChildCount returns the number of linked comments or replies.
func ChildCount(c HasChildren) int {
	_, n := c.children()
	return *n
}

// AppendChild links a child id at the end of the list and bumps the count.
// Comment submissions are never deduplicated.
func AppendChild(c HasChildren, id primitive.ObjectID) int {
	list, n := c.children()
	*list = append(*list, id)
	*n = len(*list)
	return *n
}

// RemoveChild unlinks a child id. Removing an unknown id is a no-op.
func RemoveChild(c HasChildren, id primitive.ObjectID) (int, bool) {
	list, n := c.children()
	for i, existing := range *list {
		if existing == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			*n = len(*list)
			return *n, true
		}
	}
	return *n, false
}

// SetActive flips the soft-delete marker on an in-memory entity.
func SetActive(c Content, active bool) {
	switch v := c.(type) {
	case *Post:
		v.IsActive = active
	case *Video:
		v.IsActive = active
	case *PagePost:
		v.IsActive = active
	case *Comment:
		v.IsActive = active
	case *Story:
		v.IsActive = active
	}
}

// BumpRevision advances the concurrency token on an in-memory entity.
func BumpRevision(c Content) {
	switch v := c.(type) {
	case *Post:
		v.Version++
	case *Video:
		v.Version++
	case *PagePost:
		v.Version++
	case *Comment:
		v.Version++
	case *Story:
		v.Version++
	}
}

// NewContent returns an empty entity of the given type, ready to be decoded into.
func NewContent(t ContentType) (Content, error) {
	switch t {
	case ContentTypePost:
		return &Post{}, nil
	case ContentTypeVideo:
		return &Video{}, nil
	case ContentTypePagePost:
		return &PagePost{}, nil
	case ContentTypeComment:
		return &Comment{}, nil
	case ContentTypeStory:
		return &Story{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, t)
}
