package model

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultStoryTTL is how long a story stays active when no expiry is given.
const DefaultStoryTTL = 24 * time.Hour

// StoryState is derived from the clock, never stored.
type StoryState string

const (
	StoryActive  StoryState = "active"
	StoryExpired StoryState = "expired"
)

// Visibility is the orthogonal access axis of a story.
type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityCloseCircle Visibility = "close_circle"
)

// Story is ephemeral content. A document without isCloseStory decodes to
// false and is treated as public.
type Story struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author         string             `bson:"author" json:"author"`
	Caption        string             `bson:"caption,omitempty" json:"caption,omitempty"`
	Media          []MediaRef         `bson:"media" json:"media"`
	Mentions       []string           `bson:"mentions,omitempty" json:"mentions,omitempty"`
	IsCloseStory   bool               `bson:"isCloseStory" json:"isCloseStory"`
	AllowedViewers []string           `bson:"allowedViewers" json:"allowedViewers,omitempty"`
	ExpiresAt      time.Time          `bson:"expiresAt" json:"expiresAt"`

	Likes            []string `bson:"likes" json:"-"`
	LikesCount       int      `bson:"likesCount" json:"likesCount"`
	Views            []string `bson:"views" json:"-"`
	ViewsCount       int      `bson:"viewsCount" json:"viewsCount"`
	HighlightedBy    []string `bson:"highlightedBy" json:"-"`
	HighlightedCount int      `bson:"highlightedCount" json:"highlightedCount"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	// Filled on read
	IsExpiredNow bool `bson:"-" json:"isExpired"`
}

func (s *Story) ContentID() primitive.ObjectID { return s.ID }
func (s *Story) ContentType() ContentType { return ContentTypeStory }
func (s *Story) AuthorID() string { return s.Author }
func (s *Story) Active() bool { return s.IsActive }
func (s *Story) Revision() int64 { return s.Version }

func (s *Story) membership(set MemberSet) (*[]string, *int) {
	switch set {
	case SetLikes:
		return &s.Likes, &s.LikesCount
	case SetViews:
		return &s.Views, &s.ViewsCount
	case SetHighlightedBy:
		return &s.HighlightedBy, &s.HighlightedCount
	}
	return nil, nil
}

// IsExpired is re-evaluated on every read.
func (s *Story) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// State returns the lifecycle state at now.
func (s *Story) State(now time.Time) StoryState {
	if s.IsExpired(now) {
		return StoryExpired
	}
	return StoryActive
}

// Visibility returns the access axis of the story.
func (s *Story) Visibility() Visibility {
	if s.IsCloseStory {
		return VisibilityCloseCircle
	}
	return VisibilityPublic
}

// CanView applies the visibility gate, independent of expiry.
func (s *Story) CanView(readerID string) bool {
	if readerID != "" && readerID == s.Author {
		return true
	}
	if !s.IsCloseStory {
		return true
	}
	return readerID != "" && slices.Contains(s.AllowedViewers, readerID)
}

// CheckAccess runs the lifecycle gate for readerID. Expiry is checked first so
// a gone story is reported as gone even to readers it was hidden from.
// Highlights pass ignoreExpiry.
func (s *Story) CheckAccess(readerID string, now time.Time, ignoreExpiry bool) error {
	return CheckLifecycle(s, readerID, now, ignoreExpiry)
}

// MediaKeys returns the storage keys of the story's media.
func (s *Story) MediaKeys() []string {
	keys := make([]string, 0, len(s.Media))
	for _, m := range s.Media {
		if m.Key != "" {
			keys = append(keys, m.Key)
		}
	}
	return keys
}

// NewStory builds an active story. Expiry defaults to now + DefaultStoryTTL.
func NewStory(author string, req CreateStoryRequest, now time.Time, ttl time.Duration) *Story {
	if ttl <= 0 {
		ttl = DefaultStoryTTL
	}
	expiresAt := now.Add(ttl)
	if req.ExpiresAt != nil && req.ExpiresAt.After(now) {
		expiresAt = *req.ExpiresAt
	}
	viewers := req.AllowedViewers
	if viewers == nil {
		viewers = []string{}
	}
	return &Story{
		Author:         author,
		Caption:        req.Caption,
		Media:          req.Media,
		Mentions:       req.Mentions,
		IsCloseStory:   req.IsCloseStory,
		AllowedViewers: viewers,
		ExpiresAt:      expiresAt,
		Likes:          []string{},
		Views:          []string{},
		HighlightedBy:  []string{},
		IsActive:       true,
		CreatedAt:      now,
	}
}

// CreateStoryRequest is the request body for POST /stories.
type CreateStoryRequest struct {
	Caption        string     `json:"caption" validate:"max=2200"`
	Media          []MediaRef `json:"media" validate:"required,min=1,max=10,dive"`
	Mentions       []string   `json:"mentions" validate:"omitempty,max=50,dive,required"`
	IsCloseStory   bool       `json:"isCloseStory"`
	AllowedViewers []string   `json:"allowedViewers" validate:"omitempty,max=1000,dive,required"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}
