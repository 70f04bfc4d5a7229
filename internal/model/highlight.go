package model

import (
	"errors"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Highlight is a durable, owner-curated collection of stories. Story expiry
// does not remove a story from a highlight.
type Highlight struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Owner     string               `bson:"owner" json:"owner"`
	Name      string               `bson:"name" json:"name"`
	CoverURL  string               `bson:"coverUrl,omitempty" json:"coverUrl,omitempty"`
	Stories   []primitive.ObjectID `bson:"stories" json:"stories"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// AddStory appends id unless present. Returns whether the list changed.
func (h *Highlight) AddStory(id primitive.ObjectID) bool {
	if slices.Contains(h.Stories, id) {
		return false
	}
	h.Stories = append(h.Stories, id)
	return true
}

// RemoveStory drops id. Removing a non-member is a no-op.
func (h *Highlight) RemoveStory(id primitive.ObjectID) bool {
	i := slices.Index(h.Stories, id)
	if i < 0 {
		return false
	}
	h.Stories = slices.Delete(h.Stories, i, i+1)
	return true
}

// HighlightView is a highlight with its stories resolved for a reader.
type HighlightView struct {
	Highlight
	Items []Story `json:"items"`
}

// CreateHighlightRequest is the request body for POST /highlights.
type CreateHighlightRequest struct {
	Name     string   `json:"name" validate:"required,max=60"`
	CoverURL string   `json:"coverUrl" validate:"omitempty,url"`
	Stories  []string `json:"stories" validate:"omitempty,max=100,dive,required"`
}

// UpdateHighlightRequest is the request body for PATCH /highlights/{id}.
// The story list is edited through the stories sub-resource.
type UpdateHighlightRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=60"`
	CoverURL *string `json:"coverUrl" validate:"omitempty,url"`
}

// AddHighlightStoryRequest is the request body for POST /highlights/{id}/stories.
type AddHighlightStoryRequest struct {
	StoryID string `json:"storyId" validate:"required"`
}

// Highlight errors
var (
	ErrHighlightNotFound = errors.New("highlight not found")
	ErrNotHighlightOwner = errors.New("not the owner of this highlight")
)
