package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var storyEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStory(author string) *Story {
	return NewStory(author, CreateStoryRequest{
		Media: []MediaRef{{URL: "https://cdn.example/s.jpg", Key: "stories/s.jpg", Type: MediaImage}},
	}, storyEpoch, 0)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestNewStory_DefaultsToTwentyFourHours(t *testing.T) {
	s := newTestStory("alice")

	assert.Equal(t, storyEpoch.Add(24*time.Hour), s.ExpiresAt)
	assert.True(t, s.IsActive)
	assert.Equal(t, VisibilityPublic, s.Visibility())
	assert.Empty(t, s.Likes)
	assert.Equal(t, 0, s.LikesCount)
}

func TestNewStory_PastExpiryIsIgnored(t *testing.T) {
	past := storyEpoch.Add(-time.Hour)
	s := NewStory("alice", CreateStoryRequest{ExpiresAt: &past}, storyEpoch, 2*time.Hour)

	assert.Equal(t, storyEpoch.Add(2*time.Hour), s.ExpiresAt)
}

func TestStory_StateAt23And25Hours(t *testing.T) {
	s := newTestStory("alice")

	assert.Equal(t, StoryActive, s.State(storyEpoch.Add(23*time.Hour)))
	assert.Equal(t, StoryExpired, s.State(storyEpoch.Add(25*time.Hour)))
	// Exactly at expiresAt the story is still readable
	assert.False(t, s.IsExpired(s.ExpiresAt))
}

// =============================================================================
// VISIBILITY GATE
// =============================================================================

func TestStory_CanView(t *testing.T) {
	s := newTestStory("alice")
	s.IsCloseStory = true
	s.AllowedViewers = []string{"bob"}

	tests := []struct {
		reader string
		want   bool
	}{
		{"alice", true},
		{"bob", true},
		{"carol", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("reader="+tt.reader, func(t *testing.T) {
			assert.Equal(t, tt.want, s.CanView(tt.reader))
		})
	}
}

func TestStory_MissingCloseFlagDecodesAsPublic(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"author": "alice", "expiresAt": storyEpoch.Add(time.Hour), "isActive": true})
	require.NoError(t, err)

	var s Story
	require.NoError(t, bson.Unmarshal(raw, &s))

	assert.Equal(t, VisibilityPublic, s.Visibility())
	assert.True(t, s.CanView("anyone"))
}

func TestStory_CheckAccess_ExpiryBeforeVisibility(t *testing.T) {
	s := newTestStory("alice")
	s.IsCloseStory = true
	later := storyEpoch.Add(25 * time.Hour)

	// A hidden, expired story reads as expired
	assert.ErrorIs(t, s.CheckAccess("carol", later, false), ErrStoryExpired)
	// Highlighting skips expiry but still applies visibility
	assert.ErrorIs(t, s.CheckAccess("carol", later, true), ErrNotAuthorized)
	assert.NoError(t, s.CheckAccess("alice", later, true))
	assert.NoError(t, s.CheckAccess("alice", storyEpoch.Add(time.Hour), false))
}

func TestStory_MediaKeys(t *testing.T) {
	s := newTestStory("alice")
	s.Media = append(s.Media, MediaRef{URL: "https://elsewhere/x.jpg"})

	assert.Equal(t, []string{"stories/s.jpg"}, s.MediaKeys())
}
