package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestPost() *Post {
	p := NewPost("alice", CreatePostRequest{Caption: "hi"}, storyEpoch)
	p.ID = primitive.NewObjectID()
	return &p
}

// =============================================================================
// MEMBERSHIP SETS
// =============================================================================

func TestAddMember_IsIdempotent(t *testing.T) {
	p := newTestPost()

	first, err := AddMember(p, SetLikes, "bob")
	require.NoError(t, err)
	second, err := AddMember(p, SetLikes, "bob")
	require.NoError(t, err)

	assert.Equal(t, MemberResult{Count: 1, Member: true, Changed: true}, first)
	assert.Equal(t, MemberResult{Count: 1, Member: true, Changed: false}, second)
	assert.Equal(t, []string{"bob"}, p.Likes)
}

func TestRemoveMember_NonMemberIsNoop(t *testing.T) {
	p := newTestPost()

	res, err := RemoveMember(p, SetSaves, "bob")
	require.NoError(t, err)

	assert.Equal(t, MemberResult{Count: 0}, res)
	assert.Equal(t, 0, p.SavesCount)
}

func TestMembership_AddThenRemoveRestoresState(t *testing.T) {
	p := newTestPost()
	_, err := AddMember(p, SetLikes, "carol")
	require.NoError(t, err)
	before := append([]string(nil), p.Likes...)

	_, err = AddMember(p, SetLikes, "bob")
	require.NoError(t, err)
	_, err = RemoveMember(p, SetLikes, "bob")
	require.NoError(t, err)

	assert.Equal(t, before, p.Likes)
	assert.Equal(t, len(before), p.LikesCount)
}

func TestMembership_CountMatchesSet(t *testing.T) {
	p := newTestPost()
	for i := 0; i < 20; i++ {
		actor := fmt.Sprintf("u%d", i%7)
		if i%3 == 0 {
			_, _ = RemoveMember(p, SetViews, actor)
		} else {
			_, _ = AddMember(p, SetViews, actor)
		}
		require.Equal(t, len(p.Views), p.ViewsCount)
	}
}

func TestMembership_UnsupportedSet(t *testing.T) {
	c := NewComment("alice", "nice", nil, ContentRef{Type: ContentTypePost}, nil, storyEpoch)

	assert.True(t, Supports(c, SetLikes))
	assert.False(t, Supports(c, SetSaves))
	_, err := AddMember(c, SetSaves, "bob")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

// =============================================================================
// CHILD LINKS
// =============================================================================

func TestChildren_AppendAndRemove(t *testing.T) {
	p := newTestPost()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	assert.Equal(t, 1, AppendChild(p, a))
	assert.Equal(t, 2, AppendChild(p, b))

	n, removed := RemoveChild(p, a)
	assert.True(t, removed)
	assert.Equal(t, 1, n)

	n, removed = RemoveChild(p, a)
	assert.False(t, removed)
	assert.Equal(t, 1, n)
	assert.Equal(t, []primitive.ObjectID{b}, p.Comments)
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Like ")
	require.NoError(t, err)
	assert.Equal(t, ActionLike, a)

	_, err = ParseAction("poke")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestParseContentRef(t *testing.T) {
	id := primitive.NewObjectID()

	ref, err := ParseContentRef("page_post", id.Hex())
	require.NoError(t, err)
	assert.Equal(t, ContentRef{Type: ContentTypePagePost, ID: id}, ref)
	assert.Equal(t, "pagePosts", ref.Type.Collection())

	_, err = ParseContentRef("reel", id.Hex())
	assert.ErrorIs(t, err, ErrUnknownContentType)

	_, err = ParseContentRef("post", "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidContentID)
}

func TestAction_SupportedOn(t *testing.T) {
	tests := []struct {
		action Action
		ct     ContentType
		want   bool
	}{
		{ActionComment, ContentTypePost, true},
		{ActionComment, ContentTypeComment, false},
		{ActionReply, ContentTypeComment, true},
		{ActionReply, ContentTypeVideo, false},
		{ActionHighlight, ContentTypeStory, true},
		{ActionHighlight, ContentTypePost, false},
		{ActionSave, ContentTypeStory, false},
		{ActionShare, ContentTypePagePost, true},
		{ActionView, ContentTypeComment, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.ct), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.SupportedOn(tt.ct))
		})
	}
}

func TestPost_FeatureEnabled(t *testing.T) {
	p := newTestPost()
	off := false
	p.AllowLikes = &off

	assert.False(t, p.FeatureEnabled(ActionLike))
	// Retracting is always allowed
	assert.True(t, p.FeatureEnabled(ActionUnlike))
	assert.True(t, p.FeatureEnabled(ActionComment))
}

func TestInteractionResult_Data(t *testing.T) {
	like := &InteractionResult{Action: ActionLike, Member: true, Count: 3, Changed: true}
	assert.Equal(t, map[string]interface{}{"liked": true, "likesCount": 3, "changed": true}, like.Data())

	reply := &InteractionResult{Action: ActionReply, Count: 2, Changed: true, Comment: &Comment{Text: "yo"}}
	data := reply.Data()
	assert.Equal(t, 2, data["repliesCount"])
	assert.NotNil(t, data["reply"])
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", ErrContentInactive)

	assert.Equal(t, KindContentInactive, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
}
