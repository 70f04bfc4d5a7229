package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a comment on a post-like item, or a reply to another comment
// when ParentComment is set.
type Comment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author   string             `bson:"author" json:"author"`
	Text     string             `bson:"text" json:"text"`
	Mentions []string           `bson:"mentions,omitempty" json:"mentions,omitempty"`

	// Root is the post-like item the thread belongs to.
	Root          ContentRef          `bson:"root" json:"root"`
	ParentComment *primitive.ObjectID `bson:"parentComment,omitempty" json:"parentComment,omitempty"`

	Likes        []string             `bson:"likes" json:"-"`
	LikesCount   int                  `bson:"likesCount" json:"likesCount"`
	Replies      []primitive.ObjectID `bson:"replies" json:"-"`
	RepliesCount int                  `bson:"repliesCount" json:"repliesCount"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (c *Comment) ContentID() primitive.ObjectID { return c.ID }
func (c *Comment) ContentType() ContentType { return ContentTypeComment }
func (c *Comment) AuthorID() string { return c.Author }
func (c *Comment) Active() bool { return c.IsActive }
func (c *Comment) Revision() int64 { return c.Version }

func (c *Comment) membership(set MemberSet) (*[]string, *int) {
	if set == SetLikes {
		return &c.Likes, &c.LikesCount
	}
	return nil, nil
}

func (c *Comment) children() (*[]primitive.ObjectID, *int) {
	return &c.Replies, &c.RepliesCount
}

// IsReply reports whether the comment hangs off another comment.
func (c *Comment) IsReply() bool {
	return c.ParentComment != nil
}

// ParentRef is the item the comment is linked under: the parent comment for
// a reply, the root item otherwise.
func (c *Comment) ParentRef() ContentRef {
	if c.ParentComment != nil {
		return ContentRef{Type: ContentTypeComment, ID: *c.ParentComment}
	}
	return c.Root
}

// NewComment builds an active comment on root. parent is nil for top-level comments.
func NewComment(author, text string, mentions []string, root ContentRef, parent *primitive.ObjectID, now time.Time) *Comment {
	return &Comment{
		Author:        author,
		Text:          text,
		Mentions:      mentions,
		Root:          root,
		ParentComment: parent,
		Likes:         []string{},
		Replies:       []primitive.ObjectID{},
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CommentListResponse is the paginated comment list response.
type CommentListResponse struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
}

// Comment constraints
const (
	MaxCommentLength = 2200
	MaxMentions      = 50
)
