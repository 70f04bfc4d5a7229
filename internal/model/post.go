package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a feed post. Video and PagePost share its shape.
type Post struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author   string             `bson:"author" json:"author"`
	Caption  string             `bson:"caption" json:"caption"`
	Media    []MediaRef         `bson:"media" json:"media"`
	Mentions []string           `bson:"mentions,omitempty" json:"mentions,omitempty"`

	// Feature flags; nil means enabled.
	AllowLikes    *bool `bson:"allowLikes,omitempty" json:"allowLikes,omitempty"`
	AllowComments *bool `bson:"allowComments,omitempty" json:"allowComments,omitempty"`
	AllowShares   *bool `bson:"allowShares,omitempty" json:"allowShares,omitempty"`
	AllowSaves    *bool `bson:"allowSaves,omitempty" json:"allowSaves,omitempty"`

	Likes         []string             `bson:"likes" json:"-"`
	LikesCount    int                  `bson:"likesCount" json:"likesCount"`
	Shares        []string             `bson:"shares" json:"-"`
	SharesCount   int                  `bson:"sharesCount" json:"sharesCount"`
	Saves         []string             `bson:"saves" json:"-"`
	SavesCount    int                  `bson:"savesCount" json:"savesCount"`
	Views         []string             `bson:"views" json:"-"`
	ViewsCount    int                  `bson:"viewsCount" json:"viewsCount"`
	Comments      []primitive.ObjectID `bson:"comments" json:"-"`
	CommentsCount int                  `bson:"commentsCount" json:"commentsCount"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Viewer relative, filled on read
	IsLiked bool `bson:"-" json:"isLiked"`
	IsSaved bool `bson:"-" json:"isSaved"`
}

// Video is a reel. Same interaction surface as a post.
type Video struct {
	Post         `bson:",inline"`
	DurationSecs float64 `bson:"durationSecs" json:"durationSecs"`
	ThumbnailURL string  `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
}

// PagePost is a post published on a page rather than a personal profile.
type PagePost struct {
	Post   `bson:",inline"`
	PageID string `bson:"pageId" json:"pageId"`
}

func (p *Post) ContentID() primitive.ObjectID { return p.ID }
func (p *Post) ContentType() ContentType { return ContentTypePost }
func (p *Post) AuthorID() string { return p.Author }
func (p *Post) Active() bool { return p.IsActive }
func (p *Post) Revision() int64 { return p.Version }

func (v *Video) ContentType() ContentType { return ContentTypeVideo }
func (p *PagePost) ContentType() ContentType { return ContentTypePagePost }

func (p *Post) membership(set MemberSet) (*[]string, *int) {
	switch set {
	case SetLikes:
		return &p.Likes, &p.LikesCount
	case SetShares:
		return &p.Shares, &p.SharesCount
	case SetSaves:
		return &p.Saves, &p.SavesCount
	case SetViews:
		return &p.Views, &p.ViewsCount
	}
	return nil, nil
}

func (p *Post) children() (*[]primitive.ObjectID, *int) {
	return &p.Comments, &p.CommentsCount
}

// FeatureEnabled reports whether the author allows the action.
func (p *Post) FeatureEnabled(action Action) bool {
	var flag *bool
	switch action {
	case ActionLike:
		flag = p.AllowLikes
	case ActionComment:
		flag = p.AllowComments
	case ActionShare:
		flag = p.AllowShares
	case ActionSave:
		flag = p.AllowSaves
	}
	return flag == nil || *flag
}

// PostBody returns the shared post body of a post-like entity.
func PostBody(c Content) (*Post, bool) {
	switch v := c.(type) {
	case *Post:
		return v, true
	case *Video:
		return &v.Post, true
	case *PagePost:
		return &v.Post, true
	}
	return nil, false
}

// NewPost builds an active post with empty membership sets.
func NewPost(author string, req CreatePostRequest, now time.Time) Post {
	return Post{
		Author:        author,
		Caption:       req.Caption,
		Media:         req.Media,
		Mentions:      req.Mentions,
		AllowLikes:    req.AllowLikes,
		AllowComments: req.AllowComments,
		AllowShares:   req.AllowShares,
		AllowSaves:    req.AllowSaves,
		Likes:         []string{},
		Shares:        []string{},
		Saves:         []string{},
		Views:         []string{},
		Comments:      []primitive.ObjectID{},
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreatePostRequest is the request body for creating a post, video or page post.
type CreatePostRequest struct {
	Caption       string     `json:"caption" validate:"max=2200"`
	Media         []MediaRef `json:"media" validate:"required,min=1,max=10,dive"`
	Mentions      []string   `json:"mentions" validate:"omitempty,max=50,dive,required"`
	AllowLikes    *bool      `json:"allowLikes"`
	AllowComments *bool      `json:"allowComments"`
	AllowShares   *bool      `json:"allowShares"`
	AllowSaves    *bool      `json:"allowSaves"`

	// Video only
	DurationSecs float64 `json:"durationSecs" validate:"gte=0"`
	ThumbnailURL string  `json:"thumbnailUrl" validate:"omitempty,url"`
	// Page post only
	PageID string `json:"pageId"`
}

// UpdatePostRequest changes author-owned fields. Counters are never editable.
type UpdatePostRequest struct {
	Caption       *string `json:"caption" validate:"omitempty,max=2200"`
	AllowLikes    *bool   `json:"allowLikes"`
	AllowComments *bool   `json:"allowComments"`
	AllowShares   *bool   `json:"allowShares"`
	AllowSaves    *bool   `json:"allowSaves"`
}

// IsEmpty reports whether the update carries no change.
func (r UpdatePostRequest) IsEmpty() bool {
	return r.Caption == nil && r.AllowLikes == nil && r.AllowComments == nil &&
		r.AllowShares == nil && r.AllowSaves == nil
}

// Apply copies the update onto an in-memory post.
func (r UpdatePostRequest) Apply(p *Post, now time.Time) {
	if r.Caption != nil {
		p.Caption = *r.Caption
	}
	if r.AllowLikes != nil {
		p.AllowLikes = r.AllowLikes
	}
	if r.AllowComments != nil {
		p.AllowComments = r.AllowComments
	}
	if r.AllowShares != nil {
		p.AllowShares = r.AllowShares
	}
	if r.AllowSaves != nil {
		p.AllowSaves = r.AllowSaves
	}
	p.UpdatedAt = now
}
