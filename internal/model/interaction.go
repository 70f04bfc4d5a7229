package model

import (
	"fmt"
	"strings"
)

// Action is an interaction literal accepted by the orchestrator.
type Action string

const (
	ActionLike        Action = "like"
	ActionUnlike      Action = "unlike"
	ActionShare       Action = "share"
	ActionSave        Action = "save"
	ActionUnsave      Action = "unsave"
	ActionView        Action = "view"
	ActionComment     Action = "comment"
	ActionReply       Action = "reply"
	ActionHighlight   Action = "highlight"
	ActionUnhighlight Action = "unhighlight"
)

// ActionBinding describes how an action maps onto a membership set.
type ActionBinding struct {
	Set    MemberSet
	Remove bool
	// StateKey / CountKey name the fields in the response payload,
	// e.g. {"liked": true, "likesCount": 3}.
	StateKey string
	CountKey string
}

var actionBindings = map[Action]ActionBinding{
	ActionLike:        {Set: SetLikes, StateKey: "liked", CountKey: "likesCount"},
	ActionUnlike:      {Set: SetLikes, Remove: true, StateKey: "liked", CountKey: "likesCount"},
	ActionShare:       {Set: SetShares, StateKey: "shared", CountKey: "sharesCount"},
	ActionSave:        {Set: SetSaves, StateKey: "saved", CountKey: "savesCount"},
	ActionUnsave:      {Set: SetSaves, Remove: true, StateKey: "saved", CountKey: "savesCount"},
	ActionView:        {Set: SetViews, StateKey: "viewed", CountKey: "viewsCount"},
	ActionHighlight:   {Set: SetHighlightedBy, StateKey: "highlighted", CountKey: "highlightedCount"},
	ActionUnhighlight: {Set: SetHighlightedBy, Remove: true, StateKey: "highlighted", CountKey: "highlightedCount"},
}

var postLikeActions = []Action{ActionLike, ActionUnlike, ActionShare, ActionSave, ActionUnsave, ActionView, ActionComment}

var allowedActions = map[ContentType][]Action{
	ContentTypePost:     postLikeActions,
	ContentTypeVideo:    postLikeActions,
	ContentTypePagePost: postLikeActions,
	ContentTypeComment:  {ActionLike, ActionUnlike, ActionReply},
	ContentTypeStory:    {ActionLike, ActionUnlike, ActionView, ActionHighlight, ActionUnhighlight},
}

// ParseAction validates an action literal.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionComment, ActionReply:
		return a, nil
	}
	if _, ok := actionBindings[a]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Binding returns the membership mapping for counter actions. ok is false for
// comment and reply, which create entities instead.
func (a Action) Binding() (ActionBinding, bool) {
	binding, ok := actionBindings[a]
	return binding, ok
}

// IsCreation reports whether the action creates a new comment.
func (a Action) IsCreation() bool {
	return a == ActionComment || a == ActionReply
}

// SupportedOn reports whether the action applies to the content type.
func (a Action) SupportedOn(t ContentType) bool {
	for _, allowed := range allowedActions[t] {
		if allowed == a {
			return true
		}
	}
	return false
}

// NotificationKind maps an action to its notification kind (1:1).
func (a Action) NotificationKind() string {
	return string(a)
}

// InteractionPayload carries the optional parts of an interaction.
type InteractionPayload struct {
	Text           string   `json:"text,omitempty" validate:"omitempty,max=2200"`
	Mentions       []string `json:"mentions,omitempty" validate:"omitempty,max=50,dive,required"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty" validate:"omitempty,max=128"`
	// HighlightID optionally files a highlighted story into one of the
	// actor's highlights (or removes it on unhighlight).
	HighlightID string `json:"highlightId,omitempty"`
}

// InteractionRequest is the body of POST /interactions.
type InteractionRequest struct {
	ContentType string              `json:"contentType" validate:"required"`
	ContentID   string              `json:"contentId" validate:"required"`
	Action      string              `json:"action" validate:"required"`
	Payload     *InteractionPayload `json:"payload,omitempty"`
}

// InteractionResult is returned by the orchestrator.
type InteractionResult struct {
	Action  Action     `json:"action"`
	Target  ContentRef `json:"target"`
	Member  bool       `json:"member"`
	Count   int        `json:"count"`
	Changed bool       `json:"changed"`
	Comment *Comment   `json:"comment,omitempty"`
}

// Data renders the action specific response payload.
func (r *InteractionResult) Data() map[string]interface{} {
	data := map[string]interface{}{"changed": r.Changed}
	if binding, ok := r.Action.Binding(); ok {
		data[binding.StateKey] = r.Member
		data[binding.CountKey] = r.Count
		return data
	}
	switch r.Action {
	case ActionComment:
		data["comment"] = r.Comment
		data["commentsCount"] = r.Count
	case ActionReply:
		data["reply"] = r.Comment
		data["repliesCount"] = r.Count
	}
	return data
}
