package model

import (
	"fmt"
	"slices"
)

// MemberSet names a "who did X" set on a content item. Each set is paired with
// a denormalized count that must always equal the set's cardinality.
type MemberSet string

const (
	SetLikes         MemberSet = "likes"
	SetShares        MemberSet = "shares"
	SetSaves         MemberSet = "saves"
	SetViews         MemberSet = "views"
	SetHighlightedBy MemberSet = "highlightedBy"
)

var countFields = map[MemberSet]string{
	SetLikes:         "likesCount",
	SetShares:        "sharesCount",
	SetSaves:         "savesCount",
	SetViews:         "viewsCount",
	SetHighlightedBy: "highlightedCount",
}

// Field is the bson field holding the member ids.
func (s MemberSet) Field() string { return string(s) }

// CountField is the bson field holding the denormalized count.
func (s MemberSet) CountField() string { return countFields[s] }

// MemberResult is the outcome of a membership mutation.
type MemberResult struct {
	Count   int  `json:"count"`
	Member  bool `json:"member"`  // actor is in the set after the call
	Changed bool `json:"changed"` // false for idempotent no-ops
}

// HasMembershipSets is implemented by every content entity. The set/count pair
// is only reachable through AddMember and RemoveMember.
type HasMembershipSets interface {
	Content
	membership(set MemberSet) (members *[]string, count *int)
}

// Supports reports whether the content carries the given set.
func Supports(c Content, set MemberSet) bool {
	m, ok := c.(HasMembershipSets)
	if !ok {
		return false
	}
	members, _ := m.membership(set)
	return members != nil
}

// MemberCount returns the denormalized count for set.
func MemberCount(c HasMembershipSets, set MemberSet) int {
	_, count := c.membership(set)
	if count == nil {
		return 0
	}
	return *count
}

// IsMember reports whether actorID is in set.
func IsMember(c HasMembershipSets, set MemberSet, actorID string) bool {
	members, _ := c.membership(set)
	return members != nil && slices.Contains(*members, actorID)
}

// AddMember inserts actorID into set and re-derives the count. Adding an
// existing member is a no-op.
func AddMember(c HasMembershipSets, set MemberSet, actorID string) (MemberResult, error) {
	members, count := c.membership(set)
	if members == nil {
		return MemberResult{}, fmt.Errorf("%w: %s has no %s", ErrInvalidAction, c.ContentType(), set)
	}
	if slices.Contains(*members, actorID) {
		return MemberResult{Count: *count, Member: true}, nil
	}
	*members = append(*members, actorID)
	*count = len(*members)
	return MemberResult{Count: *count, Member: true, Changed: true}, nil
}

// RemoveMember removes actorID from set. Removing a non-member is a no-op.
func RemoveMember(c HasMembershipSets, set MemberSet, actorID string) (MemberResult, error) {
	members, count := c.membership(set)
	if members == nil {
		return MemberResult{}, fmt.Errorf("%w: %s has no %s", ErrInvalidAction, c.ContentType(), set)
	}
	i := slices.Index(*members, actorID)
	if i < 0 {
		return MemberResult{Count: *count}, nil
	}
	*members = slices.Delete(*members, i, i+1)
	*count = len(*members)
	return MemberResult{Count: *count, Changed: true}, nil
}
