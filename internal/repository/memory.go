package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
)

// MemoryStore is a process-local document store. It implements the content,
// comment, story and highlight repositories with the same conditional-write
// semantics as the Mongo ones and backs STORE_DRIVER=memory and the tests.
// Documents are copied through bson on the way in and out so callers never
// share memory with the store.
type MemoryStore struct {
	mu         sync.Mutex
	docs       map[model.ContentType]map[primitive.ObjectID][]byte
	highlights map[primitive.ObjectID]model.Highlight
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:       make(map[model.ContentType]map[primitive.ObjectID][]byte),
		highlights: make(map[primitive.ObjectID]model.Highlight),
	}
}

var (
	_ ContentRepository   = (*MemoryStore)(nil)
	_ CommentRepository   = (*MemoryStore)(nil)
	_ StoryRepository     = (*MemoryStore)(nil)
	_ HighlightRepository = memoryHighlights{}
)

func (m *MemoryStore) load(ref model.ContentRef) (model.Content, error) {
	raw, ok := m.docs[ref.Type][ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrContentNotFound, ref)
	}
	c, err := model.NewContent(ref.Type)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return c, nil
}

func (m *MemoryStore) store(c model.Content) error {
	raw, err := bson.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode %s: %w", model.Ref(c), err)
	}
	t := c.ContentType()
	if m.docs[t] == nil {
		m.docs[t] = make(map[primitive.ObjectID][]byte)
	}
	m.docs[t][c.ContentID()] = raw
	return nil
}

func (m *MemoryStore) Insert(ctx context.Context, c model.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := assignID(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(c)
}

func (m *MemoryStore) Get(ctx context.Context, ref model.ContentRef) (model.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ref)
}

// mutateAt applies fn to the stored entity if it is active and still at revision.
func (m *MemoryStore) mutateAt(ctx context.Context, ref model.ContentRef, revision int64, fn func(model.Content) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.load(ref)
	if err != nil || !c.Active() || c.Revision() != revision {
		return model.ErrWriteConflict
	}
	if err := fn(c); err != nil {
		return err
	}
	model.BumpRevision(c)
	return m.store(c)
}

func (m *MemoryStore) AddMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error {
	return m.mutateAt(ctx, ref, revision, func(c model.Content) error {
		hm, ok := c.(model.HasMembershipSets)
		if !ok {
			return fmt.Errorf("%w: %s has no %s", model.ErrInvalidAction, ref.Type, set)
		}
		_, err := model.AddMember(hm, set, actorID)
		return err
	})
}

func (m *MemoryStore) RemoveMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error {
	return m.mutateAt(ctx, ref, revision, func(c model.Content) error {
		hm, ok := c.(model.HasMembershipSets)
		if !ok {
			return fmt.Errorf("%w: %s has no %s", model.ErrInvalidAction, ref.Type, set)
		}
		_, err := model.RemoveMember(hm, set, actorID)
		return err
	})
}

func (m *MemoryStore) AppendChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error) {
	return m.touchChildren(ctx, parent, func(hc model.HasChildren) (int, bool, error) {
		if !hc.Active() {
			return 0, false, fmt.Errorf("%w: %s", model.ErrContentNotFound, parent)
		}
		return model.AppendChild(hc, childID), true, nil
	})
}

func (m *MemoryStore) RemoveChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error) {
	return m.touchChildren(ctx, parent, func(hc model.HasChildren) (int, bool, error) {
		n, changed := model.RemoveChild(hc, childID)
		return n, changed, nil
	})
}

func (m *MemoryStore) touchChildren(ctx context.Context, parent model.ContentRef, fn func(model.HasChildren) (int, bool, error)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.load(parent)
	if err != nil {
		return 0, err
	}
	hc, ok := c.(model.HasChildren)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no children", model.ErrInvalidAction, parent.Type)
	}
	n, changed, err := fn(hc)
	if err != nil || !changed {
		return n, err
	}
	model.BumpRevision(c)
	return n, m.store(c)
}

func (m *MemoryStore) Replace(ctx context.Context, c model.Content, revision int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(model.Ref(c))
	if err != nil || current.Revision() != revision {
		return model.ErrWriteConflict
	}
	model.BumpRevision(c)
	return m.store(c)
}

func (m *MemoryStore) Delete(ctx context.Context, ref model.ContentRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[ref.Type][ref.ID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrContentNotFound, ref)
	}
	delete(m.docs[ref.Type], ref.ID)
	return nil
}

// comments returns every stored comment matching keep, ordered by id.
func (m *MemoryStore) comments(keep func(*model.Comment) bool) ([]model.Comment, error) {
	var out []model.Comment
	for id := range m.docs[model.ContentTypeComment] {
		c, err := m.load(model.ContentRef{Type: model.ContentTypeComment, ID: id})
		if err != nil {
			return nil, err
		}
		cm := c.(*model.Comment)
		if keep(cm) {
			out = append(out, *cm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *MemoryStore) ListByRoot(ctx context.Context, root model.ContentRef, cursor *string, limit int) ([]model.Comment, *string, error) {
	return m.pageComments(ctx, cursor, limit, func(c *model.Comment) bool {
		return c.IsActive && c.ParentComment == nil && c.Root == root
	})
}

func (m *MemoryStore) ListReplies(ctx context.Context, parentID primitive.ObjectID, cursor *string, limit int) ([]model.Comment, *string, error) {
	return m.pageComments(ctx, cursor, limit, func(c *model.Comment) bool {
		return c.IsActive && c.ParentComment != nil && *c.ParentComment == parentID
	})
}

func (m *MemoryStore) pageComments(ctx context.Context, cursor *string, limit int, keep func(*model.Comment) bool) ([]model.Comment, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	after, err := parseIDCursor(cursor)
	if err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.comments(func(c *model.Comment) bool {
		return keep(c) && (after == nil || c.ID.Hex() > after.Hex())
	})
	if err != nil {
		return nil, nil, err
	}
	if len(all) > limit+1 {
		all = all[:limit+1]
	}
	ids := make([]primitive.ObjectID, len(all))
	for i := range all {
		ids[i] = all[i].ID
	}
	next := nextIDCursor(ids, limit)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, next, nil
}

func (m *MemoryStore) DeactivateReplies(ctx context.Context, parentID primitive.ObjectID, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	frontier := []primitive.ObjectID{parentID}
	for len(frontier) > 0 {
		replies, err := m.comments(func(c *model.Comment) bool {
			return c.IsActive && c.ParentComment != nil && slices.Contains(frontier, *c.ParentComment)
		})
		if err != nil {
			return total, err
		}
		frontier = frontier[:0]
		for i := range replies {
			r := &replies[i]
			r.IsActive = false
			r.UpdatedAt = now
			r.Version++
			if err := m.store(r); err != nil {
				return total, err
			}
			frontier = append(frontier, r.ID)
			total++
		}
	}
	return total, nil
}

func (m *MemoryStore) ListActiveByAuthor(ctx context.Context, authorID string, now time.Time) ([]model.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stories := []model.Story{}
	for id := range m.docs[model.ContentTypeStory] {
		c, err := m.load(model.ContentRef{Type: model.ContentTypeStory, ID: id})
		if err != nil {
			return nil, err
		}
		s := c.(*model.Story)
		if s.Author == authorID && s.IsActive && !s.IsExpired(now) {
			stories = append(stories, *s)
		}
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].CreatedAt.After(stories[j].CreatedAt) })
	return stories, nil
}

func (m *MemoryStore) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]model.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	found := make([]model.Story, 0, len(ids))
	for _, id := range ids {
		c, err := m.load(model.ContentRef{Type: model.ContentTypeStory, ID: id})
		if err != nil {
			continue
		}
		found = append(found, *c.(*model.Story))
	}
	return found, nil
}

// Highlights returns the highlight repository view of the store.
func (m *MemoryStore) Highlights() HighlightRepository {
	return memoryHighlights{m}
}

type memoryHighlights struct {
	*MemoryStore
}

func (r memoryHighlights) Create(ctx context.Context, h *model.Highlight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	if h.Stories == nil {
		h.Stories = []primitive.ObjectID{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlights[h.ID] = cloneHighlight(*h)
	return nil
}

func (r memoryHighlights) Get(ctx context.Context, id primitive.ObjectID) (*model.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.highlights[id]
	if !ok {
		return nil, model.ErrHighlightNotFound
	}
	out := cloneHighlight(h)
	return &out, nil
}

func (r memoryHighlights) ListByOwner(ctx context.Context, ownerID string) ([]model.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Highlight{}
	for _, h := range r.highlights {
		if h.Owner == ownerID {
			out = append(out, cloneHighlight(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryHighlights) Update(ctx context.Context, h *model.Highlight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.highlights[h.ID]
	if !ok {
		return model.ErrHighlightNotFound
	}
	stored.Name = h.Name
	stored.CoverURL = h.CoverURL
	stored.UpdatedAt = h.UpdatedAt
	r.highlights[h.ID] = stored
	return nil
}

func (r memoryHighlights) AddStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error) {
	return r.editStories(ctx, id, ownerID, now, func(h *model.Highlight) bool { return h.AddStory(storyID) })
}

func (r memoryHighlights) RemoveStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error) {
	return r.editStories(ctx, id, ownerID, now, func(h *model.Highlight) bool { return h.RemoveStory(storyID) })
}

func (r memoryHighlights) editStories(ctx context.Context, id primitive.ObjectID, ownerID string, now time.Time, edit func(*model.Highlight) bool) (*model.Highlight, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.highlights[id]
	if !ok {
		return nil, false, model.ErrHighlightNotFound
	}
	if h.Owner != ownerID {
		return nil, false, model.ErrNotHighlightOwner
	}
	h = cloneHighlight(h)
	changed := edit(&h)
	if changed {
		h.UpdatedAt = now
		r.highlights[id] = h
	}
	out := cloneHighlight(h)
	return &out, changed, nil
}

func (r memoryHighlights) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.highlights[id]; !ok {
		return model.ErrHighlightNotFound
	}
	delete(r.highlights, id)
	return nil
}

func (r memoryHighlights) PullStory(ctx context.Context, storyID primitive.ObjectID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for id, h := range r.highlights {
		if h.RemoveStory(storyID) {
			r.highlights[id] = h
			changed++
		}
	}
	return changed, nil
}

func cloneHighlight(h model.Highlight) model.Highlight {
	h.Stories = slices.Clone(h.Stories)
	if h.Stories == nil {
		h.Stories = []primitive.ObjectID{}
	}
	return h
}
