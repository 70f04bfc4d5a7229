package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"babagram/internal/model"
)

type contentRepository struct {
	db *mongo.Database
}

func NewContentRepository(db *mongo.Database) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) coll(t model.ContentType) *mongo.Collection {
	return r.db.Collection(t.Collection())
}

// Insert stores a new entity. The id is assigned before the write so the
// caller's value stays in sync with the document.
func (r *contentRepository) Insert(ctx context.Context, c model.Content) error {
	if err := assignID(c); err != nil {
		return err
	}
	if _, err := r.coll(c.ContentType()).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert %s: %w", c.ContentType(), err)
	}
	return nil
}

func (r *contentRepository) Get(ctx context.Context, ref model.ContentRef) (model.Content, error) {
	c, err := model.NewContent(ref.Type)
	if err != nil {
		return nil, err
	}
	err = r.coll(ref.Type).FindOne(ctx, bson.M{"_id": ref.ID}).Decode(c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", model.ErrContentNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return c, nil
}

// AddMember and RemoveMember are single conditional updates: the filter pins
// the revision the caller read, so the set and its count move together or
// not at all.
func (r *contentRepository) AddMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error {
	update := bson.M{
		"$addToSet": bson.M{set.Field(): actorID},
		"$inc":      bson.M{set.CountField(): 1, "version": 1},
	}
	return r.updateAt(ctx, ref, revision, update)
}

func (r *contentRepository) RemoveMember(ctx context.Context, ref model.ContentRef, revision int64, set model.MemberSet, actorID string) error {
	update := bson.M{
		"$pull": bson.M{set.Field(): actorID},
		"$inc":  bson.M{set.CountField(): -1, "version": 1},
	}
	return r.updateAt(ctx, ref, revision, update)
}

func (r *contentRepository) updateAt(ctx context.Context, ref model.ContentRef, revision int64, update bson.M) error {
	filter := bson.M{"_id": ref.ID, "version": revision, "isActive": true}
	res, err := r.coll(ref.Type).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrWriteConflict
	}
	return nil
}

func (r *contentRepository) AppendChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error) {
	list, count := model.ChildFields(parent.Type)
	filter := bson.M{"_id": parent.ID, "isActive": true}
	update := bson.M{
		"$push": bson.M{list: childID},
		"$inc":  bson.M{count: 1, "version": 1},
	}
	return r.updateChildren(ctx, parent, filter, update, count)
}

func (r *contentRepository) RemoveChild(ctx context.Context, parent model.ContentRef, childID primitive.ObjectID) (int, error) {
	list, count := model.ChildFields(parent.Type)
	// Matching on the child keeps the decrement from running for unknown ids.
	filter := bson.M{"_id": parent.ID, list: childID}
	update := bson.M{
		"$pull": bson.M{list: childID},
		"$inc":  bson.M{count: -1, "version": 1},
	}
	n, err := r.updateChildren(ctx, parent, filter, update, count)
	if errors.Is(err, model.ErrContentNotFound) {
		return r.childCount(ctx, parent, count)
	}
	return n, err
}

func (r *contentRepository) updateChildren(ctx context.Context, parent model.ContentRef, filter, update bson.M, countField string) (int, error) {
	res, err := r.coll(parent.Type).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update children of %s: %w", parent, err)
	}
	if res.MatchedCount == 0 {
		return 0, fmt.Errorf("%w: %s", model.ErrContentNotFound, parent)
	}
	return r.childCount(ctx, parent, countField)
}

func (r *contentRepository) childCount(ctx context.Context, parent model.ContentRef, countField string) (int, error) {
	var doc bson.M
	err := r.coll(parent.Type).FindOne(ctx, bson.M{"_id": parent.ID}, projection(countField)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("%w: %s", model.ErrContentNotFound, parent)
	}
	if err != nil {
		return 0, fmt.Errorf("read %s of %s: %w", countField, parent, err)
	}
	return intField(doc, countField), nil
}

// Replace writes the whole document with the revision bumped.
func (r *contentRepository) Replace(ctx context.Context, c model.Content, revision int64) error {
	model.BumpRevision(c)
	ref := model.Ref(c)
	res, err := r.coll(ref.Type).ReplaceOne(ctx, bson.M{"_id": ref.ID, "version": revision}, c)
	if err != nil {
		return fmt.Errorf("replace %s: %w", ref, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrWriteConflict
	}
	return nil
}

func (r *contentRepository) Delete(ctx context.Context, ref model.ContentRef) error {
	res, err := r.coll(ref.Type).DeleteOne(ctx, bson.M{"_id": ref.ID})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", model.ErrContentNotFound, ref)
	}
	return nil
}

func assignID(c model.Content) error {
	if !c.ContentID().IsZero() {
		return nil
	}
	id := primitive.NewObjectID()
	switch v := c.(type) {
	case *model.Post:
		v.ID = id
	case *model.Video:
		v.ID = id
	case *model.PagePost:
		v.ID = id
	case *model.Comment:
		v.ID = id
	case *model.Story:
		v.ID = id
	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownContentType, c)
	}
	return nil
}

func intField(doc bson.M, field string) int {
	switch v := doc[field].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
