package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babagram/internal/model"
)

type highlightRepository struct {
	coll *mongo.Collection
}

func NewHighlightRepository(db *mongo.Database) HighlightRepository {
	return &highlightRepository{coll: db.Collection(model.CollectionHighlights)}
}

func (r *highlightRepository) Create(ctx context.Context, h *model.Highlight) error {
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	if h.Stories == nil {
		h.Stories = []primitive.ObjectID{}
	}
	if _, err := r.coll.InsertOne(ctx, h); err != nil {
		return fmt.Errorf("insert highlight: %w", err)
	}
	return nil
}

func (r *highlightRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Highlight, error) {
	var h model.Highlight
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrHighlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get highlight: %w", err)
	}
	return &h, nil
}

func (r *highlightRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Highlight, error) {
	cur, err := r.coll.Find(ctx, bson.M{"owner": ownerID}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("find highlights: %w", err)
	}
	highlights := []model.Highlight{}
	if err := cur.All(ctx, &highlights); err != nil {
		return nil, fmt.Errorf("decode highlights: %w", err)
	}
	return highlights, nil
}

func (r *highlightRepository) Update(ctx context.Context, h *model.Highlight) error {
	update := bson.M{"$set": bson.M{
		"name":      h.Name,
		"coverUrl":  h.CoverURL,
		"updatedAt": h.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": h.ID}, update)
	if err != nil {
		return fmt.Errorf("update highlight: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrHighlightNotFound
	}
	return nil
}

func (r *highlightRepository) AddStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error) {
	return r.editStories(ctx, id, ownerID,
		bson.M{"stories": bson.M{"$ne": storyID}},
		bson.M{"$addToSet": bson.M{"stories": storyID}, "$set": bson.M{"updatedAt": now}},
	)
}

func (r *highlightRepository) RemoveStory(ctx context.Context, id primitive.ObjectID, ownerID string, storyID primitive.ObjectID, now time.Time) (*model.Highlight, bool, error) {
	return r.editStories(ctx, id, ownerID,
		bson.M{"stories": storyID},
		bson.M{"$pull": bson.M{"stories": storyID}, "$set": bson.M{"updatedAt": now}},
	)
}

// editStories applies update when the highlight is ownerID's and cond holds.
// A miss is resolved into not found, not owner, or an unchanged highlight.
func (r *highlightRepository) editStories(ctx context.Context, id primitive.ObjectID, ownerID string, cond, update bson.M) (*model.Highlight, bool, error) {
	filter := bson.M{"_id": id, "owner": ownerID}
	for k, v := range cond {
		filter[k] = v
	}

	var h model.Highlight
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&h)
	if err == nil {
		return &h, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("update highlight stories: %w", err)
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Owner != ownerID {
		return nil, false, model.ErrNotHighlightOwner
	}
	return current, false, nil
}

func (r *highlightRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrHighlightNotFound
	}
	return nil
}

func (r *highlightRepository) PullStory(ctx context.Context, storyID primitive.ObjectID) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"stories": storyID},
		bson.M{"$pull": bson.M{"stories": storyID}},
	)
	if err != nil {
		return 0, fmt.Errorf("pull story from highlights: %w", err)
	}
	return int(res.ModifiedCount), nil
}
