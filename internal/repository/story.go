package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babagram/internal/model"
)

type storyRepository struct {
	coll *mongo.Collection
}

func NewStoryRepository(db *mongo.Database) StoryRepository {
	return &storyRepository{coll: db.Collection(model.CollectionStories)}
}

func (r *storyRepository) ListActiveByAuthor(ctx context.Context, authorID string, now time.Time) ([]model.Story, error) {
	filter := bson.M{
		"author":    authorID,
		"isActive":  true,
		"expiresAt": bson.M{"$gte": now},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}
	stories := []model.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return stories, nil
}

// GetMany never filters on expiresAt; highlights keep expired stories.
func (r *storyRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]model.Story, error) {
	if len(ids) == 0 {
		return []model.Story{}, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find stories by ids: %w", err)
	}
	var found []model.Story
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return orderStories(found, ids), nil
}

// orderStories returns stories in the order of ids, skipping unknown ids.
func orderStories(found []model.Story, ids []primitive.ObjectID) []model.Story {
	byID := make(map[primitive.ObjectID]model.Story, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]model.Story, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
