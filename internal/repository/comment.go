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

type commentRepository struct {
	coll *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) CommentRepository {
	return &commentRepository{coll: db.Collection(model.CollectionComments)}
}

// ListByRoot returns top-level comments using cursor pagination.
func (r *commentRepository) ListByRoot(ctx context.Context, root model.ContentRef, cursor *string, limit int) ([]model.Comment, *string, error) {
	filter := bson.M{
		"root.contentType": root.Type,
		"root.contentId":   root.ID,
		"parentComment":    bson.M{"$exists": false},
		"isActive":         true,
	}
	return r.page(ctx, filter, cursor, limit)
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID primitive.ObjectID, cursor *string, limit int) ([]model.Comment, *string, error) {
	filter := bson.M{"parentComment": parentID, "isActive": true}
	return r.page(ctx, filter, cursor, limit)
}

func (r *commentRepository) page(ctx context.Context, filter bson.M, cursor *string, limit int) ([]model.Comment, *string, error) {
	after, err := parseIDCursor(cursor)
	if err != nil {
		return nil, nil, err
	}
	if after != nil {
		filter["_id"] = bson.M{"$gt": *after}
	}

	// Fetch one extra to know if there are more
	opts := options.Find().SetSort(bson.M{"_id": 1}).SetLimit(int64(limit + 1))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("find comments: %w", err)
	}
	var comments []model.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, nil, fmt.Errorf("decode comments: %w", err)
	}

	ids := make([]primitive.ObjectID, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	next := nextIDCursor(ids, limit)
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, next, nil
}

// DeactivateReplies soft deletes the whole subtree below parentID.
func (r *commentRepository) DeactivateReplies(ctx context.Context, parentID primitive.ObjectID, now time.Time) (int, error) {
	total := 0
	frontier := []primitive.ObjectID{parentID}
	for len(frontier) > 0 {
		filter := bson.M{"parentComment": bson.M{"$in": frontier}, "isActive": true}
		cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return total, fmt.Errorf("find replies: %w", err)
		}
		var rows []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.All(ctx, &rows); err != nil {
			return total, fmt.Errorf("decode replies: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		next := make([]primitive.ObjectID, len(rows))
		for i, row := range rows {
			next[i] = row.ID
		}
		res, err := r.coll.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": next}},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}, "$inc": bson.M{"version": 1}},
		)
		if err != nil {
			return total, fmt.Errorf("deactivate replies: %w", err)
		}
		total += int(res.ModifiedCount)
		frontier = next
	}
	return total, nil
}
