package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babagram/internal/model"
)

// ConnectMongo returns a pooled client after a successful ping.
func ConnectMongo(ctx context.Context, uri string, log zerolog.Logger) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connection uri is empty")
	}

	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Msg("connected to mongodb")
	return client, nil
}

// EnsureIndexes creates the indexes the read paths rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		model.CollectionComments: {
			{Keys: bson.D{{Key: "root.contentType", Value: 1}, {Key: "root.contentId", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "parentComment", Value: 1}, {Key: "_id", Value: 1}}},
		},
		model.CollectionStories: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "expiresAt", Value: -1}}},
		},
		model.CollectionHighlights: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "stories", Value: 1}}},
		},
	}
	for _, coll := range []string{model.CollectionPosts, model.CollectionVideos, model.CollectionPagePosts} {
		indexes[coll] = []mongo.IndexModel{
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		}
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
