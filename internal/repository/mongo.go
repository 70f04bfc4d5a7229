package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"babagram/internal/model"
)

func projection(fields ...string) *options.FindOneOptions {
	p := bson.M{}
	for _, f := range fields {
		p[f] = 1
	}
	return options.FindOne().SetProjection(p)
}

// Comment cursors are the hex id of the last item returned. ObjectIDs grow
// with creation time, so ordering by _id is ordering by age.
func parseIDCursor(cursor *string) (*primitive.ObjectID, error) {
	if cursor == nil || *cursor == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(*cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cursor %q", model.ErrValidation, *cursor)
	}
	return &id, nil
}

func nextIDCursor(ids []primitive.ObjectID, limit int) *string {
	if len(ids) <= limit || limit <= 0 {
		return nil
	}
	c := ids[limit-1].Hex()
	return &c
}
