package achievement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the collection name used by the Mongo store.
const MongoCollection = "achievements"

type mongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore returns a Store that merges badges with $addToSet in a single upsert.
func NewMongoStore(collection *mongo.Collection) Store {
	return &mongoStore{collection: collection}
}

func (s *mongoStore) Get(ctx context.Context, userID string) (State, error) {
	var st State
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return State{UserID: userID, EarnedBadgeIDs: []BadgeID{}}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to get achievements for user %s: %w", userID, err)
	}
	if st.EarnedBadgeIDs == nil {
		st.EarnedBadgeIDs = []BadgeID{}
	}
	return st, nil
}

func (s *mongoStore) AddBadges(ctx context.Context, userID string, ids []BadgeID, at time.Time) (State, error) {
	update := bson.M{
		"$set": bson.M{
			"last_evaluated_at": at,
			"catalog_version":   CatalogVersion,
		},
	}
	if len(ids) > 0 {
		update["$addToSet"] = bson.M{"earned_badge_ids": bson.M{"$each": ids}}
	} else {
		update["$setOnInsert"] = bson.M{"earned_badge_ids": bson.A{}}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var st State
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&st)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Two upserts raced on a new user; the loser can retry next cycle.
			return State{}, ErrConflict
		}
		return State{}, fmt.Errorf("failed to add badges for user %s: %w", userID, err)
	}
	if st.EarnedBadgeIDs == nil {
		st.EarnedBadgeIDs = []BadgeID{}
	}
	return st, nil
}
