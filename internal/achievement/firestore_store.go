package achievement

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const achievementsCollection = "achievements"

type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore returns a Store that merges badges with Firestore's ArrayUnion
// transform, so concurrent writers never drop each other's badges.
func NewFirestoreStore(client *firestore.Client) Store {
	return &firestoreStore{client: client}
}

func (s *firestoreStore) ref(userID string) *firestore.DocumentRef {
	return s.client.Collection(achievementsCollection).Doc(userID)
}

func (s *firestoreStore) Get(ctx context.Context, userID string) (State, error) {
	doc, err := s.ref(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return State{UserID: userID, EarnedBadgeIDs: []BadgeID{}}, nil
	}
	if err != nil {
		return State{}, err
	}

	var st State
	if err := doc.DataTo(&st); err != nil {
		return State{}, fmt.Errorf("unmarshal achievement state: %w", err)
	}
	st.UserID = userID
	if st.EarnedBadgeIDs == nil {
		st.EarnedBadgeIDs = []BadgeID{}
	}
	return st, nil
}

func (s *firestoreStore) AddBadges(ctx context.Context, userID string, ids []BadgeID, at time.Time) (State, error) {
	data := map[string]any{
		"last_evaluated_at": at,
		"catalog_version":   CatalogVersion,
	}
	if len(ids) > 0 {
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = string(id)
		}
		data["earned_badge_ids"] = firestore.ArrayUnion(values...)
	}

	if _, err := s.ref(userID).Set(ctx, data, firestore.MergeAll); err != nil {
		if status.Code(err) == codes.Aborted {
			return State{}, ErrConflict
		}
		return State{}, err
	}
	return s.Get(ctx, userID)
}
