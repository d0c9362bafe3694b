package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const workoutsCollection = "workouts"

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository instantiates a Firestore-backed repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(workoutsCollection)
}

func (r *firestoreRepository) Create(ctx context.Context, record Record) error {
	data := map[string]any{
		"user_id":          record.UserID,
		"team_id":          record.TeamID,
		"occurred_at":      record.OccurredAt,
		"duration_minutes": record.DurationMinutes,
		"type":             record.Type,
		"created_at":       record.CreatedAt,
		"deleted":          false,
	}

	_, err := r.collection().Doc(record.ID).Create(ctx, data)
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	return err
}

func (r *firestoreRepository) Delete(ctx context.Context, userID, workoutID string) (Record, error) {
	ref := r.collection().Doc(workoutID)
	doc, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	data := doc.Data()
	if owner, _ := data["user_id"].(string); owner != userID {
		return Record{}, ErrNotFound
	}
	if deleted, ok := data["deleted"].(bool); ok && deleted {
		return Record{}, ErrNotFound
	}

	// Precondition guards against a concurrent delete or rewrite between read and update.
	_, err = ref.Update(ctx, []firestore.Update{
		{Path: "deleted", Value: true},
		{Path: "deleted_at", Value: time.Now().UTC()},
	}, firestore.LastUpdateTime(doc.UpdateTime))
	switch status.Code(err) {
	case codes.OK:
		return snapshotToRecord(doc), nil
	case codes.NotFound, codes.FailedPrecondition:
		return Record{}, ErrNotFound
	default:
		return Record{}, err
	}
}

func (r *firestoreRepository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return r.list(ctx, r.collection().Where("user_id", "==", userID).Where("deleted", "==", false))
}

func (r *firestoreRepository) ListByTeam(ctx context.Context, teamID string) ([]Record, error) {
	return r.list(ctx, r.collection().Where("team_id", "==", teamID).Where("deleted", "==", false))
}

// list reads the whole query. Ordering happens in memory so documents with a missing
// occurred_at are still returned and count towards totals.
func (r *firestoreRepository) list(ctx context.Context, query firestore.Query) ([]Record, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []Record
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list workouts: %w", err)
		}
		records = append(records, snapshotToRecord(doc))
	}

	sortByOccurrence(records)
	return records, nil
}

// snapshotToRecord decodes leniently: a malformed timestamp becomes the zero time and a
// malformed duration becomes zero instead of failing the whole history.
func snapshotToRecord(doc *firestore.DocumentSnapshot) Record {
	data := doc.Data()
	rec := Record{ID: doc.Ref.ID}
	rec.UserID, _ = data["user_id"].(string)
	rec.TeamID, _ = data["team_id"].(string)
	rec.Type, _ = data["type"].(string)
	rec.OccurredAt, _ = data["occurred_at"].(time.Time)
	rec.CreatedAt, _ = data["created_at"].(time.Time)

	switch v := data["duration_minutes"].(type) {
	case int64:
		rec.DurationMinutes = int(v)
	case float64:
		rec.DurationMinutes = int(v)
	}
	return rec
}
