package team

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	teamsCollection    = "teams"
	settingsCollection = "settings"
	rankingDocID       = "ranking"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository instantiates a Firestore-backed repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

type teamDocument struct {
	Team
	// MemberIDs mirrors Members so membership can be queried with array-contains.
	MemberIDs []string `firestore:"member_ids"`
}

func (r *firestoreRepository) teams() *firestore.CollectionRef {
	return r.client.Collection(teamsCollection)
}

func (r *firestoreRepository) rankingRef(teamID string) *firestore.DocumentRef {
	return r.teams().Doc(teamID).Collection(settingsCollection).Doc(rankingDocID)
}

func (r *firestoreRepository) Get(ctx context.Context, teamID string) (Team, error) {
	doc, err := r.teams().Doc(teamID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, err
	}
	return decodeTeam(doc)
}

func (r *firestoreRepository) ListIDs(ctx context.Context) ([]string, error) {
	refs := r.teams().DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list team ids: %w", err)
		}
		ids = append(ids, ref.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *firestoreRepository) TeamsForUser(ctx context.Context, userID string) ([]Team, error) {
	iter := r.teams().Where("member_ids", "array-contains", userID).Documents(ctx)
	defer iter.Stop()

	var out []Team
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list teams for user: %w", err)
		}
		t, err := decodeTeam(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *firestoreRepository) Upsert(ctx context.Context, t Team) error {
	doc := teamDocument{Team: t, MemberIDs: t.MemberIDs()}
	_, err := r.teams().Doc(t.ID).Set(ctx, doc)
	return err
}

func (r *firestoreRepository) GetRankingConfig(ctx context.Context, teamID string) (RankingConfig, error) {
	doc, err := r.rankingRef(teamID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return RankingConfig{}, ErrNotFound
	}
	if err != nil {
		return RankingConfig{}, err
	}
	var cfg RankingConfig
	if err := doc.DataTo(&cfg); err != nil {
		return RankingConfig{}, fmt.Errorf("unmarshal ranking config: %w", err)
	}
	return cfg, nil
}

// SaveRankingConfig writes the configuration in a transaction that also checks the
// team still exists, so a config never outlives a deleted team.
func (r *firestoreRepository) SaveRankingConfig(ctx context.Context, teamID string, cfg RankingConfig) error {
	teamRef := r.teams().Doc(teamID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(teamRef); err != nil {
			return err
		}
		return tx.Set(r.rankingRef(teamID), cfg)
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func decodeTeam(doc *firestore.DocumentSnapshot) (Team, error) {
	var d teamDocument
	if err := doc.DataTo(&d); err != nil {
		return Team{}, fmt.Errorf("unmarshal team: %w", err)
	}
	t := d.Team
	t.ID = doc.Ref.ID
	return t, nil
}
