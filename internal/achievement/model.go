package achievement

import (
	"context"
	"errors"
	"time"
)

// BadgeID identifies a badge in the catalog.
type BadgeID string

// UserStats is the aggregate a badge rule is evaluated against.
type UserStats struct {
	TotalWorkouts   int  `json:"total_workouts"`
	TotalMinutes    int  `json:"total_minutes"`
	CurrentStreak   int  `json:"current_streak"`
	WeekendWorkouts int  `json:"weekend_workouts"`
	HasTeam         bool `json:"has_team"`
}

// State is the persisted achievement progress of one user. EarnedBadgeIDs keeps
// the order badges were first earned and only ever grows.
type State struct {
	UserID          string    `json:"user_id" bson:"_id" firestore:"-"`
	EarnedBadgeIDs  []BadgeID `json:"earned_badge_ids" bson:"earned_badge_ids" firestore:"earned_badge_ids"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at" bson:"last_evaluated_at" firestore:"last_evaluated_at"`
	// Version supports compare-and-swap stores; atomic stores leave it zero.
	Version int64 `json:"-" bson:"version,omitempty" firestore:"-"`
}

// Has reports whether id was already earned.
func (s State) Has(id BadgeID) bool {
	for _, e := range s.EarnedBadgeIDs {
		if e == id {
			return true
		}
	}
	return false
}

// Store persists achievement state. AddBadges is a set-union merge against whatever is
// currently stored and never removes an earned badge.
type Store interface {
	// Get returns the stored state, or an empty state when the user has none yet.
	Get(ctx context.Context, userID string) (State, error)
	AddBadges(ctx context.Context, userID string, ids []BadgeID, at time.Time) (State, error)
}

// VersionedStore is a store without an atomic union primitive. CompareAndSwap must
// return ErrConflict when the stored version differs from expected.
type VersionedStore interface {
	Get(ctx context.Context, userID string) (State, error)
	CompareAndSwap(ctx context.Context, next State, expected int64) error
}

var (
	// ErrConflict indicates a concurrent write won and retries were exhausted.
	ErrConflict = errors.New("achievement state changed concurrently")
	// ErrInvalidCatalog indicates the badge catalog failed validation.
	ErrInvalidCatalog = errors.New("invalid badge catalog")
)

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// mergeBadges appends ids missing from existing, preserving the order of both.
func mergeBadges(existing, ids []BadgeID) []BadgeID {
	seen := make(map[BadgeID]struct{}, len(existing)+len(ids))
	out := make([]BadgeID, 0, len(existing)+len(ids))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
