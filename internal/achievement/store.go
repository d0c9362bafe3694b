package achievement

import (
	"context"
	"errors"
	"time"
)

// DefaultWriteAttempts bounds the compare-and-retry loop when no value is configured.
const DefaultWriteAttempts = 3

type retryingStore struct {
	inner    VersionedStore
	attempts int
}

// NewRetryingStore turns a VersionedStore into a Store by re-reading and retrying the
// merge when a concurrent writer wins. After attempts failures AddBadges returns
// ErrConflict and nothing is written.
func NewRetryingStore(inner VersionedStore, attempts int) Store {
	if attempts < 1 {
		attempts = DefaultWriteAttempts
	}
	return &retryingStore{inner: inner, attempts: attempts}
}

func (s *retryingStore) Get(ctx context.Context, userID string) (State, error) {
	return s.inner.Get(ctx, userID)
}

func (s *retryingStore) AddBadges(ctx context.Context, userID string, ids []BadgeID, at time.Time) (State, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return State{}, err
		}

		current, err := s.inner.Get(ctx, userID)
		if err != nil {
			return State{}, err
		}

		next := State{
			UserID:          userID,
			EarnedBadgeIDs:  mergeBadges(current.EarnedBadgeIDs, ids),
			LastEvaluatedAt: at,
			Version:         current.Version + 1,
		}
		err = s.inner.CompareAndSwap(ctx, next, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return State{}, err
		}
	}
	return State{}, ErrConflict
}
