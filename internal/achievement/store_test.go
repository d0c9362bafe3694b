package achievement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contendedStore always reports a concurrent write.
type contendedStore struct {
	VersionedStore
	attempts int
}

func (c *contendedStore) CompareAndSwap(context.Context, State, int64) error {
	c.attempts++
	return ErrConflict
}

type brokenStore struct{ VersionedStore }

func (brokenStore) CompareAndSwap(context.Context, State, int64) error {
	return errors.New("disk full")
}

var evaluatedAt = time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)

func TestRetryingStoreMergesPreservingOrder(t *testing.T) {
	store := NewRetryingStore(NewMemoryStore(), 3)
	ctx := context.Background()

	st, err := store.AddBadges(ctx, "u1", []BadgeID{"first_workout", "streak_3"}, evaluatedAt)
	require.NoError(t, err)
	assert.Equal(t, []BadgeID{"first_workout", "streak_3"}, st.EarnedBadgeIDs)

	st, err = store.AddBadges(ctx, "u1", []BadgeID{"streak_3", "team_player"}, evaluatedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []BadgeID{"first_workout", "streak_3", "team_player"}, st.EarnedBadgeIDs)
	assert.Equal(t, evaluatedAt.Add(time.Hour), st.LastEvaluatedAt)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, st.EarnedBadgeIDs, got.EarnedBadgeIDs)
}

func TestRetryingStoreEmptyAddOnlyStampsEvaluation(t *testing.T) {
	store := NewRetryingStore(NewMemoryStore(), 3)
	st, err := store.AddBadges(context.Background(), "u1", nil, evaluatedAt)
	require.NoError(t, err)
	assert.Empty(t, st.EarnedBadgeIDs)
	assert.Equal(t, evaluatedAt, st.LastEvaluatedAt)
}

func TestRetryingStoreGivesUpAfterBoundedAttempts(t *testing.T) {
	inner := &contendedStore{VersionedStore: NewMemoryStore()}
	store := NewRetryingStore(inner, 4)

	_, err := store.AddBadges(context.Background(), "u1", []BadgeID{"streak_3"}, evaluatedAt)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 4, inner.attempts)
}

func TestRetryingStorePropagatesOtherErrors(t *testing.T) {
	store := NewRetryingStore(brokenStore{NewMemoryStore()}, 4)
	_, err := store.AddBadges(context.Background(), "u1", []BadgeID{"streak_3"}, evaluatedAt)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestConcurrentMergesNeverLoseBadges(t *testing.T) {
	inner := NewMemoryStore()
	store := NewRetryingStore(inner, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AddBadges(ctx, "u1", []BadgeID{BadgeID(fmt.Sprintf("b%d", i))}, evaluatedAt)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := inner.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, st.EarnedBadgeIDs, 20)
	assert.Equal(t, int64(20), st.Version)
}

func TestMergeBadgesNeverDuplicates(t *testing.T) {
	got := mergeBadges([]BadgeID{"a", "b", "a"}, []BadgeID{"c", "b", "c"})
	assert.Equal(t, []BadgeID{"a", "b", "c"}, got)
}
