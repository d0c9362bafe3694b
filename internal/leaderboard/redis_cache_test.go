package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/teamfit-service/internal/team"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	cache := &redisCache{client: rdb}
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	board := Board{
		TeamID:      "t1",
		Mode:        team.ModeAutomatic,
		Metric:      team.MetricTotalWorkouts,
		Entries:     []Entry{{MemberID: "a", DisplayName: "A", MetricValue: 3, Rank: 1}},
		GeneratedAt: composeAt,
	}
	require.NoError(t, cache.Set(ctx, board, time.Minute))
	assert.Equal(t, time.Minute, rdb.ttls["teamfit:leaderboard:t1"])

	got, ok, err := cache.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, board.Entries, got.Entries)
	assert.True(t, board.GeneratedAt.Equal(got.GeneratedAt))

	require.NoError(t, cache.Delete(ctx, "t1"))
	_, ok, err = cache.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptValueIsMiss(t *testing.T) {
	rdb := newFakeRedis()
	rdb.values["teamfit:leaderboard:t1"] = "{not json"
	cache := &redisCache{client: rdb}

	_, ok, err := cache.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheSurfacesErrors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	cache := &redisCache{client: rdb}
	ctx := context.Background()

	_, _, err := cache.Get(ctx, "t1")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, Board{TeamID: "t1"}, time.Minute))
	assert.Error(t, cache.Delete(ctx, "t1"))
}
