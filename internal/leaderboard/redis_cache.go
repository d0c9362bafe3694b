package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// boardKeyPrefix namespaces leaderboard keys; the team id is appended.
const boardKeyPrefix = "teamfit:leaderboard:"

// redisCommands is the subset of redis.UniversalClient the cache needs.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisCache struct {
	client redisCommands
}

// NewRedisCache stores boards as JSON strings with a per-entry TTL.
func NewRedisCache(client redis.UniversalClient) Cache {
	return &redisCache{client: client}
}

func boardKey(teamID string) string {
	return boardKeyPrefix + teamID
}

func (c *redisCache) Get(ctx context.Context, teamID string) (Board, bool, error) {
	raw, err := c.client.Get(ctx, boardKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Board{}, false, nil
	}
	if err != nil {
		return Board{}, false, fmt.Errorf("failed to read leaderboard for team %s from Redis: %w", teamID, err)
	}

	var board Board
	if err := json.Unmarshal(raw, &board); err != nil {
		// A value written by an older release; treat as a miss so it gets rebuilt.
		return Board{}, false, nil
	}
	return board, true, nil
}

func (c *redisCache) Set(ctx context.Context, board Board, ttl time.Duration) error {
	raw, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, boardKey(board.TeamID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache leaderboard for team %s in Redis: %w", board.TeamID, err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, teamID string) error {
	if err := c.client.Del(ctx, boardKey(teamID)).Err(); err != nil {
		return fmt.Errorf("failed to drop leaderboard for team %s from Redis: %w", teamID, err)
	}
	return nil
}
