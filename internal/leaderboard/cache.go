package leaderboard

import (
	"context"
	"time"
)

// Cache stores composed boards per team.
type Cache interface {
	// Get returns the cached board and whether it was present.
	Get(ctx context.Context, teamID string) (Board, bool, error)
	Set(ctx context.Context, board Board, ttl time.Duration) error
	Delete(ctx context.Context, teamID string) error
}

type noopCache struct{}

// NewNoopCache returns a Cache that never stores anything.
func NewNoopCache() Cache {
	return noopCache{}
}

func (noopCache) Get(context.Context, string) (Board, bool, error) { return Board{}, false, nil }

func (noopCache) Set(context.Context, Board, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, string) error { return nil }
