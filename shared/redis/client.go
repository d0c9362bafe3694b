package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient returns a Redis client for the given addresses. A single address yields a
// standalone client, several addresses a cluster client.
func NewClient(ctx context.Context, addrs []string, password string, logger *slog.Logger) (redis.UniversalClient, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no redis addresses provided")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  6 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis at %v: %w", addrs, err)
	}

	logger.Info("connected to redis", "addrs", addrs)
	return rdb, nil
}
