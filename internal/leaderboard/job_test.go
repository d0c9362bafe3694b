package leaderboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/teamfit-service/internal/metrics"
)

type countingRebuilder struct {
	runs atomic.Int32
	err  error
}

func (c *countingRebuilder) RebuildAll(context.Context) error {
	c.runs.Add(1)
	return c.err
}

func TestRefreshJobRejectsBadSchedule(t *testing.T) {
	_, err := NewRefreshJob("every now and then", &countingRebuilder{}, time.UTC, nil, nil)
	assert.Error(t, err)

	_, err = NewRefreshJob("@every 1m", nil, time.UTC, nil, nil)
	assert.Error(t, err)
}

func TestRefreshJobRunInvokesTarget(t *testing.T) {
	target := &countingRebuilder{err: errors.New("one team failed")}
	job, err := NewRefreshJob("*/5 * * * *", target, time.UTC, metrics.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	job.Run(context.Background())
	target.err = nil
	job.Run(context.Background())

	assert.Equal(t, int32(2), target.runs.Load())
}

func TestRefreshJobStartStop(t *testing.T) {
	target := &countingRebuilder{}
	job, err := NewRefreshJob("@every 1h", target, time.UTC, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	job.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job.Stop(ctx)

	assert.Equal(t, int32(0), target.runs.Load())
}
