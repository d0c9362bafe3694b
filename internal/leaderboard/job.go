package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/focusnest/teamfit-service/internal/metrics"
)

// Rebuilder recomposes every team's board.
type Rebuilder interface {
	RebuildAll(ctx context.Context) error
}

// RefreshJob periodically rebuilds every leaderboard on a cron schedule.
type RefreshJob struct {
	cron     *cron.Cron
	target   Rebuilder
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *slog.Logger
	schedule string
}

// NewRefreshJob parses schedule (standard five-field cron or a descriptor such as
// "@every 10m") and returns a job that is not yet running.
func NewRefreshJob(schedule string, target Rebuilder, loc *time.Location, m *metrics.Collector, logger *slog.Logger) (*RefreshJob, error) {
	if target == nil {
		return nil, fmt.Errorf("refresh target is required")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &RefreshJob{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		target:   target,
		timeout:  2 * time.Minute,
		metrics:  m,
		logger:   logger,
		schedule: schedule,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse leaderboard refresh schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running the schedule in the background.
func (j *RefreshJob) Start() {
	j.logger.Info("leaderboard refresh scheduled", slog.String("schedule", j.schedule))
	j.cron.Start()
}

// Stop halts the schedule and waits for a running refresh, bounded by ctx.
func (j *RefreshJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("leaderboard refresh still running at shutdown")
	}
}

// Run performs one refresh pass immediately.
func (j *RefreshJob) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	err := j.target.RebuildAll(ctx)
	j.metrics.RefreshRun(err == nil)
	if err != nil {
		j.logger.Warn("leaderboard refresh incomplete", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return
	}
	j.logger.Debug("leaderboard refresh complete", slog.Duration("elapsed", time.Since(start)))
}
