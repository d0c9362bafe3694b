package achievement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/teamfit-service/internal/metrics"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
)

// HistorySource lists a user's workouts.
type HistorySource interface {
	ListByUser(ctx context.Context, userID string) ([]workout.Record, error)
}

// MembershipSource lists the teams a user belongs to.
type MembershipSource interface {
	TeamsForUser(ctx context.Context, userID string) ([]team.Team, error)
}

// Options wires the collaborators of a Service. Location defaults to time.Local.
type Options struct {
	History   HistorySource
	Teams     MembershipSource
	Store     Store
	Evaluator *Evaluator
	Clock     Clock
	Location  *time.Location
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Result is the outcome of an evaluation cycle or a read-only summary.
type Result struct {
	UserID          string    `json:"user_id"`
	NewlyEarned     []BadgeID `json:"newly_earned"`
	Earned          []BadgeID `json:"earned"`
	Stats           UserStats `json:"stats"`
	CurrentStreak   int       `json:"current_streak"`
	LongestStreak   int       `json:"longest_streak"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at,omitempty"`
	// Deferred is set when the cycle could not complete and will be retried by the next one.
	Deferred bool `json:"deferred"`
	// StateUnavailable marks Earned as unknown because the stored state could not be read.
	StateUnavailable bool `json:"state_unavailable,omitempty"`
}

// Service runs badge evaluation against stored workouts and persists earned badges.
type Service struct {
	history   HistorySource
	teams     MembershipSource
	store     Store
	evaluator *Evaluator
	clock     Clock
	loc       *time.Location
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewService constructs a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.History == nil {
		return nil, errors.New("history source is required")
	}
	if opts.Teams == nil {
		return nil, errors.New("membership source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		history:   opts.History,
		teams:     opts.Teams,
		store:     opts.Store,
		evaluator: opts.Evaluator,
		clock:     opts.Clock,
		loc:       opts.Location,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}, nil
}

// Catalog returns the badge definitions the service evaluates.
func (s *Service) Catalog() []BadgeDefinition {
	return s.evaluator.Definitions()
}

// Refresh evaluates the catalog for the user and merges newly earned badges into the
// stored state. Upstream or store failures are logged and yield a deferred result
// with no new badges rather than an error.
func (s *Service) Refresh(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, errors.New("missing user id")
	}
	now := s.clock.Now().In(s.loc)
	logger := s.logger.With(slog.String("user_id", userID))

	var (
		history                        []workout.Record
		teams                          []team.Team
		state                          State
		historyErr, teamsErr, stateErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		history, historyErr = s.history.ListByUser(ctx, userID)
		return nil
	})
	g.Go(func() error {
		teams, teamsErr = s.teams.TeamsForUser(ctx, userID)
		return nil
	})
	g.Go(func() error {
		state, stateErr = s.store.Get(ctx, userID)
		return nil
	})
	_ = g.Wait()
	if err := errors.Join(historyErr, teamsErr, stateErr); err != nil {
		logger.Warn("badge evaluation skipped, upstream unavailable", slog.Any("error", err))
		s.metrics.Evaluation(metrics.OutcomeSkipped)
		skipped := Result{UserID: userID, NewlyEarned: []BadgeID{}, Earned: []BadgeID{}, Deferred: true}
		if stateErr != nil {
			skipped.StateUnavailable = true
		} else {
			skipped.Earned = nonNil(state.EarnedBadgeIDs)
			skipped.LastEvaluatedAt = state.LastEvaluatedAt
		}
		return skipped, nil
	}

	stats := StatsFromHistory(history, now, len(teams) > 0)
	result := Result{
		UserID:          userID,
		NewlyEarned:     []BadgeID{},
		Earned:          nonNil(state.EarnedBadgeIDs),
		Stats:           stats,
		CurrentStreak:   stats.CurrentStreak,
		LongestStreak:   LongestStreak(history, now),
		LastEvaluatedAt: state.LastEvaluatedAt,
	}

	newly := s.evaluator.Evaluate(stats, state.EarnedBadgeIDs)
	merged, err := s.store.AddBadges(ctx, userID, newly, now.UTC())
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		logger.Warn("badge merge deferred after concurrent writes", slog.Int("pending", len(newly)))
		s.metrics.WriteConflict()
		s.metrics.Evaluation(metrics.OutcomeDeferred)
		result.Deferred = true
		return result, nil
	default:
		logger.Warn("badge merge failed", slog.Any("error", err))
		s.metrics.Evaluation(metrics.OutcomeDeferred)
		result.Deferred = true
		return result, nil
	}

	result.Earned = nonNil(merged.EarnedBadgeIDs)
	result.LastEvaluatedAt = merged.LastEvaluatedAt
	if len(newly) == 0 {
		s.metrics.Evaluation(metrics.OutcomeUnchanged)
		return result, nil
	}

	result.NewlyEarned = newly
	for _, id := range newly {
		s.metrics.BadgeAwarded(string(id))
	}
	s.metrics.Evaluation(metrics.OutcomeAwarded)
	logger.Info("badges awarded", slog.Any("badges", newly))
	return result, nil
}

// Summary reports streaks, stats and earned badges without writing anything. Each
// source degrades to empty on failure.
func (s *Service) Summary(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, errors.New("missing user id")
	}
	now := s.clock.Now().In(s.loc)
	logger := s.logger.With(slog.String("user_id", userID))

	var (
		history []workout.Record
		teams   []team.Team
		state   State
	)
	var g errgroup.Group
	g.Go(func() error {
		h, err := s.history.ListByUser(ctx, userID)
		if err != nil {
			logger.Warn("workout history unavailable", slog.Any("error", err))
			return nil
		}
		history = h
		return nil
	})
	g.Go(func() error {
		t, err := s.teams.TeamsForUser(ctx, userID)
		if err != nil {
			logger.Warn("team membership unavailable", slog.Any("error", err))
			return nil
		}
		teams = t
		return nil
	})
	g.Go(func() error {
		st, err := s.store.Get(ctx, userID)
		if err != nil {
			logger.Warn("achievement state unavailable", slog.Any("error", err))
			return nil
		}
		state = st
		return nil
	})
	_ = g.Wait()

	stats := StatsFromHistory(history, now, len(teams) > 0)
	return Result{
		UserID:          userID,
		NewlyEarned:     []BadgeID{},
		Earned:          nonNil(state.EarnedBadgeIDs),
		Stats:           stats,
		CurrentStreak:   stats.CurrentStreak,
		LongestStreak:   LongestStreak(history, now),
		LastEvaluatedAt: state.LastEvaluatedAt,
	}, nil
}

// WorkoutLogged re-evaluates badges for the workout's owner.
func (s *Service) WorkoutLogged(ctx context.Context, record workout.Record) {
	if _, err := s.Refresh(ctx, record.UserID); err != nil {
		s.logger.Warn("badge evaluation after log failed", slog.String("user_id", record.UserID), slog.Any("error", err))
	}
}

// WorkoutDeleted is a no-op: earned badges are never revoked.
func (s *Service) WorkoutDeleted(context.Context, workout.Record) {}

func nonNil(ids []BadgeID) []BadgeID {
	if ids == nil {
		return []BadgeID{}
	}
	return ids
}
