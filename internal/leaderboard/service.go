package leaderboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/teamfit-service/internal/metrics"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
)

const historyFetchLimit = 8

// Board is a composed leaderboard for one team.
type Board struct {
	TeamID      string           `json:"team_id"`
	Mode        team.RankingMode `json:"mode"`
	Metric      team.Metric      `json:"metric"`
	Entries     []Entry          `json:"entries"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// TeamSource resolves rosters and ranking configuration.
type TeamSource interface {
	Get(ctx context.Context, teamID string) (team.Team, error)
	ListIDs(ctx context.Context) ([]string, error)
	TeamsForUser(ctx context.Context, userID string) ([]team.Team, error)
	// RankingConfig never fails; it falls back to defaults.
	RankingConfig(ctx context.Context, teamID string) team.RankingConfig
}

// WorkoutSource lists a member's full workout history.
type WorkoutSource interface {
	ListByUser(ctx context.Context, userID string) ([]workout.Record, error)
}

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// Options wires the collaborators of a Service.
type Options struct {
	Teams    TeamSource
	Workouts WorkoutSource
	Cache    Cache
	CacheTTL time.Duration
	Scorer   Scorer
	Clock    Clock
	Location *time.Location
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Service composes leaderboards and keeps the board cache fresh.
type Service struct {
	teams    TeamSource
	workouts WorkoutSource
	cache    Cache
	ttl      time.Duration
	scorer   Scorer
	clock    Clock
	loc      *time.Location
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewService constructs a Service from opts. A nil cache disables caching.
func NewService(opts Options) (*Service, error) {
	if opts.Teams == nil {
		return nil, errors.New("team source is required")
	}
	if opts.Workouts == nil {
		return nil, errors.New("workout source is required")
	}
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if opts.Cache == nil {
		opts.Cache = NewNoopCache()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Scorer == (Scorer{}) {
		opts.Scorer = DefaultScorer()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		teams:    opts.Teams,
		workouts: opts.Workouts,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		scorer:   opts.Scorer,
		clock:    opts.Clock,
		loc:      opts.Location,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Leaderboard returns the cached board for the team or composes a fresh one.
// Cache failures are logged and bypassed.
func (s *Service) Leaderboard(ctx context.Context, teamID string) (Board, error) {
	if teamID == "" {
		return Board{}, team.ErrNotFound
	}

	board, ok, err := s.cache.Get(ctx, teamID)
	switch {
	case err != nil:
		s.metrics.CacheLookup(metrics.CacheError)
		s.logger.Warn("leaderboard cache read failed", slog.String("team_id", teamID), slog.Any("error", err))
	case ok:
		s.metrics.CacheLookup(metrics.CacheHit)
		return board, nil
	default:
		s.metrics.CacheLookup(metrics.CacheMiss)
	}

	return s.Rebuild(ctx, teamID)
}

// Rebuild composes the team's board from the stores and writes it to the cache.
func (s *Service) Rebuild(ctx context.Context, teamID string) (Board, error) {
	board, err := s.compose(ctx, teamID)
	if err != nil {
		return Board{}, err
	}
	if err := s.cache.Set(ctx, board, s.ttl); err != nil {
		s.logger.Warn("leaderboard cache write failed", slog.String("team_id", teamID), slog.Any("error", err))
	}
	return board, nil
}

// RebuildAll refreshes every team's board. It keeps going past individual failures
// and returns the first one.
func (s *Service) RebuildAll(ctx context.Context) error {
	ids, err := s.teams.ListIDs(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Rebuild(ctx, id); err != nil {
			s.logger.Warn("leaderboard rebuild failed", slog.String("team_id", id), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Invalidate drops the cached board so the next read recomposes it.
func (s *Service) Invalidate(ctx context.Context, teamID string) {
	if teamID == "" {
		return
	}
	if err := s.cache.Delete(ctx, teamID); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", slog.String("team_id", teamID), slog.Any("error", err))
	}
}

// WorkoutLogged invalidates the board of every team the workout's owner belongs to.
func (s *Service) WorkoutLogged(ctx context.Context, rec workout.Record) {
	s.invalidateMemberTeams(ctx, rec)
}

// WorkoutDeleted invalidates the board of every team the workout's owner belongs to.
func (s *Service) WorkoutDeleted(ctx context.Context, rec workout.Record) {
	s.invalidateMemberTeams(ctx, rec)
}

// TeamChanged invalidates the board after a roster or configuration change.
func (s *Service) TeamChanged(ctx context.Context, teamID string) {
	s.Invalidate(ctx, teamID)
}

// invalidateMemberTeams drops the boards a member ranks on. The record's own team tag
// is always included so a failed membership lookup still clears that board.
func (s *Service) invalidateMemberTeams(ctx context.Context, rec workout.Record) {
	seen := map[string]struct{}{}
	if rec.TeamID != "" {
		seen[rec.TeamID] = struct{}{}
		s.Invalidate(ctx, rec.TeamID)
	}

	teams, err := s.teams.TeamsForUser(ctx, rec.UserID)
	if err != nil {
		s.logger.Warn("member teams unavailable, invalidating tagged team only",
			slog.String("user_id", rec.UserID), slog.Any("error", err))
		return
	}
	for _, t := range teams {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		s.Invalidate(ctx, t.ID)
	}
}

func (s *Service) compose(ctx context.Context, teamID string) (Board, error) {
	start := time.Now()
	now := s.clock.Now().In(s.loc)

	var (
		roster team.Team
		cfg    team.RankingConfig
	)
	var g errgroup.Group
	g.Go(func() error {
		t, err := s.teams.Get(ctx, teamID)
		if err != nil {
			return err
		}
		roster = t
		return nil
	})
	g.Go(func() error {
		cfg = s.teams.RankingConfig(ctx, teamID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}

	histories := s.memberHistories(ctx, teamID, roster.Participants())

	entries := Compose(roster.Members, histories, cfg, now, s.scorer)
	if entries == nil {
		entries = []Entry{}
	}
	s.metrics.ObserveCompose(string(cfg.Mode), time.Since(start))

	return Board{
		TeamID:      teamID,
		Mode:        cfg.Mode,
		Metric:      cfg.AutomaticMetric,
		Entries:     entries,
		GeneratedAt: now.UTC(),
	}, nil
}

// memberHistories loads each participant's full history concurrently. A member whose
// history cannot be read ranks on an empty one.
func (s *Service) memberHistories(ctx context.Context, teamID string, members []team.Member) map[string][]workout.Record {
	var (
		mu  sync.Mutex
		out = make(map[string][]workout.Record, len(members))
		g   errgroup.Group
	)
	g.SetLimit(historyFetchLimit)
	for _, m := range members {
		userID := m.UserID
		g.Go(func() error {
			recs, err := s.workouts.ListByUser(ctx, userID)
			if err != nil {
				s.logger.Warn("member workouts unavailable, ranking on empty history",
					slog.String("team_id", teamID), slog.String("user_id", userID), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			out[userID] = recs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
