package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Service orchestrates team rosters and ranking configuration.
type Service struct {
	repo   Repository
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger

	mu    sync.RWMutex
	hooks []ConfigHook
}

// NewService constructs a Service instance with the provided collaborators.
func NewService(repo Repository, clock Clock, ids IDGenerator, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, ids: ids, logger: logger}, nil
}

// AddHook registers an observer notified when a roster or ranking configuration changes.
func (s *Service) AddHook(hook ConfigHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Get returns a team by id.
func (s *Service) Get(ctx context.Context, teamID string) (Team, error) {
	if teamID == "" {
		return Team{}, ErrNotFound
	}
	return s.repo.Get(ctx, teamID)
}

// ListIDs returns every known team id.
func (s *Service) ListIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDs(ctx)
}

// TeamsForUser returns the teams the user belongs to in any role.
func (s *Service) TeamsForUser(ctx context.Context, userID string) ([]Team, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.TeamsForUser(ctx, userID)
}

// IsMember reports whether the user is on the team's roster.
func (s *Service) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	t, err := s.Get(ctx, teamID)
	if err != nil {
		return false, err
	}
	_, ok := t.Member(userID)
	return ok, nil
}

// Create registers a new team with the caller as its first coach.
func (s *Service) Create(ctx context.Context, input CreateInput) (Team, error) {
	if err := input.Validate(); err != nil {
		return Team{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	now := s.clock.Now().UTC()
	t := Team{
		ID:   s.ids.NewID(),
		Name: strings.TrimSpace(input.Name),
		Members: []Member{{
			UserID:      input.CoachID,
			DisplayName: strings.TrimSpace(input.DisplayName),
			Role:        RoleCoach,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, t); err != nil {
		return Team{}, err
	}
	return t, nil
}

// PutMember adds or replaces a member of the team. Only coaches may change the roster.
func (s *Service) PutMember(ctx context.Context, coachID, teamID string, member Member) (Team, error) {
	member.UserID = strings.TrimSpace(member.UserID)
	member.DisplayName = strings.TrimSpace(member.DisplayName)
	if member.Role == "" {
		member.Role = RoleParticipant
	}
	if member.UserID == "" || !member.Role.Valid() {
		return Team{}, fmt.Errorf("%w: member requires user_id and a participant or coach role", ErrInvalidInput)
	}

	t, err := s.authorizeCoach(ctx, coachID, teamID)
	if err != nil {
		return Team{}, err
	}

	replaced := false
	for i, m := range t.Members {
		if m.UserID == member.UserID {
			t.Members[i] = member
			replaced = true
			break
		}
	}
	if !replaced {
		t.Members = append(t.Members, member)
	}
	if countCoaches(t.Members) == 0 {
		return Team{}, fmt.Errorf("%w: a team needs at least one coach", ErrInvalidInput)
	}

	t.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Upsert(ctx, t); err != nil {
		return Team{}, err
	}
	s.notify(ctx, teamID)
	return t, nil
}

// RemoveMember drops a member from the roster. Ranking configurations keep the
// id and skip it when composing.
func (s *Service) RemoveMember(ctx context.Context, coachID, teamID, userID string) (Team, error) {
	t, err := s.authorizeCoach(ctx, coachID, teamID)
	if err != nil {
		return Team{}, err
	}

	kept := t.Members[:0]
	found := false
	for _, m := range t.Members {
		if m.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return Team{}, ErrNotFound
	}
	if countCoaches(kept) == 0 {
		return Team{}, fmt.Errorf("%w: a team needs at least one coach", ErrInvalidInput)
	}
	t.Members = kept

	t.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Upsert(ctx, t); err != nil {
		return Team{}, err
	}
	s.notify(ctx, teamID)
	return t, nil
}

// RankingConfig returns the team's configuration, falling back to the defaults when
// none is stored or the store cannot be read.
func (s *Service) RankingConfig(ctx context.Context, teamID string) RankingConfig {
	cfg, err := s.repo.GetRankingConfig(ctx, teamID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return DefaultRankingConfig()
	default:
		s.logger.Warn("ranking config unavailable, using defaults",
			slog.String("team_id", teamID), slog.Any("error", err))
		return DefaultRankingConfig()
	}

	if cfg.Validate() != nil {
		s.logger.Warn("stored ranking config invalid, using defaults", slog.String("team_id", teamID))
		return DefaultRankingConfig()
	}
	if cfg.ManualOrder == nil {
		cfg.ManualOrder = []string{}
	}
	return cfg
}

// UpdateRankingConfig replaces the team's configuration. Only coaches of the team may do so.
func (s *Service) UpdateRankingConfig(ctx context.Context, coachID, teamID string, cfg RankingConfig) (RankingConfig, error) {
	if cfg.AutomaticMetric == "" {
		cfg.AutomaticMetric = DefaultRankingConfig().AutomaticMetric
	}
	if cfg.ManualOrder == nil {
		cfg.ManualOrder = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return RankingConfig{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	if _, err := s.authorizeCoach(ctx, coachID, teamID); err != nil {
		return RankingConfig{}, err
	}

	cfg.UpdatedAt = s.clock.Now().UTC()
	cfg.UpdatedBy = coachID
	if err := s.repo.SaveRankingConfig(ctx, teamID, cfg); err != nil {
		return RankingConfig{}, err
	}

	s.logger.Info("ranking config updated",
		slog.String("team_id", teamID),
		slog.String("mode", string(cfg.Mode)),
		slog.String("metric", string(cfg.AutomaticMetric)))
	s.notify(ctx, teamID)
	return cfg, nil
}

func (s *Service) authorizeCoach(ctx context.Context, coachID, teamID string) (Team, error) {
	if teamID == "" {
		return Team{}, ErrNotFound
	}
	t, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	if coachID == "" || !t.IsCoach(coachID) {
		return Team{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) notify(ctx context.Context, teamID string) {
	s.mu.RLock()
	hooks := make([]ConfigHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	for _, hook := range hooks {
		hook.TeamChanged(ctx, teamID)
	}
}

func countCoaches(members []Member) int {
	n := 0
	for _, m := range members {
		if m.Role == RoleCoach {
			n++
		}
	}
	return n
}
