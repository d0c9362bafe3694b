package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Service orchestrates logging and querying workouts.
type Service struct {
	repo   Repository
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger

	mu         sync.RWMutex
	hooks      []LogHook
	membership MembershipChecker
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

// AddHook registers an observer notified after every successful log or delete.
func (s *Service) AddHook(hook LogHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// RequireMembership makes Log reject team tags the user is not a member of.
func (s *Service) RequireMembership(m MembershipChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.membership = m
}

// Log stores a new workout for the user. Hooks run after the record is
// persisted and cannot fail the call.
func (s *Service) Log(ctx context.Context, input LogInput) (Record, error) {
	if err := input.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	now := s.clock.Now().UTC()
	occurredAt := now
	if input.OccurredAt != nil && !input.OccurredAt.IsZero() {
		occurredAt = input.OccurredAt.UTC()
	}

	record := Record{
		ID:              s.ids.NewID(),
		UserID:          strings.TrimSpace(input.UserID),
		TeamID:          strings.TrimSpace(input.TeamID),
		OccurredAt:      occurredAt,
		DurationMinutes: input.DurationMinutes,
		Type:            strings.TrimSpace(input.Type),
		CreatedAt:       now,
	}

	if record.TeamID != "" {
		if err := s.checkMembership(ctx, record.TeamID, record.UserID); err != nil {
			return Record{}, err
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, err
	}

	s.logger.Debug("workout logged",
		slog.String("user_id", record.UserID),
		slog.String("workout_id", record.ID),
		slog.Int("duration_minutes", record.DurationMinutes))

	for _, hook := range s.snapshotHooks() {
		s.runHook(func() { hook.WorkoutLogged(ctx, record) })
	}
	return record, nil
}

// Delete removes a workout owned by the user.
func (s *Service) Delete(ctx context.Context, userID, workoutID string) error {
	if userID == "" || workoutID == "" {
		return ErrNotFound
	}
	record, err := s.repo.Delete(ctx, userID, workoutID)
	if err != nil {
		return err
	}
	for _, hook := range s.snapshotHooks() {
		s.runHook(func() { hook.WorkoutDeleted(ctx, record) })
	}
	return nil
}

// ListByUser returns the user's workouts, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	return s.repo.ListByUser(ctx, userID)
}

// ListByTeam returns the team's workouts, oldest first.
func (s *Service) ListByTeam(ctx context.Context, teamID string) ([]Record, error) {
	if teamID == "" {
		return nil, ErrNotFound
	}
	return s.repo.ListByTeam(ctx, teamID)
}

func (s *Service) checkMembership(ctx context.Context, teamID, userID string) error {
	s.mu.RLock()
	m := s.membership
	s.mu.RUnlock()
	if m == nil {
		return nil
	}

	ok, err := m.IsMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrForbidden, teamID)
	}
	return nil
}

func (s *Service) snapshotHooks() []LogHook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LogHook, len(s.hooks))
	copy(out, s.hooks)
	return out
}

func (s *Service) runHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("workout hook panicked", slog.Any("panic", r))
		}
	}()
	fn()
}
