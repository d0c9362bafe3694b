package team

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct{ id string }

func (g staticIDs) NewID() string { return g.id }

type hookCounter struct{ teams []string }

func (h *hookCounter) TeamChanged(_ context.Context, teamID string) {
	h.teams = append(h.teams, teamID)
}

// failingConfigRepo wraps a repository and fails ranking config reads.
type failingConfigRepo struct {
	Repository
	err error
}

func (f failingConfigRepo) GetRankingConfig(context.Context, string) (RankingConfig, error) {
	return RankingConfig{}, f.err
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, fixedClock{now: testNow}, staticIDs{id: "team-1"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func seedTeam(t *testing.T, svc *Service) Team {
	t.Helper()
	ctx := context.Background()
	tm, err := svc.Create(ctx, CreateInput{Name: "Morning Crew", CoachID: "coach", DisplayName: "Coach"})
	require.NoError(t, err)
	for _, id := range []string{"a", "b"} {
		tm, err = svc.PutMember(ctx, "coach", tm.ID, Member{UserID: id, DisplayName: id})
		require.NoError(t, err)
	}
	return tm
}

func TestCreateMakesCallerCoach(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	tm := seedTeam(t, svc)

	assert.Equal(t, "team-1", tm.ID)
	assert.True(t, tm.IsCoach("coach"))
	assert.False(t, tm.IsCoach("a"))
	assert.Len(t, tm.Participants(), 2)

	teams, err := svc.TeamsForUser(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Morning Crew", teams[0].Name)

	_, err = svc.Create(context.Background(), CreateInput{CoachID: "coach"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsMember(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	tm := seedTeam(t, svc)
	ctx := context.Background()

	ok, err := svc.IsMember(ctx, tm.ID, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsMember(ctx, tm.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsMember(ctx, "missing", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRosterChangesRequireCoach(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	tm := seedTeam(t, svc)
	ctx := context.Background()

	_, err := svc.PutMember(ctx, "a", tm.ID, Member{UserID: "c"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemoveMember(ctx, "a", tm.ID, "b")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemoveMember(ctx, "coach", tm.ID, "coach")
	assert.ErrorIs(t, err, ErrInvalidInput)

	updated, err := svc.RemoveMember(ctx, "coach", tm.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"coach", "a"}, updated.MemberIDs())

	_, err = svc.RemoveMember(ctx, "coach", tm.ID, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRankingConfigDefaults(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	tm := seedTeam(t, svc)

	cfg := svc.RankingConfig(context.Background(), tm.ID)
	assert.Equal(t, DefaultRankingConfig(), cfg)

	broken := newTestService(t, failingConfigRepo{Repository: NewMemoryRepository(), err: errors.New("unavailable")})
	assert.Equal(t, DefaultRankingConfig(), broken.RankingConfig(context.Background(), "any"))
}

func TestUpdateRankingConfig(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	tm := seedTeam(t, svc)
	hook := &hookCounter{}
	svc.AddHook(hook)
	ctx := context.Background()

	manual := RankingConfig{Mode: ModeManual, ManualOrder: []string{"b", "gone", "a"}}

	_, err := svc.UpdateRankingConfig(ctx, "a", tm.ID, manual)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateRankingConfig(ctx, "coach", "missing", manual)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateRankingConfig(ctx, "coach", tm.ID, RankingConfig{Mode: "random"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	saved, err := svc.UpdateRankingConfig(ctx, "coach", tm.ID, manual)
	require.NoError(t, err)
	assert.Equal(t, MetricTotalMinutes, saved.AutomaticMetric)
	assert.Equal(t, "coach", saved.UpdatedBy)
	assert.Equal(t, []string{tm.ID}, hook.teams)

	got := svc.RankingConfig(ctx, tm.ID)
	assert.Equal(t, ModeManual, got.Mode)
	assert.Equal(t, []string{"b", "gone", "a"}, got.ManualOrder)
}

func TestRankingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RankingConfig
		wantErr bool
	}{
		{name: "default", cfg: DefaultRankingConfig()},
		{name: "manual", cfg: RankingConfig{Mode: ModeManual, AutomaticMetric: MetricRuleBasedScore, ManualOrder: []string{"a"}}},
		{name: "bad mode", cfg: RankingConfig{Mode: "x", AutomaticMetric: MetricTotalMinutes}, wantErr: true},
		{name: "bad metric", cfg: RankingConfig{Mode: ModeAutomatic, AutomaticMetric: "steps"}, wantErr: true},
		{name: "blank manual id", cfg: RankingConfig{Mode: ModeManual, AutomaticMetric: MetricTotalWorkouts, ManualOrder: []string{" "}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
