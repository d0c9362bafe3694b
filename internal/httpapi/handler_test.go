package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/teamfit-service/internal/achievement"
	"github.com/focusnest/teamfit-service/internal/leaderboard"
	"github.com/focusnest/teamfit-service/internal/metrics"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
	sharedauth "github.com/focusnest/teamfit-service/shared/auth"
	apierrors "github.com/focusnest/teamfit-service/shared/errors"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (c *counterIDs) NewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return "id-" + strconv.Itoa(c.n)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.New()
	ids := &counterIDs{}

	workouts, err := workout.NewService(workout.NewMemoryRepository(), fixedClock{}, ids, logger)
	require.NoError(t, err)
	teams, err := team.NewService(team.NewMemoryRepository(), fixedClock{}, ids, logger)
	require.NoError(t, err)
	evaluator, err := achievement.NewEvaluator(achievement.Catalog())
	require.NoError(t, err)
	achievements, err := achievement.NewService(achievement.Options{
		History:   workouts,
		Teams:     teams,
		Store:     achievement.NewRetryingStore(achievement.NewMemoryStore(), 3),
		Evaluator: evaluator,
		Clock:     fixedClock{},
		Location:  time.UTC,
		Metrics:   collector,
		Logger:    logger,
	})
	require.NoError(t, err)
	boards, err := leaderboard.NewService(leaderboard.Options{
		Teams:    teams,
		Workouts: workouts,
		Clock:    fixedClock{},
		Location: time.UTC,
		Metrics:  collector,
		Logger:   logger,
	})
	require.NoError(t, err)

	workouts.RequireMembership(teams)
	workouts.AddHook(achievements)
	workouts.AddHook(boards)
	teams.AddHook(boards)

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{Mode: sharedauth.ModeNoop})
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterRoutes(r, Services{Workouts: workouts, Teams: teams, Achievements: achievements, Leaderboards: boards}, verifier, logger)
	return r
}

func do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRequiresAuthentication(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/v1/workouts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogWorkoutAwardsBadgesAndStreak(t *testing.T) {
	h := newTestRouter(t)

	for _, daysAgo := range []int{2, 1, 0} {
		at := testNow.AddDate(0, 0, -daysAgo)
		rec := do(t, h, http.MethodPost, "/v1/workouts", "u1", map[string]any{
			"occurred_at":      at,
			"duration_minutes": 30,
			"type":             "run",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/v1/streaks/current", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	streak := decode[map[string]int](t, rec)
	assert.Equal(t, 3, streak["current_streak"])
	assert.Equal(t, 3, streak["longest_streak"])

	rec = do(t, h, http.MethodGet, "/v1/achievements/me", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[struct {
		Earned         []string `json:"earned"`
		CatalogVersion int      `json:"catalog_version"`
		Badges         []struct {
			ID     string `json:"id"`
			Kind   string `json:"kind"`
			Earned bool   `json:"earned"`
		} `json:"badges"`
	}](t, rec)
	assert.Equal(t, []string{"first_workout", "streak_3"}, summary.Earned)
	assert.Equal(t, achievement.CatalogVersion, summary.CatalogVersion)
	require.NotEmpty(t, summary.Badges)
	assert.Equal(t, "first_workout", summary.Badges[0].ID)
	assert.Equal(t, "first_workout", summary.Badges[0].Kind)
	assert.True(t, summary.Badges[0].Earned)

	rec = do(t, h, http.MethodPost, "/v1/achievements/evaluate", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[achievement.Result](t, rec)
	assert.Empty(t, again.NewlyEarned)
}

func TestLogWorkoutValidation(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/workouts", "u1", map[string]any{"duration_minutes": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[apierrors.ErrorResponse](t, rec)
	assert.Equal(t, apierrors.CodeBadRequest, body.Code)

	rec = do(t, h, http.MethodPost, "/v1/workouts", "u1", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/workouts", "u1", map[string]any{"team_id": "missing", "duration_minutes": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteWorkout(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/workouts", "u1", map[string]any{"duration_minutes": 10})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[workout.Record](t, rec)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/workouts/"+created.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/workouts/"+created.ID, "u1", nil).Code)

	list := decode[struct {
		Items []workout.Record `json:"items"`
	}](t, do(t, h, http.MethodGet, "/v1/workouts", "u1", nil))
	assert.Empty(t, list.Items)
}

func TestTeamLeaderboardFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/teams", "coach", map[string]any{"name": "Crew", "display_name": "Coach"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tm := decode[team.Team](t, rec)
	base := "/v1/teams/" + tm.ID

	for _, id := range []string{"B", "A", "C"} {
		rec = do(t, h, http.MethodPut, base+"/members/"+id, "coach", map[string]any{"display_name": id})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPut, base+"/members/D", "A", map[string]any{}).Code)

	for id, minutes := range map[string]int{"A": 20, "B": 50, "C": 35} {
		rec = do(t, h, http.MethodPost, "/v1/workouts", id, map[string]any{"team_id": tm.ID, "duration_minutes": minutes})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, base+"/leaderboard", "A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[leaderboard.Board](t, rec)
	assert.Equal(t, team.ModeAutomatic, board.Mode)
	assert.Equal(t, []string{"B", "C", "A"}, entryIDs(board.Entries))

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, base+"/leaderboard", "stranger", nil).Code)

	manual := map[string]any{"mode": "manual", "manual_order": []string{"A", "Z", "B"}}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPut, base+"/ranking-config", "A", manual).Code)
	rec = do(t, h, http.MethodPut, base+"/ranking-config", "coach", manual)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, base+"/ranking-config", "B", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[team.RankingConfig](t, rec)
	assert.Equal(t, team.ModeManual, cfg.Mode)

	board = decode[leaderboard.Board](t, do(t, h, http.MethodGet, base+"/leaderboard", "A", nil))
	assert.Equal(t, []string{"A", "B", "C"}, entryIDs(board.Entries))
	assert.Equal(t, []int{1, 2, 3}, []int{board.Entries[0].Rank, board.Entries[1].Rank, board.Entries[2].Rank})

	rec = do(t, h, http.MethodPut, base+"/ranking-config", "coach", map[string]any{"mode": "chaos"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeamWorkoutsAndUntaggedHistory(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/teams", "coach", map[string]any{"name": "Crew"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tm := decode[team.Team](t, rec)
	base := "/v1/teams/" + tm.ID
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/members/A", "coach", map[string]any{}).Code)

	rec = do(t, h, http.MethodPost, "/v1/workouts", "stranger", map[string]any{"team_id": tm.ID, "duration_minutes": 30})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/workouts", "A", map[string]any{"duration_minutes": 40}).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/workouts", "A", map[string]any{"team_id": tm.ID, "duration_minutes": 20}).Code)

	feed := decode[struct {
		Items []workout.Record `json:"items"`
	}](t, do(t, h, http.MethodGet, base+"/workouts", "A", nil))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, 20, feed.Items[0].DurationMinutes)

	board := decode[leaderboard.Board](t, do(t, h, http.MethodGet, base+"/leaderboard", "A", nil))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 60, board.Entries[0].MetricValue)
}

func TestListBadges(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/v1/badges", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Version int               `json:"version"`
		Badges  []json.RawMessage `json:"badges"`
	}](t, rec)
	assert.Equal(t, achievement.CatalogVersion, body.Version)
	assert.Len(t, body.Badges, len(achievement.Catalog()))
}

func entryIDs(entries []leaderboard.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.MemberID
	}
	return out
}
