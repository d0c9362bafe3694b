package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
	apierrors "github.com/focusnest/teamfit-service/shared/errors"
)

type createTeamRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	DisplayName string `json:"display_name" validate:"max=80"`
}

type putMemberRequest struct {
	DisplayName string `json:"display_name" validate:"max=80"`
	Role        string `json:"role" validate:"omitempty,oneof=participant coach"`
}

type rankingConfigRequest struct {
	Mode            string   `json:"mode" validate:"required,oneof=automatic manual"`
	AutomaticMetric string   `json:"automatic_metric" validate:"omitempty,oneof=total_workouts this_week_workouts total_minutes rule_based_score"`
	ManualOrder     []string `json:"manual_order" validate:"max=500,dive,required,max=128"`
}

func (h *handler) listMyTeams(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	teams, err := h.Teams.TeamsForUser(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if teams == nil {
		teams = []team.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": teams})
}

func (h *handler) createTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req createTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	t, err := h.Teams.Create(ctx, team.CreateInput{Name: req.Name, CoachID: userID, DisplayName: req.DisplayName})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *handler) getTeam(w http.ResponseWriter, r *http.Request) {
	t, ok := h.memberTeam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) putMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req putMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	t, err := h.Teams.PutMember(ctx, userID, chi.URLParam(r, "teamID"), team.Member{
		UserID:      chi.URLParam(r, "userID"),
		DisplayName: req.DisplayName,
		Role:        team.Role(req.Role),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) removeMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	t, err := h.Teams.RemoveMember(ctx, userID, chi.URLParam(r, "teamID"), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) listTeamWorkouts(w http.ResponseWriter, r *http.Request) {
	t, ok := h.memberTeam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	items, err := h.Workouts.ListByTeam(ctx, t.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []workout.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total_items": len(items)})
}

func (h *handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	t, ok := h.memberTeam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	board, err := h.Leaderboards.Leaderboard(ctx, t.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) getRankingConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := h.memberTeam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, h.Teams.RankingConfig(ctx, t.ID))
}

func (h *handler) putRankingConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req rankingConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	cfg, err := h.Teams.UpdateRankingConfig(ctx, userID, chi.URLParam(r, "teamID"), team.RankingConfig{
		Mode:            team.RankingMode(req.Mode),
		AutomaticMetric: team.Metric(req.AutomaticMetric),
		ManualOrder:     req.ManualOrder,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// memberTeam loads the route's team and ensures the caller belongs to it.
func (h *handler) memberTeam(w http.ResponseWriter, r *http.Request) (team.Team, bool) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return team.Team{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	t, err := h.Teams.Get(ctx, chi.URLParam(r, "teamID"))
	if err != nil {
		respondServiceError(w, r, err)
		return team.Team{}, false
	}
	if _, member := t.Member(userID); !member {
		writeError(w, r, apierrors.CodeForbidden, "not a member of this team")
		return team.Team{}, false
	}
	return t, true
}
