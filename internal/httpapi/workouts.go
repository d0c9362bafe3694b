package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/teamfit-service/internal/workout"
	apierrors "github.com/focusnest/teamfit-service/shared/errors"
)

type logWorkoutRequest struct {
	TeamID          string     `json:"team_id" validate:"max=128"`
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes int        `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Type            string     `json:"type" validate:"max=64"`
}

func (h *handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	items, err := h.Workouts.ListByUser(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []workout.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total_items": len(items)})
}

func (h *handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req logWorkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	rec, err := h.Workouts.Log(ctx, workout.LogInput{
		UserID:          userID,
		TeamID:          req.TeamID,
		OccurredAt:      req.OccurredAt,
		DurationMinutes: req.DurationMinutes,
		Type:            req.Type,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	if err := h.Workouts.Delete(ctx, userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
