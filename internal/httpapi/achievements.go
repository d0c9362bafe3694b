package httpapi

import (
	"context"
	"net/http"

	"github.com/focusnest/teamfit-service/internal/achievement"
)

type badgeView struct {
	achievement.BadgeDefinition
	Earned bool `json:"earned"`
}

type achievementsResponse struct {
	achievement.Result
	Badges         []badgeView `json:"badges"`
	CatalogVersion int         `json:"catalog_version"`
}

func (h *handler) currentStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	res, err := h.Achievements.Summary(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"current_streak": res.CurrentStreak,
		"longest_streak": res.LongestStreak,
	})
}

func (h *handler) listBadges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": achievement.CatalogVersion,
		"badges":  h.Achievements.Catalog(),
	})
}

func (h *handler) myAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	res, err := h.Achievements.Summary(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.achievementsView(res))
}

func (h *handler) evaluateAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	res, err := h.Achievements.Refresh(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Deferred {
		status = http.StatusAccepted
	}
	writeJSON(w, status, h.achievementsView(res))
}

func (h *handler) achievementsView(res achievement.Result) achievementsResponse {
	earned := make(map[achievement.BadgeID]struct{}, len(res.Earned))
	for _, id := range res.Earned {
		earned[id] = struct{}{}
	}
	catalog := h.Achievements.Catalog()
	views := make([]badgeView, 0, len(catalog))
	for _, def := range catalog {
		_, ok := earned[def.ID]
		views = append(views, badgeView{BadgeDefinition: def, Earned: ok})
	}
	return achievementsResponse{Result: res, Badges: views, CatalogVersion: achievement.CatalogVersion}
}
