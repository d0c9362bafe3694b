package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/focusnest/teamfit-service/internal/achievement"
	"github.com/focusnest/teamfit-service/internal/leaderboard"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
	sharedauth "github.com/focusnest/teamfit-service/shared/auth"
	apierrors "github.com/focusnest/teamfit-service/shared/errors"
)

const (
	serviceTimeout  = 10 * time.Second
	maxPayloadBytes = 64 << 10
)

var validate = validator.New()

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Workouts     *workout.Service
	Teams        *team.Service
	Achievements *achievement.Service
	Leaderboards *leaderboard.Service
}

type handler struct {
	Services
	logger *slog.Logger
}

// RegisterRoutes mounts the v1 API. Every route requires an authenticated user.
func RegisterRoutes(r chi.Router, svcs Services, verifier sharedauth.Verifier, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{Services: svcs, logger: logger}

	r.Route("/v1", func(r chi.Router) {
		r.Use(sharedauth.Middleware(verifier))

		r.Route("/workouts", func(r chi.Router) {
			r.Get("/", h.listWorkouts)
			r.Post("/", h.logWorkout)
			r.Delete("/{id}", h.deleteWorkout)
		})

		r.Get("/streaks/current", h.currentStreak)
		r.Get("/badges", h.listBadges)

		r.Route("/achievements", func(r chi.Router) {
			r.Get("/me", h.myAchievements)
			r.Post("/evaluate", h.evaluateAchievements)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.listMyTeams)
			r.Post("/", h.createTeam)
			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", h.getTeam)
				r.Put("/members/{userID}", h.putMember)
				r.Delete("/members/{userID}", h.removeMember)
				r.Get("/workouts", h.listTeamWorkouts)
				r.Get("/leaderboard", h.getLeaderboard)
				r.Get("/ranking-config", h.getRankingConfig)
				r.Put("/ranking-config", h.putRankingConfig)
			})
		})
	})
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		writeError(w, r, apierrors.CodeNotFound, "workout not found")
	case errors.Is(err, team.ErrNotFound):
		writeError(w, r, apierrors.CodeNotFound, "team not found")
	case errors.Is(err, team.ErrForbidden), errors.Is(err, workout.ErrForbidden):
		writeError(w, r, apierrors.CodeForbidden, err.Error())
	case errors.Is(err, workout.ErrConflict):
		writeError(w, r, apierrors.CodeConflict, "workout already exists")
	case errors.Is(err, workout.ErrInvalidInput), errors.Is(err, team.ErrInvalidInput):
		msg := strings.TrimSpace(err.Error())
		if i := strings.Index(msg, ":"); i >= 0 {
			msg = strings.TrimSpace(msg[i+1:])
		}
		writeError(w, r, apierrors.CodeBadRequest, msg)
	default:
		writeError(w, r, apierrors.CodeInternal, "internal server error")
	}
}

func (h *handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := sharedauth.UserID(r)
	if userID == "" {
		writeError(w, r, apierrors.CodeUnauthorized, "missing user ID")
		return "", false
	}
	return userID, true
}

// decodeJSON reads a bounded JSON body into dst and validates its tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s fails %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, apierrors.ToStatusCode(code), apierrors.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
