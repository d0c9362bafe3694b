package workout

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Record is one logged workout. Records are immutable once stored.
type Record struct {
	ID              string    `json:"id" firestore:"-"`
	UserID          string    `json:"user_id" firestore:"user_id"`
	TeamID          string    `json:"team_id,omitempty" firestore:"team_id"`
	OccurredAt      time.Time `json:"occurred_at" firestore:"occurred_at"`
	DurationMinutes int       `json:"duration_minutes" firestore:"duration_minutes"`
	Type            string    `json:"type" firestore:"type"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at"`
}

// HasTimestamp reports whether the record carries a usable occurrence time.
func (r Record) HasTimestamp() bool {
	return !r.OccurredAt.IsZero()
}

// Minutes returns the duration clamped to zero.
func (r Record) Minutes() int {
	if r.DurationMinutes < 0 {
		return 0
	}
	return r.DurationMinutes
}

const maxTypeLength = 64

// LogInput captures the data required to log a workout.
type LogInput struct {
	UserID          string
	TeamID          string
	OccurredAt      *time.Time
	DurationMinutes int
	Type            string
}

// Validate ensures the input fields meet the domain constraints.
func (i LogInput) Validate() error {
	var problems []string

	if strings.TrimSpace(i.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if i.DurationMinutes < 0 {
		problems = append(problems, "duration_minutes must be non-negative")
	}
	if len(strings.TrimSpace(i.Type)) > maxTypeLength {
		problems = append(problems, "type must be 64 characters or less")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Repository encapsulates persistence for workout records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	// Delete removes the record and returns it as it was stored.
	Delete(ctx context.Context, userID, workoutID string) (Record, error)
	// ListByUser returns every live record for the user ordered by OccurredAt ascending.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	// ListByTeam returns every live record tagged with the team ordered by OccurredAt ascending.
	ListByTeam(ctx context.Context, teamID string) ([]Record, error)
}

// LogHook observes successfully stored or deleted workouts.
type LogHook interface {
	WorkoutLogged(ctx context.Context, record Record)
	WorkoutDeleted(ctx context.Context, record Record)
}

// MembershipChecker confirms a user belongs to the team a workout is tagged with.
type MembershipChecker interface {
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// ErrNotFound indicates the requested workout does not exist for the user.
var ErrNotFound = errors.New("workout not found")

// ErrConflict indicates a duplicate identifier collision.
var ErrConflict = errors.New("workout already exists")

// ErrForbidden indicates the workout was tagged with a team the user is not part of.
var ErrForbidden = errors.New("not a member of this team")

// ErrInvalidInput indicates the provided data failed validation.
var ErrInvalidInput = errors.New("invalid input")

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// GroupByUser splits team records per user, preserving order.
func GroupByUser(records []Record) map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range records {
		out[r.UserID] = append(out[r.UserID], r)
	}
	return out
}
