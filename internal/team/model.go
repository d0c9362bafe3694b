package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role describes what a member does within a team.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleCoach       Role = "coach"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleParticipant || r == RoleCoach
}

// Member is a user's membership in a team.
type Member struct {
	UserID      string `json:"user_id" firestore:"user_id"`
	DisplayName string `json:"display_name" firestore:"display_name"`
	Role        Role   `json:"role" firestore:"role"`
}

// Team is a roster of members. Member order is the roster order shown to coaches.
type Team struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	Members   []Member  `json:"members" firestore:"members"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// Member returns the membership of userID, if any.
func (t Team) Member(userID string) (Member, bool) {
	for _, m := range t.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// IsCoach reports whether userID coaches this team.
func (t Team) IsCoach(userID string) bool {
	m, ok := t.Member(userID)
	return ok && m.Role == RoleCoach
}

// Participants returns the non-coach members in roster order.
func (t Team) Participants() []Member {
	out := make([]Member, 0, len(t.Members))
	for _, m := range t.Members {
		if m.Role == RoleParticipant {
			out = append(out, m)
		}
	}
	return out
}

// MemberIDs lists every member id in roster order.
func (t Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// RankingMode selects how a leaderboard is ordered.
type RankingMode string

const (
	ModeAutomatic RankingMode = "automatic"
	ModeManual    RankingMode = "manual"
)

// Metric selects the value automatic rankings sort by.
type Metric string

const (
	MetricTotalWorkouts    Metric = "total_workouts"
	MetricThisWeekWorkouts Metric = "this_week_workouts"
	MetricTotalMinutes     Metric = "total_minutes"
	MetricRuleBasedScore   Metric = "rule_based_score"
)

// Valid reports whether the metric is known.
func (m Metric) Valid() bool {
	switch m {
	case MetricTotalWorkouts, MetricThisWeekWorkouts, MetricTotalMinutes, MetricRuleBasedScore:
		return true
	}
	return false
}

// RankingConfig is the coach-controlled leaderboard configuration of a team.
// ManualOrder may reference members who have since left; readers skip them.
type RankingConfig struct {
	Mode            RankingMode `json:"mode" firestore:"mode"`
	AutomaticMetric Metric      `json:"automatic_metric" firestore:"automatic_metric"`
	ManualOrder     []string    `json:"manual_order" firestore:"manual_order"`
	UpdatedAt       time.Time   `json:"updated_at,omitempty" firestore:"updated_at"`
	UpdatedBy       string      `json:"updated_by,omitempty" firestore:"updated_by"`
}

// DefaultRankingConfig is applied when a team has no stored configuration.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		Mode:            ModeAutomatic,
		AutomaticMetric: MetricTotalMinutes,
		ManualOrder:     []string{},
	}
}

// Validate ensures the configuration is usable.
func (c RankingConfig) Validate() error {
	var problems []string

	if c.Mode != ModeAutomatic && c.Mode != ModeManual {
		problems = append(problems, fmt.Sprintf("mode %q must be automatic or manual", c.Mode))
	}
	if !c.AutomaticMetric.Valid() {
		problems = append(problems, fmt.Sprintf("automatic_metric %q is not supported", c.AutomaticMetric))
	}
	for i, id := range c.ManualOrder {
		if strings.TrimSpace(id) == "" {
			problems = append(problems, fmt.Sprintf("manual_order[%d] must not be empty", i))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// CreateInput captures the data required to create a team.
type CreateInput struct {
	Name        string
	CoachID     string
	DisplayName string
}

// Validate ensures the input fields meet the domain constraints.
func (i CreateInput) Validate() error {
	var problems []string
	name := strings.TrimSpace(i.Name)
	if name == "" {
		problems = append(problems, "name is required")
	}
	if len(name) > 80 {
		problems = append(problems, "name must be 80 characters or less")
	}
	if strings.TrimSpace(i.CoachID) == "" {
		problems = append(problems, "coach id is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Repository encapsulates persistence for teams and their ranking configuration.
type Repository interface {
	Get(ctx context.Context, teamID string) (Team, error)
	ListIDs(ctx context.Context) ([]string, error)
	TeamsForUser(ctx context.Context, userID string) ([]Team, error)
	Upsert(ctx context.Context, team Team) error
	// GetRankingConfig returns ErrNotFound when the team never stored a configuration.
	GetRankingConfig(ctx context.Context, teamID string) (RankingConfig, error)
	SaveRankingConfig(ctx context.Context, teamID string, cfg RankingConfig) error
}

// ConfigHook observes changes that affect how a team's leaderboard is composed.
type ConfigHook interface {
	TeamChanged(ctx context.Context, teamID string)
}

var (
	// ErrNotFound indicates the team or its configuration does not exist.
	ErrNotFound = errors.New("team not found")
	// ErrForbidden indicates the caller lacks the coach role for the team.
	ErrForbidden = errors.New("only team coaches may perform this action")
	// ErrInvalidInput indicates the provided data failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for new teams.
type IDGenerator interface {
	NewID() string
}
