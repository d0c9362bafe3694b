package achievement

import (
	"fmt"
	"strings"
)

// BadgeKind is the rule family a badge belongs to.
type BadgeKind int

const (
	KindStreak BadgeKind = iota + 1
	KindTotalWorkouts
	KindTotalMinutes
	KindFirstWorkout
	KindTeamJoin
	KindWeekendWorkouts
)

var kindNames = map[BadgeKind]string{
	KindStreak:          "streak",
	KindTotalWorkouts:   "total_workouts",
	KindTotalMinutes:    "total_minutes",
	KindFirstWorkout:    "first_workout",
	KindTeamJoin:        "team_join",
	KindWeekendWorkouts: "weekend_workouts",
}

func (k BadgeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Valid reports whether k is one of the known kinds.
func (k BadgeKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// MarshalText renders the kind by name in JSON payloads.
func (k BadgeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown badge kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// BadgeDefinition describes one badge in the catalog.
type BadgeDefinition struct {
	ID          BadgeID   `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Kind        BadgeKind `json:"kind"`
	Requirement int       `json:"requirement"`
}

// CatalogVersion changes whenever a badge is added or its rule changes.
const CatalogVersion = 1

var catalog = []BadgeDefinition{
	{ID: "first_workout", DisplayName: "First Step", Description: "Log your first workout.", Kind: KindFirstWorkout, Requirement: 1},
	{ID: "team_player", DisplayName: "Team Player", Description: "Join a team.", Kind: KindTeamJoin, Requirement: 1},
	{ID: "streak_3", DisplayName: "On a Roll", Description: "Work out 3 days in a row.", Kind: KindStreak, Requirement: 3},
	{ID: "streak_7", DisplayName: "Week Warrior", Description: "Work out 7 days in a row.", Kind: KindStreak, Requirement: 7},
	{ID: "streak_30", DisplayName: "Unstoppable", Description: "Work out 30 days in a row.", Kind: KindStreak, Requirement: 30},
	{ID: "workouts_10", DisplayName: "Getting Started", Description: "Log 10 workouts.", Kind: KindTotalWorkouts, Requirement: 10},
	{ID: "workouts_50", DisplayName: "Committed", Description: "Log 50 workouts.", Kind: KindTotalWorkouts, Requirement: 50},
	{ID: "workouts_100", DisplayName: "Centurion", Description: "Log 100 workouts.", Kind: KindTotalWorkouts, Requirement: 100},
	{ID: "minutes_500", DisplayName: "500 Minutes", Description: "Train for 500 minutes in total.", Kind: KindTotalMinutes, Requirement: 500},
	{ID: "minutes_1000", DisplayName: "1000 Minutes", Description: "Train for 1000 minutes in total.", Kind: KindTotalMinutes, Requirement: 1000},
	{ID: "minutes_5000", DisplayName: "5000 Minutes", Description: "Train for 5000 minutes in total.", Kind: KindTotalMinutes, Requirement: 5000},
	{ID: "weekend_warrior", DisplayName: "Weekend Warrior", Description: "Work out on 4 different weekend days.", Kind: KindWeekendWorkouts, Requirement: 4},
}

// Catalog returns a copy of the compiled-in badge catalog in display order.
func Catalog() []BadgeDefinition {
	out := make([]BadgeDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// ValidateCatalog checks ids are unique and non-empty, kinds are known and
// threshold requirements are positive.
func ValidateCatalog(defs []BadgeDefinition) error {
	var problems []string
	seen := make(map[BadgeID]struct{}, len(defs))

	for i, def := range defs {
		if strings.TrimSpace(string(def.ID)) == "" {
			problems = append(problems, fmt.Sprintf("badge %d has no id", i))
		} else if _, dup := seen[def.ID]; dup {
			problems = append(problems, fmt.Sprintf("badge %q is defined twice", def.ID))
		}
		seen[def.ID] = struct{}{}

		if !def.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("badge %q has unknown kind %d", def.ID, int(def.Kind)))
			continue
		}
		switch def.Kind {
		case KindStreak, KindTotalWorkouts, KindTotalMinutes, KindWeekendWorkouts:
			if def.Requirement < 1 {
				problems = append(problems, fmt.Sprintf("badge %q requires a positive requirement", def.ID))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}
