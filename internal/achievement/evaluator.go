package achievement

// Evaluator applies a validated catalog to user stats.
type Evaluator struct {
	defs []BadgeDefinition
}

// NewEvaluator validates defs and returns an evaluator for them.
func NewEvaluator(defs []BadgeDefinition) (*Evaluator, error) {
	if err := ValidateCatalog(defs); err != nil {
		return nil, err
	}
	copied := make([]BadgeDefinition, len(defs))
	copy(copied, defs)
	return &Evaluator{defs: copied}, nil
}

// Definitions returns the catalog the evaluator was built with.
func (e *Evaluator) Definitions() []BadgeDefinition {
	out := make([]BadgeDefinition, len(e.defs))
	copy(out, e.defs)
	return out
}

// Evaluate returns, in catalog order, the badges whose rule stats satisfies and that
// are not in alreadyEarned. It has no side effects.
func (e *Evaluator) Evaluate(stats UserStats, alreadyEarned []BadgeID) []BadgeID {
	earned := make(map[BadgeID]struct{}, len(alreadyEarned))
	for _, id := range alreadyEarned {
		earned[id] = struct{}{}
	}

	var out []BadgeID
	for _, def := range e.defs {
		if _, ok := earned[def.ID]; ok {
			continue
		}
		if Satisfied(def, stats) {
			out = append(out, def.ID)
		}
	}
	return out
}

// Satisfied reports whether stats meets def's rule.
func Satisfied(def BadgeDefinition, stats UserStats) bool {
	switch def.Kind {
	case KindStreak:
		return stats.CurrentStreak >= def.Requirement
	case KindTotalWorkouts:
		return stats.TotalWorkouts >= def.Requirement
	case KindTotalMinutes:
		return stats.TotalMinutes >= def.Requirement
	case KindFirstWorkout:
		return stats.TotalWorkouts >= 1
	case KindTeamJoin:
		return stats.HasTeam
	case KindWeekendWorkouts:
		return stats.WeekendWorkouts >= def.Requirement
	default:
		return false
	}
}
