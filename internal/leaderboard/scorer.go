package leaderboard

import "github.com/focusnest/teamfit-service/internal/workout"

// ScoreContext carries the per-member state a score depends on.
type ScoreContext struct {
	StreakAtTime int
}

// Scorer turns one workout into points. Effort is a base value plus a step per ten
// minutes; the streak adds a percentage bonus that stops growing at StreakCap days.
type Scorer struct {
	BasePoints         int
	PointsPerTenMin    int
	StreakBonusPercent int
	StreakCap          int
}

// DefaultScorer returns the weights used by the service.
func DefaultScorer() Scorer {
	return Scorer{
		BasePoints:         10,
		PointsPerTenMin:    2,
		StreakBonusPercent: 5,
		StreakCap:          20,
	}
}

// Score is deterministic, never negative, non-decreasing in duration, and never
// lower with a streak than without one.
func (s Scorer) Score(rec workout.Record, sc ScoreContext) int {
	effort := s.BasePoints + s.PointsPerTenMin*(rec.Minutes()/10)
	if effort < 0 {
		effort = 0
	}

	streak := sc.StreakAtTime
	if streak < 0 {
		streak = 0
	}
	if streak > s.StreakCap {
		streak = s.StreakCap
	}
	bonus := s.StreakBonusPercent * streak
	if bonus < 0 {
		bonus = 0
	}
	return effort * (100 + bonus) / 100
}
