package achievement

import (
	"time"

	"github.com/focusnest/teamfit-service/internal/workout"
)

// StatsFromHistory aggregates a user's history as of asOf. Totals include every
// record, even those without a timestamp; streak and weekend counts use only
// timestamped records up to asOf's day.
func StatsFromHistory(history []workout.Record, asOf time.Time, hasTeam bool) UserStats {
	stats := UserStats{
		TotalWorkouts:   len(history),
		CurrentStreak:   CurrentStreak(history, asOf),
		WeekendWorkouts: WeekendDays(history, asOf),
		HasTeam:         hasTeam,
	}
	for _, rec := range history {
		stats.TotalMinutes += rec.Minutes()
	}
	return stats
}
