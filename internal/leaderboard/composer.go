package leaderboard

import (
	"sort"
	"time"

	"github.com/focusnest/teamfit-service/internal/achievement"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
)

// Entry is one row of a leaderboard.
type Entry struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	MetricValue int    `json:"metric_value"`
	Rank        int    `json:"rank"`
}

const week = 7 * 24 * time.Hour

// Compose orders the team's participants. Coaches never appear. In automatic mode
// members are sorted by cfg.AutomaticMetric descending with ties broken by member id.
// In manual mode members follow cfg.ManualOrder, unknown ids are skipped and
// unlisted members follow in input order; the value shown is total workouts.
// Ranks are 1-based and contiguous.
func Compose(members []team.Member, workoutsByMember map[string][]workout.Record, cfg team.RankingConfig, asOf time.Time, scorer Scorer) []Entry {
	participants := make([]team.Member, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Role == team.RoleCoach {
			continue
		}
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		participants = append(participants, m)
	}

	var entries []Entry
	if cfg.Mode == team.ModeManual {
		entries = composeManual(participants, workoutsByMember, cfg.ManualOrder)
	} else {
		entries = composeAutomatic(participants, workoutsByMember, cfg.AutomaticMetric, asOf, scorer)
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func composeAutomatic(members []team.Member, byMember map[string][]workout.Record, metric team.Metric, asOf time.Time, scorer Scorer) []Entry {
	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, Entry{
			MemberID:    m.UserID,
			DisplayName: m.DisplayName,
			MetricValue: MetricValue(metric, byMember[m.UserID], asOf, scorer),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].MetricValue != entries[j].MetricValue {
			return entries[i].MetricValue > entries[j].MetricValue
		}
		return entries[i].MemberID < entries[j].MemberID
	})
	return entries
}

func composeManual(members []team.Member, byMember map[string][]workout.Record, order []string) []Entry {
	position := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}

	var listed, rest []team.Member
	for _, m := range members {
		if _, ok := position[m.UserID]; ok {
			listed = append(listed, m)
		} else {
			rest = append(rest, m)
		}
	}
	sort.SliceStable(listed, func(i, j int) bool {
		return position[listed[i].UserID] < position[listed[j].UserID]
	})

	entries := make([]Entry, 0, len(members))
	for _, m := range append(listed, rest...) {
		entries = append(entries, Entry{
			MemberID:    m.UserID,
			DisplayName: m.DisplayName,
			MetricValue: len(byMember[m.UserID]),
		})
	}
	return entries
}

// MetricValue computes one member's value for metric as of asOf. Stored configs are
// validated before use, so an unknown metric only reaches here from a direct caller;
// it scores 0 and the board falls back to member id order.
func MetricValue(metric team.Metric, history []workout.Record, asOf time.Time, scorer Scorer) int {
	switch metric {
	case team.MetricTotalWorkouts:
		return len(history)
	case team.MetricThisWeekWorkouts:
		from := asOf.Add(-week)
		n := 0
		for _, rec := range history {
			if !rec.HasTimestamp() {
				continue
			}
			if rec.OccurredAt.After(from) && !rec.OccurredAt.After(asOf) {
				n++
			}
		}
		return n
	case team.MetricRuleBasedScore:
		sc := ScoreContext{StreakAtTime: achievement.CurrentStreak(history, asOf)}
		total := 0
		for _, rec := range history {
			total += scorer.Score(rec, sc)
		}
		return total
	case team.MetricTotalMinutes:
		total := 0
		for _, rec := range history {
			total += rec.Minutes()
		}
		return total
	default:
		return 0
	}
}
