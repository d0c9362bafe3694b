package achievement

import (
	"sort"
	"time"

	"github.com/focusnest/teamfit-service/internal/workout"
)

const secondsPerDay = 24 * 60 * 60

// dayNumber maps t to a sequential calendar-day index in loc.
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	unix := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	day := unix / secondsPerDay
	if unix%secondsPerDay != 0 && unix < 0 {
		day--
	}
	return day
}

// ActiveDays returns the distinct calendar days, in asOf's location, on which the
// history has a workout, sorted ascending. Records without a timestamp and records
// after asOf's day are skipped.
func ActiveDays(history []workout.Record, asOf time.Time) []int64 {
	loc := asOf.Location()
	limit := dayNumber(asOf, loc)

	set := make(map[int64]struct{}, len(history))
	for _, rec := range history {
		if !rec.HasTimestamp() {
			continue
		}
		day := dayNumber(rec.OccurredAt, loc)
		if day > limit {
			continue
		}
		set[day] = struct{}{}
	}

	days := make([]int64, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// CurrentStreak counts consecutive active days ending today or yesterday, relative to asOf.
// A streak whose last workout was yesterday is still alive until today ends.
func CurrentStreak(history []workout.Record, asOf time.Time) int {
	return currentStreakFromDays(ActiveDays(history, asOf), dayNumber(asOf, asOf.Location()))
}

func currentStreakFromDays(days []int64, today int64) int {
	if len(days) == 0 {
		return 0
	}
	last := days[len(days)-1]
	if today-last > 1 {
		return 0
	}

	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i]-days[i-1] != 1 {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive active days up to asOf's day.
func LongestStreak(history []workout.Record, asOf time.Time) int {
	return longestStreakFromDays(ActiveDays(history, asOf))
}

func longestStreakFromDays(days []int64) int {
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// WeekendDays counts distinct Saturdays and Sundays with a workout, up to asOf's day.
func WeekendDays(history []workout.Record, asOf time.Time) int {
	loc := asOf.Location()
	limit := dayNumber(asOf, loc)

	seen := make(map[int64]struct{})
	for _, rec := range history {
		if !rec.HasTimestamp() {
			continue
		}
		local := rec.OccurredAt.In(loc)
		if wd := local.Weekday(); wd != time.Saturday && wd != time.Sunday {
			continue
		}
		day := dayNumber(local, loc)
		if day > limit {
			continue
		}
		seen[day] = struct{}{}
	}
	return len(seen)
}
