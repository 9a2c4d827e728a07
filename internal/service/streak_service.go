package service

import (
	"time"

	"treevut/internal/models"
)

// StreakMilestone is a fixed reward for reaching an exact streak length.
type StreakMilestone struct {
	Days   int
	Reward int
	Name   string
}

// StreakMilestones maps consecutive-day counts to bellota rewards. A
// milestone fires only on an exact match of the new streak length.
var StreakMilestones = []StreakMilestone{
	{Days: 7, Reward: 100, Name: "Semana Perfecta"},
	{Days: 14, Reward: 250, Name: "Dos Semanas Imparables"},
	{Days: 30, Reward: 500, Name: "Mes de Oro"},
	{Days: 60, Reward: 1000, Name: "Campeón de Dos Meses"},
	{Days: 90, Reward: 2000, Name: "Trimestre Legendario"},
	{Days: 180, Reward: 5000, Name: "Medio Año de Excelencia"},
	{Days: 365, Reward: 10000, Name: "Año de Maestría"},
}

const dateLayout = "2006-01-02"

// parseDay parses an ISO date at calendar-day granularity.
func parseDay(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween returns the signed number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// UpdateStreakOnFormalExpense advances the streak state machine for a new
// formal expense dated newDate (YYYY-MM-DD). It returns the updated record
// and the milestone reached, if any:
//
//   - no prior date: streak starts at 1
//   - same calendar day: unchanged (several formal expenses count once)
//   - exactly the next day: streak +1, milestone checked on exact match
//   - any gap or an earlier date: streak resets to 1 (the expense itself
//     starts a new streak)
func UpdateStreakOnFormalExpense(rec models.StreakRecord, newDate string) (models.StreakRecord, *StreakMilestone) {
	day, ok := parseDay(newDate)
	if !ok {
		return rec, nil
	}

	newStreak := rec.CurrentStreak
	var milestone *StreakMilestone

	prev, hasPrev := parseDay(rec.LastFormalExpenseDate)
	switch {
	case !hasPrev:
		newStreak = 1
	case daysBetween(prev, day) == 0:
		// same day, keep streak
	case daysBetween(prev, day) == 1:
		newStreak = rec.CurrentStreak + 1
		for i := range StreakMilestones {
			if StreakMilestones[i].Days == newStreak {
				milestone = &StreakMilestones[i]
				break
			}
		}
	default:
		newStreak = 1
	}

	longest := rec.LongestStreak
	if newStreak > longest {
		longest = newStreak
	}

	return models.StreakRecord{
		CurrentStreak:         newStreak,
		LongestStreak:         longest,
		LastFormalExpenseDate: newDate,
	}, milestone
}

// IsStreakBroken reports whether more than one calendar day elapsed since
// the last formal expense. Used by the idle checker; the reset itself is
// applied by the caller so the streak-lost notification fires once.
func IsStreakBroken(rec models.StreakRecord, now time.Time) bool {
	last, ok := parseDay(rec.LastFormalExpenseDate)
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return daysBetween(last, today) > 1
}

// NextMilestone returns the first milestone above the current streak, or
// nil when the table is exhausted.
func NextMilestone(currentStreak int) *StreakMilestone {
	for i := range StreakMilestones {
		if StreakMilestones[i].Days > currentStreak {
			return &StreakMilestones[i]
		}
	}
	return nil
}
