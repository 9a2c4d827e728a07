package service

import (
	"time"

	"treevut/internal/models"
)

// allChallenges is the static challenge catalog.
var allChallenges = []models.Challenge{
	{ID: "onboarding_1", Title: "Tu Primer Gasto", Description: "Registra tu primer gasto para empezar tu senda.", Icon: "🎉", Type: models.ChallengeRegisterExpenses, Frequency: models.FrequencyOnce, Goal: 1, RewardBellotas: 10},
	{ID: "onboarding_2", Title: "Explorador de Gastos", Description: "Registra 5 gastos de cualquier tipo.", Icon: "🧭", Type: models.ChallengeRegisterExpenses, Frequency: models.FrequencyOnce, Goal: 5, RewardBellotas: 20},
	{ID: "onboarding_3", Title: "Define tu Meta", Description: "Establece tu primer presupuesto mensual.", Icon: "🎯", Type: models.ChallengeSetBudget, Frequency: models.FrequencyOnce, Goal: 1, RewardBellotas: 50},
	{ID: "weekly_1", Title: "Semana Activa", Description: "Registra al menos 10 gastos esta semana.", Icon: "🏃", Type: models.ChallengeRegisterExpenses, Frequency: models.FrequencyWeekly, Goal: 10, RewardBellotas: 30},
	{ID: "weekly_2", Title: "Gourmet de la Semana", Description: "Registra 5 gastos en la categoría Alimentación.", Icon: "🍔", Type: models.ChallengeRegisterInCategory, Frequency: models.FrequencyWeekly, Goal: 5, RewardBellotas: 25, CategoryGoal: models.CategoryFood},
	{ID: "weekly_3", Title: "Impulso a la Formalidad", Description: "Alcanza un 75% de formalidad en tus gastos de la semana.", Icon: "📈", Type: models.ChallengeReachFormality, Frequency: models.FrequencyWeekly, Goal: 75, RewardBellotas: 75},
	{ID: "monthly_1", Title: "Maratón de Registros", Description: "Registra 50 gastos este mes.", Icon: "🏁", Type: models.ChallengeRegisterExpenses, Frequency: models.FrequencyMonthly, Goal: 50, RewardBellotas: 150},
	{ID: "monthly_2", Title: "Héroe de la Formalidad", Description: "Mantén un índice de formalidad superior al 85% durante el mes.", Icon: "🦸", Type: models.ChallengeReachFormality, Frequency: models.FrequencyMonthly, Goal: 85, RewardBellotas: 200},
}

// AllChallenges returns the challenge catalog.
func AllChallenges() []models.Challenge {
	return allChallenges
}

// ChallengeByID looks up a catalog entry.
func ChallengeByID(id string) *models.Challenge {
	for i := range allChallenges {
		if allChallenges[i].ID == id {
			return &allChallenges[i]
		}
	}
	return nil
}

// periodStart returns the start day of the challenge's evaluation window:
// the epoch for once-challenges, Monday of the current week for weekly, the
// first of the month for monthly.
func periodStart(freq models.ChallengeFrequency, now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch freq {
	case models.FrequencyWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case models.FrequencyMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.FrequencyDaily:
		return day
	default:
		return time.Time{}
	}
}

func inWindow(dateStr string, start time.Time) bool {
	if start.IsZero() {
		return true
	}
	d, ok := parseDay(dateStr)
	if !ok {
		return false
	}
	return !d.Before(start)
}

// challengeProgress computes the current progress value for one challenge.
func challengeProgress(ch models.Challenge, expenses []models.Expense, budget float64, now time.Time) float64 {
	start := periodStart(ch.Frequency, now)

	switch ch.Type {
	case models.ChallengeRegisterExpenses:
		n := 0
		for _, e := range expenses {
			if inWindow(e.Date, start) {
				n++
			}
		}
		return float64(n)

	case models.ChallengeRegisterInCategory:
		n := 0
		for _, e := range expenses {
			if e.Category == ch.CategoryGoal && inWindow(e.Date, start) {
				n++
			}
		}
		return float64(n)

	case models.ChallengeReachFormality:
		var total, formal float64
		for _, e := range expenses {
			if !inWindow(e.Date, start) {
				continue
			}
			total += e.Total
			if e.IsFormal {
				formal += e.Total
			}
		}
		if total == 0 {
			return 0
		}
		return formal / total * 100

	case models.ChallengeSetBudget:
		if budget > 0 {
			return 1
		}
		return 0
	}
	return 0
}

// EvaluateChallenges recomputes progress for every catalog challenge and
// returns the updated progress records plus the challenges that newly moved
// to Completed. Claimed records are terminal and never overwritten.
func EvaluateChallenges(
	progress []models.UserChallenge,
	expenses []models.Expense,
	budget float64,
	now time.Time,
) ([]models.UserChallenge, []models.Challenge) {
	byID := make(map[string]models.UserChallenge, len(progress))
	for _, uc := range progress {
		byID[uc.ChallengeID] = uc
	}

	var completed []models.Challenge
	out := make([]models.UserChallenge, 0, len(allChallenges))

	for _, ch := range allChallenges {
		uc, seen := byID[ch.ID]
		if seen && uc.Status == models.ChallengeClaimed {
			out = append(out, uc)
			continue
		}
		if !seen {
			uc = models.UserChallenge{
				ChallengeID: ch.ID,
				Status:      models.ChallengeActive,
				StartDate:   now.UTC().Format(dateLayout),
			}
		}

		uc.CurrentProgress = challengeProgress(ch, expenses, budget, now)
		if uc.CurrentProgress >= ch.Goal {
			if uc.Status != models.ChallengeCompleted {
				completed = append(completed, ch)
			}
			uc.Status = models.ChallengeCompleted
		} else {
			uc.Status = models.ChallengeActive
		}
		out = append(out, uc)
	}

	return out, completed
}
