package service

import (
	"testing"
	"time"

	"treevut/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name     string
		progress models.Progress
		want     models.Level
	}{
		{name: "fresh user", progress: models.Progress{}, want: models.LevelSprout},
		{name: "five expenses reach sapling", progress: models.Progress{ExpensesCount: 5}, want: models.LevelSapling},
		{name: "count without formality stalls", progress: models.Progress{ExpensesCount: 50, FormalityIndex: 50}, want: models.LevelSapling},
		{name: "bush needs 15 and 60", progress: models.Progress{ExpensesCount: 15, FormalityIndex: 60}, want: models.LevelBush},
		{name: "forest ceiling", progress: models.Progress{ExpensesCount: 1000, FormalityIndex: 100}, want: models.LevelForest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, levelFor(tt.progress))
		})
	}
}

func TestGamificationDispatchOnAdd(t *testing.T) {
	svc := NewGamificationService(zap.NewNop())
	userID := uuid.New()
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	t.Run("formal expense advances the streak and unlocks the first badge", func(t *testing.T) {
		exp := models.Expense{ID: "e1", Date: "2026-03-11", Total: 50, Category: models.CategoryFood, IsFormal: true}
		state := &models.UserState{Expenses: []models.Expense{exp}, Profile: models.DefaultProfile()}

		events := svc.DispatchOnAdd(state, userID, exp, now)

		assert.Equal(t, 1, state.Streak.CurrentStreak)
		assert.Contains(t, state.Badges, "badge_first_expense")

		var types []EventType
		for _, ev := range events {
			types = append(types, ev.Type)
		}
		assert.Contains(t, types, EventBadgeUnlocked)
		assert.Contains(t, types, EventChallengeCompleted)
		assert.NotContains(t, types, EventInformalExpense)
	})

	t.Run("informal deductible expense emits the warning event", func(t *testing.T) {
		exp := models.Expense{ID: "e2", Date: "2026-03-11", Total: 100, Category: models.CategoryFood, IsFormal: false, LostSavings: 3}
		state := &models.UserState{Expenses: []models.Expense{exp}, Profile: models.DefaultProfile()}

		events := svc.DispatchOnAdd(state, userID, exp, now)

		assert.Equal(t, 0, state.Streak.CurrentStreak, "informal expenses never touch the streak")
		found := false
		for _, ev := range events {
			if ev.Type == EventInformalExpense {
				found = true
				require.NotNil(t, ev.Expense)
				assert.Equal(t, "e2", ev.Expense.ID)
			}
		}
		assert.True(t, found)
	})

	t.Run("milestone credits bellotas", func(t *testing.T) {
		exp := models.Expense{ID: "e3", Date: "2026-03-11", Total: 50, Category: models.CategoryFood, IsFormal: true}
		state := &models.UserState{
			Expenses: []models.Expense{exp},
			Streak:   models.StreakRecord{CurrentStreak: 6, LongestStreak: 6, LastFormalExpenseDate: "2026-03-10"},
			Profile:  models.DefaultProfile(),
		}

		events := svc.DispatchOnAdd(state, userID, exp, now)

		assert.Equal(t, 7, state.Streak.CurrentStreak)
		assert.Equal(t, 100, state.Bellotas)

		var milestone *StreakMilestone
		for _, ev := range events {
			if ev.Type == EventStreakMilestone {
				milestone = ev.Milestone
			}
		}
		require.NotNil(t, milestone)
		assert.Equal(t, "Semana Perfecta", milestone.Name)
	})

	t.Run("progress refresh promotes the level", func(t *testing.T) {
		var expenses []models.Expense
		for i := 0; i < 5; i++ {
			expenses = append(expenses, models.Expense{ID: uuid.New().String(), Date: "2026-03-11", Total: 10, Category: models.CategoryFood, IsFormal: true})
		}
		state := &models.UserState{Expenses: expenses, Profile: models.DefaultProfile()}

		svc.DispatchOnAdd(state, userID, expenses[4], now)

		assert.Equal(t, models.LevelSapling, state.Profile.Level)
		assert.Equal(t, 5, state.Profile.Progress.ExpensesCount)
	})
}

func TestResetBrokenStreak(t *testing.T) {
	svc := NewGamificationService(zap.NewNop())
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	t.Run("idle streak resets once", func(t *testing.T) {
		state := &models.UserState{Streak: models.StreakRecord{CurrentStreak: 12, LongestStreak: 12, LastFormalExpenseDate: "2026-03-10"}}

		lost, reset := svc.ResetBrokenStreak(state, now)
		assert.True(t, reset)
		assert.Equal(t, 12, lost)
		assert.Equal(t, 0, state.Streak.CurrentStreak)
		assert.Equal(t, 12, state.Streak.LongestStreak)

		_, resetAgain := svc.ResetBrokenStreak(state, now)
		assert.False(t, resetAgain)
	})

	t.Run("active streak untouched", func(t *testing.T) {
		state := &models.UserState{Streak: models.StreakRecord{CurrentStreak: 3, LastFormalExpenseDate: "2026-03-14"}}
		_, reset := svc.ResetBrokenStreak(state, now)
		assert.False(t, reset)
		assert.Equal(t, 3, state.Streak.CurrentStreak)
	})
}

func TestPurchase(t *testing.T) {
	svc := NewGamificationService(zap.NewNop())

	t.Run("purchase debits and records the good", func(t *testing.T) {
		state := &models.UserState{Bellotas: 150}
		good, err := svc.Purchase(state, "vg_pot_clay")
		require.NoError(t, err)
		assert.Equal(t, "Maceta de Arcilla", good.Name)
		assert.Equal(t, 50, state.Bellotas)
		assert.Equal(t, []string{"vg_pot_clay"}, state.PurchasedGoods)
	})

	t.Run("unknown good", func(t *testing.T) {
		state := &models.UserState{Bellotas: 10000}
		_, err := svc.Purchase(state, "vg_missing")
		assert.ErrorIs(t, err, ErrGoodNotFound)
	})

	t.Run("duplicate purchase rejected before the balance check", func(t *testing.T) {
		state := &models.UserState{Bellotas: 0, PurchasedGoods: []string{"vg_pot_clay"}}
		_, err := svc.Purchase(state, "vg_pot_clay")
		assert.ErrorIs(t, err, ErrGoodAlreadyOwned)
	})

	t.Run("overdraft rejected without side effects", func(t *testing.T) {
		state := &models.UserState{Bellotas: 99}
		_, err := svc.Purchase(state, "vg_pot_clay")
		assert.ErrorIs(t, err, ErrInsufficientBellotas)
		assert.Equal(t, 99, state.Bellotas)
		assert.Empty(t, state.PurchasedGoods)
	})
}

func TestClaimChallenge(t *testing.T) {
	svc := NewGamificationService(zap.NewNop())

	t.Run("completed challenge pays out and becomes claimed", func(t *testing.T) {
		state := &models.UserState{
			Challenges: []models.UserChallenge{{ChallengeID: "onboarding_1", Status: models.ChallengeCompleted, CurrentProgress: 1}},
		}
		ch, err := svc.ClaimChallenge(state, "onboarding_1")
		require.NoError(t, err)
		assert.Equal(t, 10, ch.RewardBellotas)
		assert.Equal(t, 10, state.Bellotas)
		assert.Equal(t, models.ChallengeClaimed, state.Challenges[0].Status)
	})

	t.Run("double claim rejected", func(t *testing.T) {
		state := &models.UserState{
			Challenges: []models.UserChallenge{{ChallengeID: "onboarding_1", Status: models.ChallengeClaimed}},
		}
		_, err := svc.ClaimChallenge(state, "onboarding_1")
		assert.ErrorIs(t, err, ErrChallengeAlreadyClaimed)
		assert.Equal(t, 0, state.Bellotas)
	})

	t.Run("active challenge not claimable", func(t *testing.T) {
		state := &models.UserState{
			Challenges: []models.UserChallenge{{ChallengeID: "onboarding_1", Status: models.ChallengeActive}},
		}
		_, err := svc.ClaimChallenge(state, "onboarding_1")
		assert.ErrorIs(t, err, ErrChallengeNotCompleted)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		state := &models.UserState{}
		_, err := svc.ClaimChallenge(state, "no_such")
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("no progress record yet", func(t *testing.T) {
		state := &models.UserState{}
		_, err := svc.ClaimChallenge(state, "onboarding_1")
		assert.ErrorIs(t, err, ErrChallengeNotCompleted)
	})
}
