package repository

import (
	"context"
	"fmt"
	"testing"

	"treevut/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (*StateRepository, *BadgerStore) {
	t.Helper()
	store, err := NewInMemoryStore(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewStateRepository(store, 1500, zap.NewNop()), store
}

func TestLoadStateDefaults(t *testing.T) {
	repo, _ := newTestRepo(t)
	state := repo.LoadState(context.Background(), uuid.New())

	assert.Empty(t, state.Expenses)
	assert.Equal(t, 1500.0, state.Budget)
	assert.Equal(t, 0.0, state.AnnualIncome)
	assert.Equal(t, 0, state.Bellotas)
	assert.Equal(t, models.LevelSprout, state.Profile.Level)
	assert.Equal(t, models.StreakRecord{}, state.Streak)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	state := &models.UserState{
		Expenses: []models.Expense{{
			ID: "e1", MerchantName: "Tottus", TaxID: "20508565934",
			Date: "2026-03-11", Total: 89.9, Category: models.CategoryFood,
			IsFormal: true, ConsumptionTax: 13.71,
		}},
		Budget:         2200,
		AnnualIncome:   54000,
		Streak:         models.StreakRecord{CurrentStreak: 4, LongestStreak: 9, LastFormalExpenseDate: "2026-03-11"},
		Badges:         []string{"badge_first_expense"},
		Bellotas:       130,
		PurchasedGoods: []string{"vg_pot_clay"},
		Challenges:     []models.UserChallenge{{ChallengeID: "onboarding_1", Status: models.ChallengeClaimed, CurrentProgress: 1}},
		Profile:        models.Profile{Level: models.LevelSapling, Progress: models.Progress{ExpensesCount: 1, FormalityIndex: 100}},
	}
	require.NoError(t, repo.SaveState(ctx, userID, state))

	got := repo.LoadState(ctx, userID)
	assert.Equal(t, state.Expenses, got.Expenses)
	assert.Equal(t, state.Budget, got.Budget)
	assert.Equal(t, state.AnnualIncome, got.AnnualIncome)
	assert.Equal(t, state.Streak, got.Streak)
	assert.Equal(t, state.Badges, got.Badges)
	assert.Equal(t, state.Bellotas, got.Bellotas)
	assert.Equal(t, state.PurchasedGoods, got.PurchasedGoods)
	assert.Equal(t, state.Challenges, got.Challenges)
	assert.Equal(t, state.Profile, got.Profile)
}

func TestLegacyKeyMigration(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	// State persisted by the app's previous incarnation.
	legacyExpenses := `[{"id":"old1","merchant_name":"Bodega","date":"2025-12-01","total":15,"category":"Alimentación","is_formal":false}]`
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treebu:expenses:%s", userID), legacyExpenses))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treebu:budget:%s", userID), "900"))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treebu:bellotas:%s", userID), "42"))

	state := repo.LoadState(ctx, userID)

	require.Len(t, state.Expenses, 1)
	assert.Equal(t, "old1", state.Expenses[0].ID)
	assert.Equal(t, 900.0, state.Budget)
	assert.Equal(t, 42, state.Bellotas)

	// Old keys are gone, canonical keys exist.
	_, found, err := store.Get(ctx, fmt.Sprintf("treebu:expenses:%s", userID))
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = store.Get(ctx, fmt.Sprintf("treevut:expenses:%s", userID))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLegacyKeyMigrationKeepsCanonical(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	// Both generations present: the canonical value wins.
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treebu:budget:%s", userID), "900"))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:budget:%s", userID), "1800"))

	state := repo.LoadState(ctx, userID)
	assert.Equal(t, 1800.0, state.Budget)
}

func TestLoadStateToleratesMalformedValues(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:expenses:%s", userID), "{not json"))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:budget:%s", userID), "abc"))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:badges:%s", userID), `["badge_first_expense"]`))

	state := repo.LoadState(ctx, userID)

	assert.Empty(t, state.Expenses, "malformed slice reverts to its default")
	assert.Equal(t, 1500.0, state.Budget, "malformed budget reverts to the default")
	assert.Equal(t, []string{"badge_first_expense"}, state.Badges, "valid slices load normally")
}

func TestLoadStateProfileLevelDefault(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	// Profile written before the level field existed.
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:profile:%s", userID), `{"progress":{"expenses_count":3}}`))

	state := repo.LoadState(ctx, userID)
	assert.Equal(t, models.LevelSprout, state.Profile.Level)
	assert.Equal(t, 3, state.Profile.Progress.ExpensesCount)
}

func TestStreakUserIDs(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:streak:%s", first), `{"current_streak":2}`))
	require.NoError(t, store.Set(ctx, fmt.Sprintf("treevut:streak:%s", second), `{"current_streak":0}`))
	// Garbage suffix is skipped.
	require.NoError(t, store.Set(ctx, "treevut:streak:not-a-uuid", `{}`))

	ids, err := repo.StreakUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
}
