package service

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"treevut/internal/models"
	"treevut/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDefaultBudget = 1000.0

func newTestLedger(t *testing.T) *LedgerService {
	t.Helper()
	store, err := repository.NewInMemoryStore(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := repository.NewStateRepository(store, testDefaultBudget, zap.NewNop())
	svc := NewLedgerService(repo, NewGamificationService(zap.NewNop()), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestComputeAggregates(t *testing.T) {
	t.Run("empty ledger is maximally formal", func(t *testing.T) {
		agg := ComputeAggregates(nil)
		assert.Equal(t, 100.0, agg.FormalityIndexByAmount)
		assert.Equal(t, 100.0, agg.FormalityIndexByCount)
		assert.Equal(t, 0.0, agg.TotalExpenses)
	})

	t.Run("mixed ledger", func(t *testing.T) {
		expenses := []models.Expense{
			{Total: 300, IsFormal: true},
			{Total: 100, IsFormal: false, LostSavings: 3},
		}
		agg := ComputeAggregates(expenses)
		assert.InDelta(t, 400.0, agg.TotalExpenses, 1e-9)
		assert.InDelta(t, 3.0, agg.TotalLostSavings, 1e-9)
		assert.InDelta(t, 75.0, agg.FormalityIndexByAmount, 1e-9)
		assert.InDelta(t, 50.0, agg.FormalityIndexByCount, 1e-9)
	})
}

func TestLedgerAdd(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	t.Run("derived fields are computed on add", func(t *testing.T) {
		exp, err := svc.Add(ctx, userID, models.ExpenseData{
			MerchantName: "Mercado Central",
			Date:         "2026-03-11",
			Total:        118,
			Category:     models.CategoryFood,
			IsFormal:     false,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, exp.ID)
		assert.InDelta(t, 18.0, exp.ConsumptionTax, 1e-9)
		assert.InDelta(t, 118*0.03, exp.LostSavings, 1e-9)
	})

	t.Run("missing date defaults to today", func(t *testing.T) {
		exp, err := svc.Add(ctx, userID, models.ExpenseData{Total: 10, Category: models.CategoryOther})
		require.NoError(t, err)
		assert.Equal(t, "2026-03-11", exp.Date)
	})

	t.Run("non-finite totals rejected", func(t *testing.T) {
		_, err := svc.Add(ctx, userID, models.ExpenseData{Total: math.NaN()})
		assert.ErrorIs(t, err, ErrInvalidTotal)
		_, err = svc.Add(ctx, userID, models.ExpenseData{Total: math.Inf(1)})
		assert.ErrorIs(t, err, ErrInvalidTotal)
	})

	t.Run("events are emitted after persistence", func(t *testing.T) {
		svc := newTestLedger(t)
		var got []EventType
		svc.AddListener(func(ctx context.Context, ev Event) {
			got = append(got, ev.Type)
		})

		_, err := svc.Add(ctx, uuid.New(), models.ExpenseData{
			Date: "2026-03-11", Total: 50, Category: models.CategoryFood, IsFormal: true,
		})
		require.NoError(t, err)
		assert.Contains(t, got, EventExpenseAdded)
		assert.Contains(t, got, EventBadgeUnlocked)
	})
}

func TestLedgerUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	exp, err := svc.Add(ctx, userID, models.ExpenseData{
		Date: "2026-03-11", Total: 118, Category: models.CategoryFood, IsFormal: false,
	})
	require.NoError(t, err)

	t.Run("patch recomputes tax fields", func(t *testing.T) {
		newTotal := 236.0
		formal := true
		err := svc.Update(ctx, userID, exp.ID, ExpensePatch{Total: &newTotal, IsFormal: &formal})
		require.NoError(t, err)

		snap, _ := svc.Snapshot(ctx, userID)
		require.Len(t, snap.Expenses, 1)
		got := snap.Expenses[0]
		assert.Equal(t, exp.ID, got.ID)
		assert.InDelta(t, 36.0, got.ConsumptionTax, 1e-9)
		assert.Equal(t, 0.0, got.LostSavings, "formal expense forfeits nothing")
	})

	t.Run("nil fields untouched", func(t *testing.T) {
		name := "Bodega Doña Rosa"
		err := svc.Update(ctx, userID, exp.ID, ExpensePatch{MerchantName: &name})
		require.NoError(t, err)

		snap, _ := svc.Snapshot(ctx, userID)
		got := snap.Expenses[0]
		assert.Equal(t, name, got.MerchantName)
		assert.InDelta(t, 236.0, got.Total, 1e-9)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		total := 1.0
		err := svc.Update(ctx, userID, "missing", ExpensePatch{Total: &total})
		assert.NoError(t, err)
	})

	t.Run("non-finite total rejected", func(t *testing.T) {
		bad := math.Inf(-1)
		err := svc.Update(ctx, userID, exp.ID, ExpensePatch{Total: &bad})
		assert.ErrorIs(t, err, ErrInvalidTotal)
	})
}

func TestLedgerDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	exp, err := svc.Add(ctx, userID, models.ExpenseData{
		Date: "2026-03-11", Total: 50, Category: models.CategoryFood, IsFormal: true,
	})
	require.NoError(t, err)

	snap, _ := svc.Snapshot(ctx, userID)
	require.Contains(t, snap.Badges, "badge_first_expense")

	require.NoError(t, svc.Delete(ctx, userID, exp.ID))

	snap, agg := svc.Snapshot(ctx, userID)
	assert.Empty(t, snap.Expenses)
	assert.Equal(t, 100.0, agg.FormalityIndexByAmount)
	assert.Contains(t, snap.Badges, "badge_first_expense", "unlocked badges survive deletion")

	assert.NoError(t, svc.Delete(ctx, userID, exp.ID), "deleting twice is a no-op")
}

func TestLedgerBudgetAndIncome(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	snap, _ := svc.Snapshot(ctx, userID)
	assert.Equal(t, testDefaultBudget, snap.Budget)

	require.NoError(t, svc.SetBudget(ctx, userID, 2500))
	require.NoError(t, svc.SetAnnualIncome(ctx, userID, 60000))

	snap, _ = svc.Snapshot(ctx, userID)
	assert.Equal(t, 2500.0, snap.Budget)
	assert.Equal(t, 60000.0, snap.AnnualIncome)

	assert.ErrorIs(t, svc.SetBudget(ctx, userID, -1), ErrInvalidBudget)
	assert.ErrorIs(t, svc.SetAnnualIncome(ctx, userID, math.NaN()), ErrInvalidBudget)
}

func TestLedgerEstimateRefund(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	require.NoError(t, svc.SetAnnualIncome(ctx, userID, 7*UIT+4*UIT))

	// Deductible formal spend.
	_, err := svc.Add(ctx, userID, models.ExpenseData{Date: "2026-03-11", Total: 1000, Category: models.CategoryHealth, IsFormal: true})
	require.NoError(t, err)
	// Formal but not deductible.
	_, err = svc.Add(ctx, userID, models.ExpenseData{Date: "2026-03-11", Total: 500, Category: models.CategoryTransport, IsFormal: true})
	require.NoError(t, err)
	// Deductible category but informal.
	_, err = svc.Add(ctx, userID, models.ExpenseData{Date: "2026-03-11", Total: 300, Category: models.CategoryFood, IsFormal: false})
	require.NoError(t, err)

	spend, refund := svc.EstimateRefund(ctx, userID)
	assert.InDelta(t, 1000.0, spend, 1e-9)
	assert.InDelta(t, 1000*0.08, refund, 1e-9)
}

func TestLedgerExportCSV(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	_, err := svc.Add(ctx, userID, models.ExpenseData{
		MerchantName: "Menú Criollo",
		TaxID:        "20100079707",
		Date:         "2026-03-11",
		Total:        100,
		Category:     models.CategoryFood,
		IsFormal:     false,
	})
	require.NoError(t, err)

	data, err := svc.ExportCSV(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3], "byte order mark leads the file")

	text := string(data[3:])
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Fecha,Razón Social,RUC,Categoría,Total (S/),Comprobante Formal,Ahorro Perdido (S/)", lines[0])
	assert.Contains(t, lines[1], "Menú Criollo")
	assert.Contains(t, lines[1], "100.00")
	assert.Contains(t, lines[1], "No")
	assert.Contains(t, lines[1], "3.00") // forfeited deduction
}

func TestLedgerPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewInMemoryStore(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := repository.NewStateRepository(store, testDefaultBudget, zap.NewNop())
	svc := NewLedgerService(repo, NewGamificationService(zap.NewNop()), zap.NewNop())
	userID := uuid.New()

	_, err = svc.Add(ctx, userID, models.ExpenseData{Date: "2026-03-11", Total: 80, Category: models.CategoryFood, IsFormal: true})
	require.NoError(t, err)
	require.NoError(t, svc.SetBudget(ctx, userID, 3000))

	// A fresh service over the same store must see identical state.
	svc2 := NewLedgerService(repo, NewGamificationService(zap.NewNop()), zap.NewNop())
	snap, agg := svc2.Snapshot(ctx, userID)

	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, 3000.0, snap.Budget)
	assert.Equal(t, 1, snap.Streak.CurrentStreak)
	assert.Contains(t, snap.Badges, "badge_first_expense")
	assert.InDelta(t, 100.0, agg.FormalityIndexByAmount, 1e-9)
}

func TestCheckIdleStreaks(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	userID := uuid.New()

	_, err := svc.Add(ctx, userID, models.ExpenseData{Date: "2026-03-05", Total: 40, Category: models.CategoryFood, IsFormal: true})
	require.NoError(t, err)

	var lost []Event
	svc.AddListener(func(ctx context.Context, ev Event) {
		if ev.Type == EventStreakLost {
			lost = append(lost, ev)
		}
	})

	// Clock is 2026-03-11: six days idle.
	svc.CheckIdleStreaks(ctx)

	require.Len(t, lost, 1)
	assert.Equal(t, userID, lost[0].UserID)
	assert.Equal(t, 1, lost[0].StreakDays)

	snap, _ := svc.Snapshot(ctx, userID)
	assert.Equal(t, 0, snap.Streak.CurrentStreak)
	assert.Equal(t, 1, snap.Streak.LongestStreak)

	// A second scan finds nothing to reset.
	svc.CheckIdleStreaks(ctx)
	assert.Len(t, lost, 1)
}
