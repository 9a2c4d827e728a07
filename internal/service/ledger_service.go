package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"treevut/internal/models"
	"treevut/internal/repository"
	"treevut/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidTotal  = errors.New("expense total must be a finite number")
	ErrInvalidBudget = errors.New("budget must be a non-negative number")
)

// Aggregates are the derived ledger values, recomputed on every read. An
// empty ledger is maximally formal: both indexes default to 100.
type Aggregates struct {
	TotalExpenses          float64 `json:"total_expenses"`
	TotalLostSavings       float64 `json:"total_lost_savings"`
	FormalityIndexByAmount float64 `json:"formality_index_by_amount"`
	FormalityIndexByCount  float64 `json:"formality_index_by_count"`
}

// ComputeAggregates derives the ledger totals and formality indexes.
func ComputeAggregates(expenses []models.Expense) Aggregates {
	agg := Aggregates{FormalityIndexByAmount: 100, FormalityIndexByCount: 100}

	var formalTotal float64
	formalCount := 0
	for _, e := range expenses {
		agg.TotalExpenses += e.Total
		agg.TotalLostSavings += e.LostSavings
		if e.IsFormal {
			formalTotal += e.Total
			formalCount++
		}
	}

	if agg.TotalExpenses > 0 {
		agg.FormalityIndexByAmount = formalTotal / agg.TotalExpenses * 100
	}
	if len(expenses) > 0 {
		agg.FormalityIndexByCount = float64(formalCount) / float64(len(expenses)) * 100
	}
	return agg
}

// ExpensePatch is a partial update: nil fields are left untouched.
type ExpensePatch struct {
	MerchantName  *string
	TaxID         *string
	Date          *string
	Total         *float64
	Category      *models.ExpenseCategory
	ReceiptType   *models.ReceiptType
	IsFormal      *bool
	IsProductScan *bool
}

// stateHandle serializes all mutations of one user's state. A mutation runs
// to completion, including the synchronous gamification dispatch and the
// store write, before the next begins.
type stateHandle struct {
	mu    sync.Mutex
	state *models.UserState
}

// LedgerService owns the canonical per-user ledger and gamification state.
// Every mutation recomputes the statutory tax fields, runs the gamification
// dispatch, persists the bundle and then emits events to the registered
// listeners.
type LedgerService struct {
	repo   *repository.StateRepository
	gamify *GamificationService
	logger *zap.Logger

	mu     sync.Mutex
	states map[uuid.UUID]*stateHandle

	listeners []EventListener
	now       func() time.Time
}

func NewLedgerService(repo *repository.StateRepository, gamify *GamificationService, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		repo:   repo,
		gamify: gamify,
		logger: logger,
		states: make(map[uuid.UUID]*stateHandle),
		now:    time.Now,
	}
}

// AddListener registers an event listener. Must be called before the
// service starts serving mutations.
func (s *LedgerService) AddListener(l EventListener) {
	s.listeners = append(s.listeners, l)
}

func (s *LedgerService) handle(ctx context.Context, userID uuid.UUID) *stateHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.states[userID]
	if !ok {
		h = &stateHandle{state: s.repo.LoadState(ctx, userID)}
		s.states[userID] = h
	}
	return h
}

// withState runs fn under the user's state lock, persists the state and
// emits the returned events. Events are emitted only after the write
// succeeds so listeners never observe unpersisted state.
func (s *LedgerService) withState(ctx context.Context, userID uuid.UUID, fn func(*models.UserState) ([]Event, error)) error {
	h := s.handle(ctx, userID)
	h.mu.Lock()
	defer h.mu.Unlock()

	events, err := fn(h.state)
	if err != nil {
		return err
	}

	if err := s.repo.SaveState(ctx, userID, h.state); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}

	for _, ev := range events {
		for _, l := range s.listeners {
			l(ctx, ev)
		}
	}
	return nil
}

// applyTaxFields recomputes the statutory derived fields from total,
// category and formality.
func applyTaxFields(e *models.Expense) {
	e.ConsumptionTax = ConsumptionTax(e.Total)
	e.LostSavings = LostSavings(e.Total, e.Category, e.IsFormal)
}

// Add appends a new expense, assigns its id and runs the synchronous
// gamification dispatch before returning.
func (s *LedgerService) Add(ctx context.Context, userID uuid.UUID, data models.ExpenseData) (*models.Expense, error) {
	if math.IsNaN(data.Total) || math.IsInf(data.Total, 0) {
		return nil, ErrInvalidTotal
	}

	exp := models.Expense{
		ID:            uuid.New().String(),
		MerchantName:  data.MerchantName,
		TaxID:         data.TaxID,
		Date:          data.Date,
		Total:         data.Total,
		Category:      data.Category,
		ReceiptType:   data.ReceiptType,
		IsFormal:      data.IsFormal,
		IsProductScan: data.IsProductScan,
	}
	if exp.Date == "" {
		exp.Date = s.now().UTC().Format(dateLayout)
	}
	applyTaxFields(&exp)

	err := s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		state.Expenses = append(state.Expenses, exp)

		events := []Event{{Type: EventExpenseAdded, UserID: userID, Expense: &exp}}
		events = append(events, s.gamify.DispatchOnAdd(state, userID, exp, s.now())...)
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ExpenseMutations.WithLabelValues("add").Inc()
	return &exp, nil
}

// Update merges a partial patch into the expense with the given id. A
// missing id is a silent no-op. The id itself never changes; tax fields are
// recomputed whenever total, category or formality change.
func (s *LedgerService) Update(ctx context.Context, userID uuid.UUID, expenseID string, patch ExpensePatch) error {
	if patch.Total != nil && (math.IsNaN(*patch.Total) || math.IsInf(*patch.Total, 0)) {
		return ErrInvalidTotal
	}

	return s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		idx := -1
		for i := range state.Expenses {
			if state.Expenses[i].ID == expenseID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil
		}

		e := &state.Expenses[idx]
		recompute := false
		if patch.MerchantName != nil {
			e.MerchantName = *patch.MerchantName
		}
		if patch.TaxID != nil {
			e.TaxID = *patch.TaxID
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.Total != nil {
			e.Total = *patch.Total
			recompute = true
		}
		if patch.Category != nil {
			e.Category = *patch.Category
			recompute = true
		}
		if patch.ReceiptType != nil {
			e.ReceiptType = *patch.ReceiptType
		}
		if patch.IsFormal != nil {
			e.IsFormal = *patch.IsFormal
			recompute = true
		}
		if patch.IsProductScan != nil {
			e.IsProductScan = *patch.IsProductScan
		}
		if recompute {
			applyTaxFields(e)
		}

		metrics.ExpenseMutations.WithLabelValues("update").Inc()
		events := []Event{{Type: EventExpenseUpdated, UserID: userID, Expense: e}}
		events = append(events, s.gamify.DispatchOnChange(state, userID, s.now())...)
		return events, nil
	})
}

// Delete removes the expense with the given id; a no-op when absent.
// Badges and streak rewards earned through the expense are retained.
func (s *LedgerService) Delete(ctx context.Context, userID uuid.UUID, expenseID string) error {
	return s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		for i := range state.Expenses {
			if state.Expenses[i].ID != expenseID {
				continue
			}
			removed := state.Expenses[i]
			state.Expenses = append(state.Expenses[:i], state.Expenses[i+1:]...)

			metrics.ExpenseMutations.WithLabelValues("delete").Inc()
			events := []Event{{Type: EventExpenseDeleted, UserID: userID, Expense: &removed}}
			events = append(events, s.gamify.DispatchOnChange(state, userID, s.now())...)
			return events, nil
		}
		return nil, nil
	})
}

// SetBudget overwrites the budget wholesale.
func (s *LedgerService) SetBudget(ctx context.Context, userID uuid.UUID, budget float64) error {
	if budget < 0 || math.IsNaN(budget) || math.IsInf(budget, 0) {
		return ErrInvalidBudget
	}
	return s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		state.Budget = budget
		events := []Event{{Type: EventBudgetChanged, UserID: userID}}
		events = append(events, s.gamify.DispatchOnChange(state, userID, s.now())...)
		return events, nil
	})
}

// SetAnnualIncome overwrites the annual income used by the refund
// estimate.
func (s *LedgerService) SetAnnualIncome(ctx context.Context, userID uuid.UUID, income float64) error {
	if income < 0 || math.IsNaN(income) || math.IsInf(income, 0) {
		return ErrInvalidBudget
	}
	return s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		state.AnnualIncome = income
		return []Event{{Type: EventIncomeChanged, UserID: userID}}, nil
	})
}

// Purchase buys a marketplace good atomically against the user's bellota
// balance.
func (s *LedgerService) Purchase(ctx context.Context, userID uuid.UUID, goodID string) (*models.VirtualGood, error) {
	var good *models.VirtualGood
	err := s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		g, err := s.gamify.Purchase(state, goodID)
		if err != nil {
			return nil, err
		}
		good = g
		return []Event{{Type: EventGoodPurchased, UserID: userID, Good: g}}, nil
	})
	if err != nil {
		return nil, err
	}
	return good, nil
}

// ClaimChallenge claims a completed challenge's bellota reward.
func (s *LedgerService) ClaimChallenge(ctx context.Context, userID uuid.UUID, challengeID string) (*models.Challenge, error) {
	var ch *models.Challenge
	err := s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
		c, err := s.gamify.ClaimChallenge(state, challengeID)
		if err != nil {
			return nil, err
		}
		ch = c
		return []Event{{Type: EventChallengeClaimed, UserID: userID, Challenge: c}}, nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Snapshot returns a copy of the user's state plus the derived aggregates.
func (s *LedgerService) Snapshot(ctx context.Context, userID uuid.UUID) (models.UserState, Aggregates) {
	h := s.handle(ctx, userID)
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := *h.state
	snap.Expenses = append([]models.Expense(nil), h.state.Expenses...)
	snap.Badges = append([]string(nil), h.state.Badges...)
	snap.PurchasedGoods = append([]string(nil), h.state.PurchasedGoods...)
	snap.Challenges = append([]models.UserChallenge(nil), h.state.Challenges...)

	return snap, ComputeAggregates(snap.Expenses)
}

// EstimateRefund estimates the user's potential tax refund from the formal
// deduction-eligible spend accumulated in the ledger.
func (s *LedgerService) EstimateRefund(ctx context.Context, userID uuid.UUID) (deductibleSpend, refund float64) {
	snap, _ := s.Snapshot(ctx, userID)
	for _, e := range snap.Expenses {
		if e.IsFormal && DeductibleCategories[e.Category] {
			deductibleSpend += e.Total
		}
	}
	return deductibleSpend, EstimateRefund(deductibleSpend, snap.AnnualIncome)
}

// ExportCSV renders the read-only tabular projection of the ledger. The
// leading BOM keeps spreadsheet apps from mangling the UTF-8 headers.
func (s *LedgerService) ExportCSV(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	snap, _ := s.Snapshot(ctx, userID)

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Fecha", "Razón Social", "RUC", "Categoría", "Total (S/)", "Comprobante Formal", "Ahorro Perdido (S/)"}); err != nil {
		return nil, err
	}
	for _, e := range snap.Expenses {
		formal := "No"
		if e.IsFormal {
			formal = "Sí"
		}
		record := []string{
			e.Date,
			e.MerchantName,
			e.TaxID,
			string(e.Category),
			strconv.FormatFloat(e.Total, 'f', 2, 64),
			formal,
			strconv.FormatFloat(e.LostSavings, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckIdleStreaks scans every persisted streak and resets the ones broken
// by inactivity. Runs on a timer independent of user mutations; each reset
// is an ordinary serialized mutation and notifies exactly once.
func (s *LedgerService) CheckIdleStreaks(ctx context.Context) {
	userIDs, err := s.repo.StreakUserIDs(ctx)
	if err != nil {
		s.logger.Error("Idle streak scan failed", zap.Error(err))
		return
	}

	for _, userID := range userIDs {
		err := s.withState(ctx, userID, func(state *models.UserState) ([]Event, error) {
			lost, reset := s.gamify.ResetBrokenStreak(state, s.now())
			if !reset {
				return nil, nil
			}
			s.logger.Info("Streak broken by inactivity",
				zap.String("user_id", userID.String()),
				zap.Int("days_lost", lost),
			)
			return []Event{{Type: EventStreakLost, UserID: userID, StreakDays: lost}}, nil
		})
		if err != nil {
			s.logger.Error("Idle streak reset failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
}
