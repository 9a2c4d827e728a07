package service

import (
	"context"

	"treevut/internal/models"

	"github.com/google/uuid"
)

// EventType identifies a ledger or gamification event.
type EventType string

const (
	EventExpenseAdded       EventType = "expense_added"
	EventExpenseUpdated     EventType = "expense_updated"
	EventExpenseDeleted     EventType = "expense_deleted"
	EventBudgetChanged      EventType = "budget_changed"
	EventIncomeChanged      EventType = "income_changed"
	EventInformalExpense    EventType = "informal_expense"
	EventStreakMilestone    EventType = "streak_milestone"
	EventStreakLost         EventType = "streak_lost"
	EventBadgeUnlocked      EventType = "badge_unlocked"
	EventChallengeCompleted EventType = "challenge_completed"
	EventChallengeClaimed   EventType = "challenge_claimed"
	EventGoodPurchased      EventType = "good_purchased"
)

// Event is emitted by the ledger after a mutation completes and persists.
// Only the fields relevant to the event type are set.
type Event struct {
	Type       EventType
	UserID     uuid.UUID
	Expense    *models.Expense
	Badge      *models.Badge
	Milestone  *StreakMilestone
	Challenge  *models.Challenge
	Good       *models.VirtualGood
	StreakDays int
}

// EventListener consumes ledger events. Listeners run synchronously after
// the mutation; anything slow (network, notifications) must detach itself.
type EventListener func(ctx context.Context, ev Event)
