package service

import (
	"errors"
	"time"

	"treevut/internal/models"
	"treevut/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrGoodNotFound            = errors.New("virtual good not found")
	ErrGoodAlreadyOwned        = errors.New("virtual good already purchased")
	ErrInsufficientBellotas    = errors.New("insufficient bellotas")
	ErrChallengeNotFound       = errors.New("challenge not found")
	ErrChallengeNotCompleted   = errors.New("challenge not completed")
	ErrChallengeAlreadyClaimed = errors.New("challenge reward already claimed")
)

// levelGoals lists the requirements to advance past each level, indexed by
// the level being left.
var levelGoals = map[models.Level]models.Progress{
	models.LevelSprout:  {ExpensesCount: 5},
	models.LevelSapling: {ExpensesCount: 15, FormalityIndex: 60},
	models.LevelBush:    {ExpensesCount: 40, FormalityIndex: 75},
	models.LevelOak:     {ExpensesCount: 100, FormalityIndex: 90},
}

// levelFor computes the level a user's progress entitles them to. Levels
// only ever grow here; demotion is never applied.
func levelFor(p models.Progress) models.Level {
	level := models.LevelSprout
	for level < models.LevelForest {
		goals, ok := levelGoals[level]
		if !ok {
			break
		}
		if p.ExpensesCount < goals.ExpensesCount || p.FormalityIndex < goals.FormalityIndex {
			break
		}
		level++
	}
	return level
}

// GamificationService applies streak, badge, challenge, level and
// marketplace rules to a user's state. All methods assume the caller holds
// the state lock; mutation of the state and the returned events stay
// consistent because the ledger persists before emitting.
type GamificationService struct {
	logger *zap.Logger
}

func NewGamificationService(logger *zap.Logger) *GamificationService {
	return &GamificationService{logger: logger}
}

// refreshProgress recomputes the profile counters and level from the
// current ledger.
func (s *GamificationService) refreshProgress(state *models.UserState) {
	agg := ComputeAggregates(state.Expenses)
	state.Profile.Progress = models.Progress{
		ExpensesCount:  len(state.Expenses),
		FormalityIndex: agg.FormalityIndexByAmount,
	}
	if next := levelFor(state.Profile.Progress); next > state.Profile.Level {
		state.Profile.Level = next
	}
}

// evaluateChallenges re-runs challenge evaluation and returns the
// completion events.
func (s *GamificationService) evaluateChallenges(state *models.UserState, userID uuid.UUID, now time.Time) []Event {
	updated, completed := EvaluateChallenges(state.Challenges, state.Expenses, state.Budget, now)
	state.Challenges = updated

	events := make([]Event, 0, len(completed))
	for i := range completed {
		events = append(events, Event{Type: EventChallengeCompleted, UserID: userID, Challenge: &completed[i]})
	}
	return events
}

// DispatchOnAdd runs the post-add side-effect pass, in order: streak update
// for formal expenses (milestones credit bellotas), badge evaluation,
// informal-expense notification, challenge re-evaluation, then
// progress/level refresh.
func (s *GamificationService) DispatchOnAdd(state *models.UserState, userID uuid.UUID, exp models.Expense, now time.Time) []Event {
	var events []Event

	if exp.IsFormal {
		updated, milestone := UpdateStreakOnFormalExpense(state.Streak, exp.Date)
		state.Streak = updated
		if milestone != nil {
			state.Bellotas += milestone.Reward
			metrics.StreakMilestones.Inc()
			events = append(events, Event{Type: EventStreakMilestone, UserID: userID, Milestone: milestone})
		}
	}

	agg := ComputeAggregates(state.Expenses)
	newBadges := CheckBadgesToUnlock(
		state.Expenses,
		agg.FormalityIndexByAmount,
		state.Streak.CurrentStreak,
		state.Streak.LongestStreak,
		state.Badges,
	)
	for i := range newBadges {
		state.Badges = append(state.Badges, newBadges[i].ID)
		metrics.BadgesUnlocked.Inc()
		events = append(events, Event{Type: EventBadgeUnlocked, UserID: userID, Badge: &newBadges[i]})
	}

	if !exp.IsFormal && exp.LostSavings > 0 {
		e := exp
		events = append(events, Event{Type: EventInformalExpense, UserID: userID, Expense: &e})
	}

	events = append(events, s.evaluateChallenges(state, userID, now)...)
	s.refreshProgress(state)

	return events
}

// DispatchOnChange runs after updates, deletes and budget/income edits:
// challenges are re-evaluated and progress refreshed. Badges and streaks
// already earned are intentionally left untouched.
func (s *GamificationService) DispatchOnChange(state *models.UserState, userID uuid.UUID, now time.Time) []Event {
	events := s.evaluateChallenges(state, userID, now)
	s.refreshProgress(state)
	return events
}

// ResetBrokenStreak zeroes an idle streak. Returns the days lost and true
// when a reset actually happened; CurrentStreak == 0 guards the streak-lost
// notification from re-firing on later checks.
func (s *GamificationService) ResetBrokenStreak(state *models.UserState, now time.Time) (int, bool) {
	if state.Streak.CurrentStreak == 0 || !IsStreakBroken(state.Streak, now) {
		return 0, false
	}
	lost := state.Streak.CurrentStreak
	state.Streak.CurrentStreak = 0
	return lost, true
}

// Purchase buys a virtual good. Currency and inventory change together or
// not at all; duplicates and overdrafts are rejected.
func (s *GamificationService) Purchase(state *models.UserState, goodID string) (*models.VirtualGood, error) {
	good := VirtualGoodByID(goodID)
	if good == nil {
		return nil, ErrGoodNotFound
	}
	for _, owned := range state.PurchasedGoods {
		if owned == goodID {
			return nil, ErrGoodAlreadyOwned
		}
	}
	if state.Bellotas < good.Price {
		return nil, ErrInsufficientBellotas
	}

	state.Bellotas -= good.Price
	state.PurchasedGoods = append(state.PurchasedGoods, goodID)
	return good, nil
}

// ClaimChallenge credits a completed challenge's reward. Claimed is
// terminal: once-challenges are excluded from further evaluation.
func (s *GamificationService) ClaimChallenge(state *models.UserState, challengeID string) (*models.Challenge, error) {
	ch := ChallengeByID(challengeID)
	if ch == nil {
		return nil, ErrChallengeNotFound
	}

	for i := range state.Challenges {
		if state.Challenges[i].ChallengeID != challengeID {
			continue
		}
		switch state.Challenges[i].Status {
		case models.ChallengeClaimed:
			return nil, ErrChallengeAlreadyClaimed
		case models.ChallengeCompleted:
			state.Challenges[i].Status = models.ChallengeClaimed
			state.Bellotas += ch.RewardBellotas
			return ch, nil
		default:
			return nil, ErrChallengeNotCompleted
		}
	}
	return nil, ErrChallengeNotCompleted
}
