package models

// StreakRecord tracks consecutive calendar days with at least one formal
// expense. LastFormalExpenseDate is an ISO YYYY-MM-DD string, empty when no
// formal expense was ever registered.
type StreakRecord struct {
	CurrentStreak         int    `json:"current_streak"`
	LongestStreak         int    `json:"longest_streak"`
	LastFormalExpenseDate string `json:"last_formal_expense_date,omitempty"`
}

type ChallengeType string

const (
	ChallengeRegisterExpenses   ChallengeType = "register_expenses"
	ChallengeReachFormality     ChallengeType = "reach_formality_index"
	ChallengeSetBudget          ChallengeType = "set_budget"
	ChallengeRegisterInCategory ChallengeType = "register_in_category"
)

type ChallengeFrequency string

const (
	FrequencyDaily   ChallengeFrequency = "daily"
	FrequencyWeekly  ChallengeFrequency = "weekly"
	FrequencyMonthly ChallengeFrequency = "monthly"
	FrequencyOnce    ChallengeFrequency = "once"
)

type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeClaimed   ChallengeStatus = "claimed"
)

// Challenge is a goal definition from the static catalog.
type Challenge struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Icon           string             `json:"icon"`
	Type           ChallengeType      `json:"type"`
	Frequency      ChallengeFrequency `json:"frequency"`
	Goal           float64            `json:"goal"`
	RewardBellotas int                `json:"reward_bellotas"`
	CategoryGoal   ExpenseCategory    `json:"category_goal,omitempty"`
}

// UserChallenge is one user's progress against a challenge definition.
// Claimed is terminal for once-challenges.
type UserChallenge struct {
	ChallengeID     string          `json:"challenge_id"`
	Status          ChallengeStatus `json:"status"`
	CurrentProgress float64         `json:"current_progress"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date,omitempty"`
}

type BadgeCategory string

const (
	BadgeAchievement BadgeCategory = "achievement"
	BadgeMastery     BadgeCategory = "mastery"
	BadgeExploration BadgeCategory = "exploration"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge is a permanent achievement marker. Once unlocked it is never
// revoked, even if the qualifying expenses are later deleted.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Category    BadgeCategory `json:"category"`
	Rarity      BadgeRarity   `json:"rarity"`
}

// VirtualGood is a marketplace item purchasable with bellotas.
type VirtualGood struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Price       int    `json:"price"`
}
