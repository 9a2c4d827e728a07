package dto

import "treevut/internal/models"

type StreakResponse struct {
	CurrentStreak         int    `json:"current_streak"`
	LongestStreak         int    `json:"longest_streak"`
	LastFormalExpenseDate string `json:"last_formal_expense_date,omitempty"`
	NextMilestoneDays     int    `json:"next_milestone_days,omitempty"`
	NextMilestoneReward   int    `json:"next_milestone_reward,omitempty"`
}

type BadgeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	Rarity      string `json:"rarity"`
	Unlocked    bool   `json:"unlocked"`
}

func NewBadgeResponse(b models.Badge, unlocked bool) BadgeResponse {
	return BadgeResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Icon:        b.Icon,
		Category:    string(b.Category),
		Rarity:      string(b.Rarity),
		Unlocked:    unlocked,
	}
}

type ChallengeResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Icon            string  `json:"icon"`
	Type            string  `json:"type"`
	Frequency       string  `json:"frequency"`
	Goal            float64 `json:"goal"`
	RewardBellotas  int     `json:"reward_bellotas"`
	Status          string  `json:"status"`
	CurrentProgress float64 `json:"current_progress"`
	StartDate       string  `json:"start_date,omitempty"`
	EndDate         string  `json:"end_date,omitempty"`
}

func NewChallengeResponse(def models.Challenge, uc *models.UserChallenge) ChallengeResponse {
	resp := ChallengeResponse{
		ID:             def.ID,
		Title:          def.Title,
		Description:    def.Description,
		Icon:           def.Icon,
		Type:           string(def.Type),
		Frequency:      string(def.Frequency),
		Goal:           def.Goal,
		RewardBellotas: def.RewardBellotas,
		Status:         string(models.ChallengeActive),
	}
	if uc != nil {
		resp.Status = string(uc.Status)
		resp.CurrentProgress = uc.CurrentProgress
		resp.StartDate = uc.StartDate
		resp.EndDate = uc.EndDate
	}
	return resp
}

type ClaimChallengeResponse struct {
	Challenge ChallengeResponse `json:"challenge"`
	Reward    int               `json:"reward"`
	Bellotas  int               `json:"bellotas"`
}

type VirtualGoodResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Price       int    `json:"price"`
	Owned       bool   `json:"owned"`
}

func NewVirtualGoodResponse(g models.VirtualGood, owned bool) VirtualGoodResponse {
	return VirtualGoodResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Icon:        g.Icon,
		Price:       g.Price,
		Owned:       owned,
	}
}

type PurchaseResponse struct {
	Good     VirtualGoodResponse `json:"good"`
	Bellotas int                 `json:"bellotas"`
}

type ProfileResponse struct {
	Level          int      `json:"level"`
	ExpensesCount  int      `json:"expenses_count"`
	FormalityIndex float64  `json:"formality_index"`
	Bellotas       int      `json:"bellotas"`
	Badges         []string `json:"badges"`
	PurchasedGoods []string `json:"purchased_goods"`
}
