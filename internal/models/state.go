package models

// UserState is the full ledger + gamification bundle owned by one user.
// The ledger service holds it in memory for the session; the repository
// persists each slice under its own store key.
type UserState struct {
	Expenses       []Expense       `json:"expenses"`
	Budget         float64         `json:"budget"`
	AnnualIncome   float64         `json:"annual_income"`
	Streak         StreakRecord    `json:"streak"`
	Badges         []string        `json:"badges"`
	Bellotas       int             `json:"bellotas"`
	PurchasedGoods []string        `json:"purchased_goods"`
	Challenges     []UserChallenge `json:"challenges"`
	Profile        Profile         `json:"profile"`
}
