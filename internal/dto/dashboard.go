package dto

type DashboardResponse struct {
	Expenses               []ExpenseResponse `json:"expenses"`
	Budget                 float64           `json:"budget"`
	AnnualIncome           float64           `json:"annual_income"`
	TotalExpenses          float64           `json:"total_expenses"`
	TotalLostSavings       float64           `json:"total_lost_savings"`
	FormalityIndexByAmount float64           `json:"formality_index_by_amount"`
	FormalityIndexByCount  float64           `json:"formality_index_by_count"`
	Level                  int               `json:"level"`
	ExpensesCount          int               `json:"expenses_count"`
	Bellotas               int               `json:"bellotas"`
	CurrentStreak          int               `json:"current_streak"`
	LongestStreak          int               `json:"longest_streak"`
}
