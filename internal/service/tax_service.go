package service

import "treevut/internal/models"

// Statutory constants for the Peruvian regime. The IGV fraction 18/118
// extracts the tax component embedded in a gross amount.
const (
	DeductibleTransactionRate = 0.03
	UIT                       = 5150.0 // Unidad Impositiva Tributaria, 2024
	MaxDeductionUITs          = 3
)

// DeductibleCategories is the fixed subset of categories whose expenses
// qualify for the personal deduction when backed by a formal receipt.
var DeductibleCategories = map[models.ExpenseCategory]bool{
	models.CategoryFood:     true,
	models.CategoryLeisure:  true,
	models.CategoryServices: true,
	models.CategoryHealth:   true,
	models.CategoryHousing:  true,
}

// ConsumptionTax returns the IGV component of a gross total.
func ConsumptionTax(total float64) float64 {
	if total > 0 {
		return total * 18 / 118
	}
	return 0
}

// LostSavings returns the deduction value forfeited by an informal expense.
// Formal expenses, non-positive totals and non-deductible categories forfeit
// nothing.
func LostSavings(total float64, category models.ExpenseCategory, isFormal bool) float64 {
	if isFormal || total <= 0 || !DeductibleCategories[category] {
		return 0
	}
	return total * DeductibleTransactionRate
}

// incomeTaxBrackets holds the progressive rates by cumulative taxable income
// expressed in UITs. The marginal rate of the top bracket reached applies to
// the deduction refund estimate.
var incomeTaxBrackets = []struct {
	upToUITs float64
	rate     float64
}{
	{5, 0.08},
	{20, 0.14},
	{35, 0.17},
	{45, 0.20},
	{0, 0.30}, // no upper bound
}

// EstimateRefund estimates the tax refund for an accumulated deductible
// spend given the user's annual income. The deductible base is capped at
// 3 UIT; incomes below the 7 UIT standard deduction owe no tax and refund
// nothing.
func EstimateRefund(deductibleSpend, annualIncome float64) float64 {
	if deductibleSpend <= 0 || annualIncome <= 0 {
		return 0
	}

	taxable := annualIncome - 7*UIT
	if taxable <= 0 {
		return 0
	}

	base := deductibleSpend
	if max := MaxDeductionUITs * UIT; base > max {
		base = max
	}

	rate := incomeTaxBrackets[len(incomeTaxBrackets)-1].rate
	for _, b := range incomeTaxBrackets {
		if b.upToUITs > 0 && taxable <= b.upToUITs*UIT {
			rate = b.rate
			break
		}
	}

	return base * rate
}
