package dto

import "treevut/internal/models"

type CreateExpenseRequest struct {
	MerchantName  string  `json:"merchant_name" validate:"required,max=256"`
	TaxID         string  `json:"tax_id" validate:"max=32"`
	Date          string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Total         float64 `json:"total" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	ReceiptType   string  `json:"receipt_type" validate:"required"`
	IsFormal      bool    `json:"is_formal"`
	IsProductScan bool    `json:"is_product_scan"`
}

// UpdateExpenseRequest carries a partial update; absent fields keep their
// stored values.
type UpdateExpenseRequest struct {
	MerchantName  *string  `json:"merchant_name,omitempty" validate:"omitempty,max=256"`
	TaxID         *string  `json:"tax_id,omitempty" validate:"omitempty,max=32"`
	Date          *string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Total         *float64 `json:"total,omitempty"`
	Category      *string  `json:"category,omitempty"`
	ReceiptType   *string  `json:"receipt_type,omitempty"`
	IsFormal      *bool    `json:"is_formal,omitempty"`
	IsProductScan *bool    `json:"is_product_scan,omitempty"`
}

type ExpenseResponse struct {
	ID             string  `json:"id"`
	MerchantName   string  `json:"merchant_name"`
	TaxID          string  `json:"tax_id"`
	Date           string  `json:"date"`
	Total          float64 `json:"total"`
	Category       string  `json:"category"`
	ReceiptType    string  `json:"receipt_type"`
	IsFormal       bool    `json:"is_formal"`
	LostSavings    float64 `json:"lost_savings"`
	ConsumptionTax float64 `json:"consumption_tax"`
	IsProductScan  bool    `json:"is_product_scan"`
}

func NewExpenseResponse(e models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:             e.ID,
		MerchantName:   e.MerchantName,
		TaxID:          e.TaxID,
		Date:           e.Date,
		Total:          e.Total,
		Category:       string(e.Category),
		ReceiptType:    string(e.ReceiptType),
		IsFormal:       e.IsFormal,
		LostSavings:    e.LostSavings,
		ConsumptionTax: e.ConsumptionTax,
		IsProductScan:  e.IsProductScan,
	}
}

type SetBudgetRequest struct {
	Budget float64 `json:"budget" validate:"gte=0"`
}

type SetIncomeRequest struct {
	AnnualIncome float64 `json:"annual_income" validate:"gte=0"`
}

type RefundEstimateResponse struct {
	DeductibleSpend float64 `json:"deductible_spend"`
	EstimatedRefund float64 `json:"estimated_refund"`
	AnnualIncome    float64 `json:"annual_income"`
}
