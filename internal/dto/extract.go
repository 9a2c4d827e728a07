package dto

import "treevut/internal/models"

type ExtractedExpenseResponse struct {
	Expense ExpenseDataResponse `json:"expense"`
}

type ExpenseDataResponse struct {
	MerchantName   string  `json:"merchant_name"`
	TaxID          string  `json:"tax_id"`
	Date           string  `json:"date"`
	Total          float64 `json:"total"`
	Category       string  `json:"category"`
	ReceiptType    string  `json:"receipt_type"`
	IsFormal       bool    `json:"is_formal"`
	LostSavings    float64 `json:"lost_savings"`
	ConsumptionTax float64 `json:"consumption_tax"`
}

func NewExpenseDataResponse(d models.ExpenseData) ExpenseDataResponse {
	return ExpenseDataResponse{
		MerchantName:   d.MerchantName,
		TaxID:          d.TaxID,
		Date:           d.Date,
		Total:          d.Total,
		Category:       string(d.Category),
		ReceiptType:    string(d.ReceiptType),
		IsFormal:       d.IsFormal,
		LostSavings:    d.LostSavings,
		ConsumptionTax: d.ConsumptionTax,
	}
}

type ProductResponse struct {
	ProductName    string  `json:"product_name"`
	EstimatedPrice float64 `json:"estimated_price"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    float64           `json:"total"`
}

type VerificationCheckResponse struct {
	Item   string `json:"item"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

type VerificationResponse struct {
	Checks              []VerificationCheckResponse `json:"checks"`
	IsValidForDeduction bool                        `json:"is_valid_for_deduction"`
	OverallVerdict      string                      `json:"overall_verdict"`
	ReasonForInvalidity string                      `json:"reason_for_invalidity,omitempty"`
}

type ExtractBudgetRequest struct {
	Text string `json:"text" validate:"required"`
}

type ExtractBudgetResponse struct {
	Budget float64 `json:"budget"`
}
