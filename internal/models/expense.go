package models

// ExpenseCategory is the closed set of spending categories. Values coming
// from the AI collaborator outside this set are coerced to CategoryOther at
// the boundary, never stored as raw strings.
type ExpenseCategory string

const (
	CategoryFood        ExpenseCategory = "Alimentación"
	CategoryHousing     ExpenseCategory = "Vivienda"
	CategoryTransport   ExpenseCategory = "Transporte"
	CategoryHealth      ExpenseCategory = "Salud"
	CategoryLeisure     ExpenseCategory = "Ocio"
	CategoryEducation   ExpenseCategory = "Educación"
	CategoryConsumables ExpenseCategory = "Consumos"
	CategoryServices    ExpenseCategory = "Servicios"
	CategoryOther       ExpenseCategory = "Otros"
)

// AllCategories lists every valid category, in display order.
var AllCategories = []ExpenseCategory{
	CategoryFood,
	CategoryHousing,
	CategoryTransport,
	CategoryHealth,
	CategoryLeisure,
	CategoryEducation,
	CategoryConsumables,
	CategoryServices,
	CategoryOther,
}

// ParseCategory coerces an arbitrary string to a known category.
func ParseCategory(s string) ExpenseCategory {
	for _, c := range AllCategories {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}

// ReceiptType is the closed set of Peruvian voucher kinds.
type ReceiptType string

const (
	ReceiptElectronicInvoice ReceiptType = "Factura Electrónica"
	ReceiptElectronicSales   ReceiptType = "Boleta de Venta Electrónica"
	ReceiptHonorarium        ReceiptType = "Recibo por Honorarios Electrónico"
	ReceiptLease             ReceiptType = "Recibo por Arrendamiento"
	ReceiptTransportTicket   ReceiptType = "Boleto de Transporte"
	ReceiptUtility           ReceiptType = "Recibo de Servicios Públicos"
	ReceiptPOSTicket         ReceiptType = "Ticket POS"
	ReceiptCashRegister      ReceiptType = "Ticket de Máquina Registradora"
	ReceiptOther             ReceiptType = "Otro Comprobante"
	ReceiptNone              ReceiptType = "Sin Comprobante"
)

// AllReceiptTypes lists every valid receipt type.
var AllReceiptTypes = []ReceiptType{
	ReceiptElectronicInvoice,
	ReceiptElectronicSales,
	ReceiptHonorarium,
	ReceiptLease,
	ReceiptTransportTicket,
	ReceiptUtility,
	ReceiptPOSTicket,
	ReceiptCashRegister,
	ReceiptOther,
	ReceiptNone,
}

// ParseReceiptType coerces an arbitrary string to a known receipt type.
func ParseReceiptType(s string) ReceiptType {
	for _, t := range AllReceiptTypes {
		if string(t) == s {
			return t
		}
	}
	return ReceiptOther
}

// Expense is one user transaction. Dates carry no time component and are
// stored as ISO YYYY-MM-DD strings.
type Expense struct {
	ID             string          `json:"id"`
	MerchantName   string          `json:"merchant_name"`
	TaxID          string          `json:"tax_id"`
	Date           string          `json:"date"`
	Total          float64         `json:"total"`
	Category       ExpenseCategory `json:"category"`
	ReceiptType    ReceiptType     `json:"receipt_type"`
	IsFormal       bool            `json:"is_formal"`
	LostSavings    float64         `json:"lost_savings"`
	ConsumptionTax float64         `json:"consumption_tax"`
	IsProductScan  bool            `json:"is_product_scan,omitempty"`
}

// ExpenseData is the expense payload before an ID is assigned, as produced
// by manual entry or the AI extraction collaborator.
type ExpenseData struct {
	MerchantName   string          `json:"merchant_name"`
	TaxID          string          `json:"tax_id"`
	Date           string          `json:"date"`
	Total          float64         `json:"total"`
	Category       ExpenseCategory `json:"category"`
	ReceiptType    ReceiptType     `json:"receipt_type"`
	IsFormal       bool            `json:"is_formal"`
	LostSavings    float64         `json:"lost_savings"`
	ConsumptionTax float64         `json:"consumption_tax"`
	IsProductScan  bool            `json:"is_product_scan,omitempty"`
}

// Product is a single line item recognized by a product scan.
type Product struct {
	ProductName    string  `json:"product_name"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// VerificationCheck is one item of a receipt validity verification.
type VerificationCheck struct {
	Item   string `json:"item"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// VerificationResult is the outcome of verifying a receipt image against
// deduction eligibility rules.
type VerificationResult struct {
	Checks              []VerificationCheck `json:"checks"`
	IsValidForDeduction bool                `json:"is_valid_for_deduction"`
	OverallVerdict      string              `json:"overall_verdict"`
	ReasonForInvalidity string              `json:"reason_for_invalidity,omitempty"`
}
