package handlers

import (
	"errors"

	"treevut/internal/dto"
	"treevut/internal/models"
	"treevut/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ExpenseHandler struct {
	ledger *service.LedgerService
	logger *zap.Logger
}

func NewExpenseHandler(ledger *service.LedgerService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Create registers a new expense for the authenticated user.
func (h *ExpenseHandler) Create(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	data := models.ExpenseData{
		MerchantName:  req.MerchantName,
		TaxID:         req.TaxID,
		Date:          req.Date,
		Total:         req.Total,
		Category:      models.ParseCategory(req.Category),
		ReceiptType:   models.ParseReceiptType(req.ReceiptType),
		IsFormal:      req.IsFormal,
		IsProductScan: req.IsProductScan,
	}

	exp, err := h.ledger.Add(c.Context(), userID, data)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTotal) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid total amount",
			})
		}
		h.logger.Error("Failed to create expense", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create expense",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewExpenseResponse(*exp))
}

// List returns all expenses of the authenticated user.
func (h *ExpenseHandler) List(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	expenses := make([]dto.ExpenseResponse, 0, len(state.Expenses))
	for _, e := range state.Expenses {
		expenses = append(expenses, dto.NewExpenseResponse(e))
	}

	return c.JSON(fiber.Map{"expenses": expenses})
}

// Update applies a partial update to one expense. Unknown ids are a no-op.
func (h *ExpenseHandler) Update(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	expenseID := c.Params("id")

	var req dto.UpdateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	patch := service.ExpensePatch{
		MerchantName:  req.MerchantName,
		TaxID:         req.TaxID,
		Date:          req.Date,
		Total:         req.Total,
		IsFormal:      req.IsFormal,
		IsProductScan: req.IsProductScan,
	}
	if req.Category != nil {
		cat := models.ParseCategory(*req.Category)
		patch.Category = &cat
	}
	if req.ReceiptType != nil {
		rt := models.ParseReceiptType(*req.ReceiptType)
		patch.ReceiptType = &rt
	}

	if err := h.ledger.Update(c.Context(), userID, expenseID, patch); err != nil {
		if errors.Is(err, service.ErrInvalidTotal) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid total amount",
			})
		}
		h.logger.Error("Failed to update expense", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update expense",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes one expense. Unknown ids are a no-op.
func (h *ExpenseHandler) Delete(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	if err := h.ledger.Delete(c.Context(), userID, c.Params("id")); err != nil {
		h.logger.Error("Failed to delete expense", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete expense",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Export streams the ledger as a CSV download.
func (h *ExpenseHandler) Export(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	data, err := h.ledger.ExportCSV(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to export expenses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export expenses",
		})
	}

	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", `attachment; filename="gastos_treevut.csv"`)
	return c.Send(data)
}

// Dashboard returns the combined ledger and gamification overview.
func (h *ExpenseHandler) Dashboard(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, agg := h.ledger.Snapshot(c.Context(), userID)

	expenses := make([]dto.ExpenseResponse, 0, len(state.Expenses))
	for _, e := range state.Expenses {
		expenses = append(expenses, dto.NewExpenseResponse(e))
	}

	return c.JSON(dto.DashboardResponse{
		Expenses:               expenses,
		Budget:                 state.Budget,
		AnnualIncome:           state.AnnualIncome,
		TotalExpenses:          agg.TotalExpenses,
		TotalLostSavings:       agg.TotalLostSavings,
		FormalityIndexByAmount: agg.FormalityIndexByAmount,
		FormalityIndexByCount:  agg.FormalityIndexByCount,
		Level:                  int(state.Profile.Level),
		ExpensesCount:          state.Profile.Progress.ExpensesCount,
		Bellotas:               state.Bellotas,
		CurrentStreak:          state.Streak.CurrentStreak,
		LongestStreak:          state.Streak.LongestStreak,
	})
}

// SetBudget overwrites the monthly budget.
func (h *ExpenseHandler) SetBudget(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req dto.SetBudgetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.ledger.SetBudget(c.Context(), userID, req.Budget); err != nil {
		if errors.Is(err, service.ErrInvalidBudget) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid budget amount",
			})
		}
		h.logger.Error("Failed to set budget", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to set budget",
		})
	}

	return c.JSON(fiber.Map{"budget": req.Budget})
}

// SetIncome overwrites the annual income used for refund estimates.
func (h *ExpenseHandler) SetIncome(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req dto.SetIncomeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.ledger.SetAnnualIncome(c.Context(), userID, req.AnnualIncome); err != nil {
		if errors.Is(err, service.ErrInvalidBudget) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid income amount",
			})
		}
		h.logger.Error("Failed to set income", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to set income",
		})
	}

	return c.JSON(fiber.Map{"annual_income": req.AnnualIncome})
}

// RefundEstimate returns the estimated income-tax refund from formal
// deductible spending.
func (h *ExpenseHandler) RefundEstimate(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	deductibleSpend, refund := h.ledger.EstimateRefund(c.Context(), userID)

	return c.JSON(dto.RefundEstimateResponse{
		DeductibleSpend: deductibleSpend,
		EstimatedRefund: refund,
		AnnualIncome:    state.AnnualIncome,
	})
}
