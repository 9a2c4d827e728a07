package handlers

import (
	"io"

	"treevut/internal/dto"
	"treevut/internal/models"
	"treevut/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// maxUploadSize caps receipt images and voice notes at 15 MB.
const maxUploadSize = 15 << 20

type ExtractHandler struct {
	extraction *service.ExtractionService
	logger     *zap.Logger
}

func NewExtractHandler(extraction *service.ExtractionService, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{
		extraction: extraction,
		logger:     logger,
	}
}

// formFile reads the uploaded "file" form field into memory.
func formFile(c *fiber.Ctx) (string, []byte, *fiber.Error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "Missing file upload")
	}
	if file.Size > maxUploadSize {
		return "", nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "File too large")
	}

	src, err := file.Open()
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "Failed to read file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "Failed to read file")
	}
	return file.Filename, data, nil
}

// ExpenseFromImage extracts structured expense data from a receipt photo.
func (h *ExtractHandler) ExpenseFromImage(c *fiber.Ctx) error {
	fileName, data, ferr := formFile(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	expense, err := h.extraction.ExtractExpenseFromImage(c.Context(), data, fileName)
	if err != nil {
		h.logger.Warn("Expense extraction from image failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract an expense from the image",
		})
	}

	return c.JSON(dto.ExtractedExpenseResponse{Expense: dto.NewExpenseDataResponse(*expense)})
}

// ExpenseFromAudio extracts structured expense data from a voice note.
func (h *ExtractHandler) ExpenseFromAudio(c *fiber.Ctx) error {
	fileName, data, ferr := formFile(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	expense, err := h.extraction.ExtractExpenseFromAudio(c.Context(), data, fileName)
	if err != nil {
		h.logger.Warn("Expense extraction from audio failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract an expense from the audio",
		})
	}

	return c.JSON(dto.ExtractedExpenseResponse{Expense: dto.NewExpenseDataResponse(*expense)})
}

// ProductsFromImage identifies products and price estimates from a photo.
func (h *ExtractHandler) ProductsFromImage(c *fiber.Ctx) error {
	fileName, data, ferr := formFile(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	products, err := h.extraction.ExtractProductsFromImage(c.Context(), data, fileName)
	if err != nil {
		h.logger.Warn("Product extraction from image failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not identify products in the image",
		})
	}

	return c.JSON(productsResponse(products))
}

// ProductsFromAudio identifies products and price estimates from a voice
// note.
func (h *ExtractHandler) ProductsFromAudio(c *fiber.Ctx) error {
	fileName, data, ferr := formFile(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	products, err := h.extraction.ExtractProductsFromAudio(c.Context(), data, fileName)
	if err != nil {
		h.logger.Warn("Product extraction from audio failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not identify products in the audio",
		})
	}

	return c.JSON(productsResponse(products))
}

// VerifyReceipt audits a receipt photo for deduction eligibility.
func (h *ExtractHandler) VerifyReceipt(c *fiber.Ctx) error {
	fileName, data, ferr := formFile(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	result, err := h.extraction.VerifyReceipt(c.Context(), data, fileName)
	if err != nil {
		h.logger.Warn("Receipt verification failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not verify the receipt",
		})
	}

	checks := make([]dto.VerificationCheckResponse, 0, len(result.Checks))
	for _, chk := range result.Checks {
		checks = append(checks, dto.VerificationCheckResponse{
			Item:   chk.Item,
			Valid:  chk.Valid,
			Reason: chk.Reason,
		})
	}

	return c.JSON(dto.VerificationResponse{
		Checks:              checks,
		IsValidForDeduction: result.IsValidForDeduction,
		OverallVerdict:      result.OverallVerdict,
		ReasonForInvalidity: result.ReasonForInvalidity,
	})
}

// BudgetFromText extracts a numeric budget from free-form text.
func (h *ExtractHandler) BudgetFromText(c *fiber.Ctx) error {
	var req dto.ExtractBudgetRequest
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

	budget, err := h.extraction.ExtractBudgetFromText(c.Context(), req.Text)
	if err != nil {
		h.logger.Warn("Budget extraction failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract a budget amount",
		})
	}

	return c.JSON(dto.ExtractBudgetResponse{Budget: budget})
}

func productsResponse(products []models.Product) dto.ProductsResponse {
	resp := dto.ProductsResponse{Products: make([]dto.ProductResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, dto.ProductResponse{
			ProductName:    p.ProductName,
			EstimatedPrice: p.EstimatedPrice,
		})
		resp.Total += p.EstimatedPrice
	}
	return resp
}
