package handlers

import (
	"errors"

	"treevut/internal/dto"
	"treevut/internal/models"
	"treevut/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GamificationHandler struct {
	ledger *service.LedgerService
	logger *zap.Logger
}

func NewGamificationHandler(ledger *service.LedgerService, logger *zap.Logger) *GamificationHandler {
	return &GamificationHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Profile returns the user's gamification profile.
func (h *GamificationHandler) Profile(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	return c.JSON(dto.ProfileResponse{
		Level:          int(state.Profile.Level),
		ExpensesCount:  state.Profile.Progress.ExpensesCount,
		FormalityIndex: state.Profile.Progress.FormalityIndex,
		Bellotas:       state.Bellotas,
		Badges:         state.Badges,
		PurchasedGoods: state.PurchasedGoods,
	})
}

// Streak returns the formality streak with the next milestone preview.
func (h *GamificationHandler) Streak(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	resp := dto.StreakResponse{
		CurrentStreak:         state.Streak.CurrentStreak,
		LongestStreak:         state.Streak.LongestStreak,
		LastFormalExpenseDate: state.Streak.LastFormalExpenseDate,
	}
	if next := service.NextMilestone(state.Streak.CurrentStreak); next != nil {
		resp.NextMilestoneDays = next.Days
		resp.NextMilestoneReward = next.Reward
	}
	return c.JSON(resp)
}

// Badges returns the full catalog with unlock state.
func (h *GamificationHandler) Badges(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	unlocked := make(map[string]bool, len(state.Badges))
	for _, id := range state.Badges {
		unlocked[id] = true
	}

	catalog := service.AllBadges()
	badges := make([]dto.BadgeResponse, 0, len(catalog))
	for _, b := range catalog {
		badges = append(badges, dto.NewBadgeResponse(b, unlocked[b.ID]))
	}
	return c.JSON(fiber.Map{"badges": badges})
}

// Challenges returns the challenge catalog merged with the user's
// progress.
func (h *GamificationHandler) Challenges(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	progress := make(map[string]*models.UserChallenge, len(state.Challenges))
	for i := range state.Challenges {
		progress[state.Challenges[i].ChallengeID] = &state.Challenges[i]
	}

	catalog := service.AllChallenges()
	challenges := make([]dto.ChallengeResponse, 0, len(catalog))
	for _, def := range catalog {
		challenges = append(challenges, dto.NewChallengeResponse(def, progress[def.ID]))
	}
	return c.JSON(fiber.Map{"challenges": challenges})
}

// ClaimChallenge credits a completed challenge's reward.
func (h *GamificationHandler) ClaimChallenge(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	challenge, err := h.ledger.ClaimChallenge(c.Context(), userID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Challenge not found",
			})
		case errors.Is(err, service.ErrChallengeNotCompleted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Challenge is not completed yet",
			})
		case errors.Is(err, service.ErrChallengeAlreadyClaimed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Challenge reward already claimed",
			})
		}
		h.logger.Error("Failed to claim challenge", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to claim challenge",
		})
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	return c.JSON(dto.ClaimChallengeResponse{
		Challenge: dto.NewChallengeResponse(*challenge, nil),
		Reward:    challenge.RewardBellotas,
		Bellotas:  state.Bellotas,
	})
}

// Goods returns the marketplace catalog with ownership state.
func (h *GamificationHandler) Goods(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	owned := make(map[string]bool, len(state.PurchasedGoods))
	for _, id := range state.PurchasedGoods {
		owned[id] = true
	}

	catalog := service.AllVirtualGoods()
	goods := make([]dto.VirtualGoodResponse, 0, len(catalog))
	for _, g := range catalog {
		goods = append(goods, dto.NewVirtualGoodResponse(g, owned[g.ID]))
	}
	return c.JSON(fiber.Map{"goods": goods, "bellotas": state.Bellotas})
}

// Purchase buys a virtual good with bellotas.
func (h *GamificationHandler) Purchase(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	good, err := h.ledger.Purchase(c.Context(), userID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGoodNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Virtual good not found",
			})
		case errors.Is(err, service.ErrGoodAlreadyOwned):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Virtual good already owned",
			})
		case errors.Is(err, service.ErrInsufficientBellotas):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Not enough bellotas",
			})
		}
		h.logger.Error("Failed to purchase good", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to purchase good",
		})
	}

	state, _ := h.ledger.Snapshot(c.Context(), userID)
	return c.JSON(dto.PurchaseResponse{
		Good:     dto.NewVirtualGoodResponse(*good, true),
		Bellotas: state.Bellotas,
	})
}
