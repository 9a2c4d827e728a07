package service

import "treevut/internal/models"

// allBadges is the full badge catalog. Badges are keyed by stable ids so
// unlocked sets survive catalog edits.
var allBadges = []models.Badge{
	{ID: "badge_first_expense", Name: "Primer Paso", Description: "Registraste tu primer gasto", Icon: "🎯", Category: models.BadgeAchievement, Rarity: models.RarityCommon},
	{ID: "badge_100_expenses", Name: "Centenario", Description: "Registraste 100 gastos", Icon: "💯", Category: models.BadgeAchievement, Rarity: models.RarityRare},
	{ID: "badge_500_expenses", Name: "Maestro del Registro", Description: "Registraste 500 gastos", Icon: "🏆", Category: models.BadgeAchievement, Rarity: models.RarityEpic},
	{ID: "badge_1000_expenses", Name: "Leyenda Financiera", Description: "Registraste 1000 gastos", Icon: "👑", Category: models.BadgeAchievement, Rarity: models.RarityLegendary},
	{ID: "badge_formality_90", Name: "Héroe de la Formalidad", Description: "Alcanzaste 90% de índice de formalidad", Icon: "🦸", Category: models.BadgeMastery, Rarity: models.RarityRare},
	{ID: "badge_formality_95", Name: "Campeón de la Formalidad", Description: "Alcanzaste 95% de índice de formalidad", Icon: "🏅", Category: models.BadgeMastery, Rarity: models.RarityEpic},
	{ID: "badge_formality_100", Name: "Perfección Absoluta", Description: "100% de formalidad en todos tus gastos", Icon: "💎", Category: models.BadgeMastery, Rarity: models.RarityLegendary},
	{ID: "badge_streak_30", Name: "Mes de Oro", Description: "Mantuviste una racha de 30 días", Icon: "🔥", Category: models.BadgeMastery, Rarity: models.RarityRare},
	{ID: "badge_streak_90", Name: "Trimestre Legendario", Description: "Mantuviste una racha de 90 días", Icon: "⚡", Category: models.BadgeMastery, Rarity: models.RarityEpic},
	{ID: "badge_streak_365", Name: "Año de Maestría", Description: "Mantuviste una racha de 365 días", Icon: "🌟", Category: models.BadgeMastery, Rarity: models.RarityLegendary},
	{ID: "badge_all_categories", Name: "Explorador de Categorías", Description: "Registraste gastos en todas las categorías", Icon: "🧭", Category: models.BadgeExploration, Rarity: models.RarityRare},
	{ID: "badge_10_companies", Name: "Gurú del RUC", Description: "Registraste gastos de 10 empresas diferentes", Icon: "🏢", Category: models.BadgeExploration, Rarity: models.RarityCommon},
	{ID: "badge_budget_master", Name: "Maestro del Presupuesto", Description: "Mantuviste tu presupuesto por 3 meses consecutivos", Icon: "💰", Category: models.BadgeExploration, Rarity: models.RarityRare},
}

// AllBadges returns the badge catalog.
func AllBadges() []models.Badge {
	return allBadges
}

func badgeByID(id string) *models.Badge {
	for i := range allBadges {
		if allBadges[i].ID == id {
			return &allBadges[i]
		}
	}
	return nil
}

// CheckBadgesToUnlock returns the badges whose predicates hold and that are
// not yet unlocked. Unlocks are monotone: callers only ever append the
// result to the unlocked set.
func CheckBadgesToUnlock(
	expenses []models.Expense,
	formalityIndex float64,
	currentStreak, longestStreak int,
	unlocked []string,
) []models.Badge {
	has := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		has[id] = true
	}

	categories := make(map[models.ExpenseCategory]bool)
	taxIDs := make(map[string]bool)
	for _, e := range expenses {
		categories[e.Category] = true
		if e.TaxID != "" {
			taxIDs[e.TaxID] = true
		}
	}

	qualify := func(id string, ok bool) *models.Badge {
		if ok && !has[id] {
			return badgeByID(id)
		}
		return nil
	}

	candidates := []*models.Badge{
		qualify("badge_first_expense", len(expenses) >= 1),
		qualify("badge_100_expenses", len(expenses) >= 100),
		qualify("badge_500_expenses", len(expenses) >= 500),
		qualify("badge_1000_expenses", len(expenses) >= 1000),
		qualify("badge_formality_90", formalityIndex >= 90 && len(expenses) > 0),
		qualify("badge_formality_95", formalityIndex >= 95 && len(expenses) > 0),
		qualify("badge_formality_100", formalityIndex == 100 && len(expenses) > 0),
		qualify("badge_streak_30", longestStreak >= 30),
		qualify("badge_streak_90", longestStreak >= 90),
		qualify("badge_streak_365", longestStreak >= 365),
		qualify("badge_all_categories", len(categories) == len(models.AllCategories)),
		qualify("badge_10_companies", len(taxIDs) >= 10),
	}

	var out []models.Badge
	for _, b := range candidates {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}
