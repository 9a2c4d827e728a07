package service

import "treevut/internal/models"

// allVirtualGoods is the marketplace catalog: tree decorations, premium
// reports, visual themes, premium features and real-world coupons.
var allVirtualGoods = []models.VirtualGood{
	{ID: "vg_pot_clay", Name: "Maceta de Arcilla", Description: "Una maceta clásica y robusta para tu árbol.", Icon: "🏺", Price: 100},
	{ID: "vg_pot_gold", Name: "Maceta de Oro", Description: "Una maceta de lujo para mostrar tu maestría financiera.", Icon: "🏆", Price: 1000},
	{ID: "vg_leaves_autumn", Name: "Hojas de Otoño", Description: "Decora tu árbol con cálidos colores otoñales.", Icon: "🍂", Price: 250},
	{ID: "vg_bird_nest", Name: "Nido de Pájaro", Description: "Un hogar para un amiguito emplumado en tu árbol.", Icon: "🐦", Price: 500},
	{ID: "vg_leaves_spring", Name: "Hojas de Primavera", Description: "Hojas verdes vibrantes que simbolizan crecimiento.", Icon: "🌿", Price: 200},
	{ID: "vg_flowers", Name: "Flores de Cerezo", Description: "Hermosas flores rosadas para decorar tu árbol.", Icon: "🌸", Price: 300},
	{ID: "vg_fruits", Name: "Frutos Dorados", Description: "Frutos brillantes que representan tu éxito financiero.", Icon: "🍎", Price: 400},
	{ID: "vg_butterfly", Name: "Mariposa Visitante", Description: "Una hermosa mariposa que revolotea alrededor de tu árbol.", Icon: "🦋", Price: 350},
	{ID: "vg_owl", Name: "Búho Sabio", Description: "Un búho que simboliza sabiduría financiera.", Icon: "🦉", Price: 600},
	{ID: "vg_report_annual", Name: "Informe Anual Avanzado", Description: "Un análisis detallado de tus finanzas del último año.", Icon: "📊", Price: 750},
	{ID: "vg_report_category", Name: "Análisis Profundo por Categoría", Description: "Desglose exhaustivo de tus gastos en una categoría específica.", Icon: "📈", Price: 400},
	{ID: "vg_theme_dark", Name: "Tema Oscuro Premium", Description: "Interfaz elegante con colores oscuros y acentos dorados.", Icon: "🌙", Price: 800},
	{ID: "vg_theme_forest", Name: "Tema Bosque Encantado", Description: "Colores naturales inspirados en un bosque mágico.", Icon: "🌲", Price: 800},
	{ID: "vg_theme_ocean", Name: "Tema Océano Profundo", Description: "Tonos azules relajantes inspirados en el mar.", Icon: "🌊", Price: 800},
	{ID: "vg_export_excel", Name: "Exportación a Excel", Description: "Exporta todos tus gastos a un archivo Excel detallado.", Icon: "📈", Price: 500},
	{ID: "vg_ai_advisor", Name: "Asesor IA Premium (7 días)", Description: "Acceso ilimitado al asistente de IA por una semana.", Icon: "🤖", Price: 1200},
	{ID: "vg_custom_categories", Name: "Categorías Personalizadas", Description: "Crea tus propias categorías de gastos.", Icon: "🏷️", Price: 600},
	{ID: "vg_discount_food", Name: "Cupón 10% Restaurantes", Description: "Descuento del 10% en restaurantes asociados.", Icon: "🍽️", Price: 300},
	{ID: "vg_discount_transport", Name: "Cupón 15% Transporte", Description: "Descuento del 15% en apps de transporte.", Icon: "🚗", Price: 400},
	{ID: "vg_discount_shopping", Name: "Cupón 20% Compras", Description: "Descuento del 20% en tiendas online seleccionadas.", Icon: "🛍️", Price: 500},
}

// AllVirtualGoods returns the marketplace catalog.
func AllVirtualGoods() []models.VirtualGood {
	return allVirtualGoods
}

// VirtualGoodByID looks up a catalog entry.
func VirtualGoodByID(id string) *models.VirtualGood {
	for i := range allVirtualGoods {
		if allVirtualGoods[i].ID == id {
			return &allVirtualGoods[i]
		}
	}
	return nil
}
