package api

import (
	"treevut/internal/api/handlers"
	"treevut/pkg/auth"
	"treevut/pkg/middleware"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	expenseHandler *handlers.ExpenseHandler,
	gamificationHandler *handlers.GamificationHandler,
	extractHandler *handlers.ExtractHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 20 << 20, // receipt uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	expenses := protected.Group("/expenses")
	expenses.Post("", expenseHandler.Create)
	expenses.Get("", expenseHandler.List)
	expenses.Get("/export", expenseHandler.Export)
	expenses.Put("/:id", expenseHandler.Update)
	expenses.Delete("/:id", expenseHandler.Delete)

	protected.Get("/dashboard", expenseHandler.Dashboard)
	protected.Put("/budget", expenseHandler.SetBudget)
	protected.Put("/income", expenseHandler.SetIncome)
	protected.Get("/tax/refund", expenseHandler.RefundEstimate)

	gamification := protected.Group("/gamification")
	gamification.Get("/profile", gamificationHandler.Profile)
	gamification.Get("/streak", gamificationHandler.Streak)
	gamification.Get("/badges", gamificationHandler.Badges)

	challenges := protected.Group("/challenges")
	challenges.Get("", gamificationHandler.Challenges)
	challenges.Post("/:id/claim", gamificationHandler.ClaimChallenge)

	market := protected.Group("/market")
	market.Get("/goods", gamificationHandler.Goods)
	market.Post("/goods/:id/purchase", gamificationHandler.Purchase)

	extract := protected.Group("/extract")
	extract.Post("/expense/image", extractHandler.ExpenseFromImage)
	extract.Post("/expense/audio", extractHandler.ExpenseFromAudio)
	extract.Post("/products/image", extractHandler.ProductsFromImage)
	extract.Post("/products/audio", extractHandler.ProductsFromAudio)
	extract.Post("/verify", extractHandler.VerifyReceipt)
	extract.Post("/budget", extractHandler.BudgetFromText)

	return app
}
