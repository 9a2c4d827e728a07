package main

import (
	"context"
	"log"
	"time"

	"treevut/internal/models"
	"treevut/internal/repository"
	"treevut/internal/service"
	"treevut/pkg/auth"
	"treevut/pkg/config"
	"treevut/pkg/logger"
	"treevut/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Seeds a demo user with a realistic week of expenses. Expenses go through
// the ledger service so streaks, badges and challenges are evaluated the
// same way as in production.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()

	var store repository.Store
	switch cfg.Store.Backend {
	case "postgres":
		db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		pgStore := repository.NewPostgresStore(db, appLogger)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			appLogger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		store = pgStore
	default:
		badgerStore, err := repository.NewBadgerStore(cfg.Store.Path, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to open store", zap.Error(err))
		}
		store = badgerStore
	}
	defer store.Close()

	userRepo := repository.NewUserRepository(store, appLogger)
	stateRepo := repository.NewStateRepository(store, cfg.Ledger.DefaultBudget, appLogger)

	gamificationService := service.NewGamificationService(appLogger)
	ledgerService := service.NewLedgerService(stateRepo, gamificationService, appLogger)

	appLogger.Info("Seeding demo data...")

	userID, err := seedDemoUser(ctx, userRepo, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to seed demo user", zap.Error(err))
	}

	if err := seedDemoExpenses(ctx, ledgerService, userID); err != nil {
		appLogger.Fatal("Failed to seed demo expenses", zap.Error(err))
	}

	appLogger.Info("Seeding completed", zap.String("user_id", userID.String()))
}

func seedDemoUser(ctx context.Context, repo *repository.UserRepository, logger *zap.Logger) (uuid.UUID, error) {
	const demoEmail = "demo@treevut.pe"

	if existing, err := repo.GetByEmail(ctx, demoEmail); err == nil {
		logger.Info("Demo user already exists", zap.String("user_id", existing.ID.String()))
		return existing.ID, nil
	}

	hashed, err := auth.HashPassword("demo-password-123")
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		Username:  "maria.demo",
		Email:     demoEmail,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		return uuid.Nil, err
	}

	logger.Info("Demo user created", zap.String("user_id", user.ID.String()))
	return user.ID, nil
}

func seedDemoExpenses(ctx context.Context, ledger *service.LedgerService, userID uuid.UUID) error {
	if err := ledger.SetBudget(ctx, userID, 1800); err != nil {
		return err
	}
	if err := ledger.SetAnnualIncome(ctx, userID, 48000); err != nil {
		return err
	}

	day := func(offset int) string {
		return time.Now().UTC().AddDate(0, 0, -offset).Format("2006-01-02")
	}

	expenses := []models.ExpenseData{
		{MerchantName: "Tottus", TaxID: "20508565934", Date: day(6), Total: 152.40, Category: models.CategoryConsumables, ReceiptType: models.ReceiptElectronicSales, IsFormal: true},
		{MerchantName: "La Lucha Sangucheria", TaxID: "20513458552", Date: day(5), Total: 48.90, Category: models.CategoryFood, ReceiptType: models.ReceiptElectronicSales, IsFormal: true},
		{MerchantName: "Mercado de Surquillo", TaxID: "", Date: day(5), Total: 35.00, Category: models.CategoryFood, ReceiptType: models.ReceiptNone, IsFormal: false},
		{MerchantName: "Farmacia Inkafarma", TaxID: "20331066703", Date: day(4), Total: 62.30, Category: models.CategoryHealth, ReceiptType: models.ReceiptElectronicSales, IsFormal: true},
		{MerchantName: "Uber", TaxID: "", Date: day(3), Total: 18.50, Category: models.CategoryTransport, ReceiptType: models.ReceiptNone, IsFormal: false},
		{MerchantName: "Cineplanet", TaxID: "20429683581", Date: day(3), Total: 54.00, Category: models.CategoryLeisure, ReceiptType: models.ReceiptElectronicInvoice, IsFormal: true},
		{MerchantName: "Luz del Sur", TaxID: "20331898008", Date: day(2), Total: 98.70, Category: models.CategoryServices, ReceiptType: models.ReceiptUtility, IsFormal: true},
		{MerchantName: "Menu cerca a la oficina", TaxID: "", Date: day(1), Total: 14.00, Category: models.CategoryFood, ReceiptType: models.ReceiptNone, IsFormal: false},
		{MerchantName: "Plaza Vea", TaxID: "20100070970", Date: day(0), Total: 87.25, Category: models.CategoryConsumables, ReceiptType: models.ReceiptElectronicSales, IsFormal: true},
	}

	for _, data := range expenses {
		if _, err := ledger.Add(ctx, userID, data); err != nil {
			return err
		}
	}
	return nil
}
