package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treevut/internal/api"
	"treevut/internal/api/handlers"
	"treevut/internal/repository"
	"treevut/internal/service"
	"treevut/pkg/auth"
	"treevut/pkg/config"
	"treevut/pkg/logger"
	"treevut/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting treevut service")

	ctx := context.Background()

	// Key-value store backend
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

	// Repositories
	userRepo := repository.NewUserRepository(store, appLogger)
	stateRepo := repository.NewStateRepository(store, cfg.Ledger.DefaultBudget, appLogger)

	// JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	gamificationService := service.NewGamificationService(appLogger)
	ledgerService := service.NewLedgerService(stateRepo, gamificationService, appLogger)

	notifier := service.NewNotifier(&cfg.Notify, appLogger)
	ledgerService.AddListener(service.NotificationListener(notifier))

	syncService := service.NewSyncService(cfg.Sync, ledgerService, appLogger)
	if syncService.Enabled() {
		appLogger.Info("Remote sync enabled", zap.String("base_url", cfg.Sync.BaseURL))
		ledgerService.AddListener(syncService.Listener())
	}
	defer syncService.Close()

	extractionService, err := service.NewExtractionService(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize extraction service", zap.Error(err))
	}
	defer extractionService.Close()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	expenseHandler := handlers.NewExpenseHandler(ledgerService, appLogger)
	gamificationHandler := handlers.NewGamificationHandler(ledgerService, appLogger)
	extractHandler := handlers.NewExtractHandler(extractionService, appLogger)

	app := api.SetupRouter(authHandler, expenseHandler, gamificationHandler, extractHandler, jwtManager, appLogger)

	// Idle streak check: resets streaks broken by inactivity and notifies
	// once per break.
	streakCtx, stopStreaks := context.WithCancel(ctx)
	defer stopStreaks()
	go func() {
		ticker := time.NewTicker(cfg.Ledger.StreakCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-streakCtx.Done():
				return
			case <-ticker.C:
				ledgerService.CheckIdleStreaks(streakCtx)
			}
		}
	}()

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
