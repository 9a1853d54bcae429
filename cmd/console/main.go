package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-console/internal/adapters/api"
	"loan-console/internal/adapters/http/middleware"
	"loan-console/internal/adapters/http/routes"
	"loan-console/internal/adapters/persistence/models"
	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/config"
	"loan-console/internal/core/services"
	"loan-console/internal/core/session"
	"loan-console/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepSchedule = "@every 5m"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	// Session storage
	storage, db, err := openStorage(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to open session storage", zap.Error(err))
	}
	defer config.CloseDatabase(db) //nolint:errcheck
	zl.Info("✅ Session storage ready", zap.String("backend", cfg.Storage.Backend))

	// Polling scheduler (user dashboard refresh, idle workspace sweep)
	poller, err := services.NewPoller(cfg.Dashboard.PollSchedule, zl)
	if err != nil {
		zl.Fatal("❌ Invalid poll schedule", zap.Error(err))
	}

	client := api.NewClient(cfg.API, zl)
	registry := services.NewRegistry(storage, func(s *session.Store) services.LoanAPI {
		return client.WithSession(s)
	}, poller, services.RegistryConfig{
		Dashboard:  cfg.Dashboard,
		FetchLimit: cfg.API.FetchLimit,
		Logger:     zl,
	})

	if err := poller.Every("workspace-sweep", sweepSchedule, func() { registry.Sweep() }); err != nil {
		zl.Fatal("❌ Failed to schedule workspace sweep", zap.Error(err))
	}
	poller.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Loan Console",
		ErrorHandler: middleware.CustomErrorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, routes.Dependencies{
		Config:   cfg,
		Storage:  storage,
		Registry: registry,
		Auth:     services.NewAuthService(zl),
		LoanForm: services.NewLoanFormService(zl),
	})

	// Graceful shutdown
	go gracefulShutdown(app, zl)

	// Start server
	zl.Info("🚀 Console starting",
		zap.String("port", cfg.Port),
		zap.String("mode", cfg.AppMode),
		zap.String("loan_service", cfg.API.BaseURL),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Error("❌ Failed to start server", zap.Error(err))
	}

	poller.Stop()
	registry.Close()
	zl.Info("✅ Console stopped")
}

// openStorage builds the session storage backend. db is nil unless the
// mysql backend is selected.
func openStorage(cfg *config.Config, zl *zap.Logger) (repositories.StorageRepository, *gorm.DB, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return repositories.NewMemoryStorageRepository(), nil, nil
	case config.StorageMySQL:
		db, err := config.ConnectDatabase(cfg, zl)
		if err != nil {
			return nil, nil, err
		}
		// Auto migrate (creates the storage table if not exist)
		if err := models.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
		zl.Info("✅ Database migration completed")
		return repositories.NewGormStorageRepository(db), db, nil
	default:
		repo := repositories.NewFileStorageRepository(cfg.Storage.Path)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, zl *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("🛑 Shutting down console...")
	if err := app.Shutdown(); err != nil {
		zl.Error("❌ Error during shutdown", zap.Error(err))
	}
}
