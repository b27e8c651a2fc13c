package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tobyn/brandlens/internal/api"
	"github.com/tobyn/brandlens/internal/config"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/queue"
	"github.com/tobyn/brandlens/internal/repository"
	"github.com/tobyn/brandlens/internal/service"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "brandlens-api",
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			appLogger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	sessionRepo := repository.NewSessionRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	mentionRepo := repository.NewMentionRepository(db)
	citationRepo := repository.NewCitationRepository(db)

	queueClient := queue.New(db, queue.Config{
		PollInterval:      cfg.Audit.PollInterval,
		VisibilityTimeout: cfg.Audit.VisibilityTimeout,
		MaxAttempts:       cfg.Audit.MaxAttempts,
	})

	trackingService := service.NewTrackingService(
		sessionRepo,
		promptRepo,
		responseRepo,
		mentionRepo,
		citationRepo,
		nil,
		queueClient,
	)
	analyticsService := service.NewAnalyticsService(
		sessionRepo,
		promptRepo,
		responseRepo,
		mentionRepo,
	)

	router := api.SetupRouter(trackingService, analyticsService, &api.RouterConfig{
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		Logger:         appLogger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).
			WithField("mode", cfg.Server.Mode).
			Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
