package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tobyn/brandlens/internal/config"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/queue"
	"github.com/tobyn/brandlens/internal/repository"
	"github.com/tobyn/brandlens/internal/service"
	"github.com/tobyn/brandlens/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "brandlens-worker",
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

	provider := service.NewChatGPTProvider(&service.ProviderConfig{
		Model:   cfg.Provider.Model,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
	})
	analyzer := service.NewLLMAnalyzer(&service.AnalyzerConfig{
		Model:   cfg.Analyzer.Model,
		APIKey:  cfg.Analyzer.APIKey,
		BaseURL: cfg.Analyzer.BaseURL,
	})

	// Report archival is optional: without a bucket the processor simply
	// finishes sessions in the database
	var archiver *service.ReportArchiver
	if cfg.Archive.Enabled && cfg.Archive.Bucket != "" {
		s3Store, err := storage.NewS3Storage(&storage.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize report storage")
		}
		if err := s3Store.EnsureBucket(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure report bucket")
		}
		archiver = service.NewReportArchiver(s3Store)
	}

	trackingService := service.NewTrackingService(
		sessionRepo,
		promptRepo,
		responseRepo,
		mentionRepo,
		citationRepo,
		nil,
		queueClient,
	)

	processor := service.NewAuditProcessor(
		sessionRepo,
		promptRepo,
		responseRepo,
		mentionRepo,
		citationRepo,
		provider,
		analyzer,
		archiver,
		trackingService,
		&service.AuditProcessorConfig{
			ThrottleDelay: cfg.Audit.ThrottleDelay,
		},
	)

	consumer := queue.NewConsumer(queueClient, processor.Process, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.WithField("poll_interval", cfg.Audit.PollInterval.String()).
		Info("Starting audit worker")

	consumer.Run(ctx)

	appLogger.Info("Worker exited")
}
