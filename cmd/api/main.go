package main

import (
	"log"
	"time"

	"go.uber.org/zap"

	"sonic/internal/config"
	"sonic/internal/formflow"
	"sonic/internal/handler"
	"sonic/internal/httpserver"
	"sonic/internal/mq"
	"sonic/internal/notion"
	"sonic/internal/repository"
	"sonic/internal/scheduler"
	"sonic/internal/service/auth"
	"sonic/internal/service/dashboard"
	"sonic/internal/service/draft"
	"sonic/internal/service/email"
	"sonic/internal/storage"
	"sonic/internal/uptime"
	"sonic/pkg/db"
	"sonic/pkg/logger"
	redisclient "sonic/pkg/redis"
)

func main() {
	// Load config
	cfg := config.Load()

	logger := logger.NewLogger()
	defer logger.Sync()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// Init RabbitMQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	// Init Repositories
	userRepo := repository.NewUserRepository(dbConn)
	emailRepo := repository.NewEmailRepository(dbConn)
	emailCounts := repository.NewEmailCountCache(emailRepo, rdb, 30*time.Second, logger)
	draftRepo := repository.NewDraftRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)

	// Init external clients
	notionClient := notion.NewClient(cfg.Notion.BaseURL, cfg.Notion.Token, cfg.Notion.DatabaseID, logger)
	schedulerClient := scheduler.NewClient(cfg.Scheduler.URL, logger)
	uptimeClient := uptime.NewClient(cfg.Uptime.URL, cfg.Uptime.Token, logger)
	resumeStore, err := storage.NewResumeStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("storage initialization failed", zap.Error(err))
	}

	// Init Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret)
	emailService := email.NewService(emailCounts, schedulerClient, publisher, logger)
	draftService := draft.NewService(draftRepo, logger)
	draftSessions := draft.NewSessionManager(draftService)
	dashboardService := dashboard.NewService(notionClient, emailRepo, logger)

	// Init Handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	contactHandler := handler.NewContactHandler(notionClient, draftService, logger)
	automationHandler := handler.NewAutomationHandler(emailService, formflow.NewSession(), logger)
	emailHandler := handler.NewEmailHandler(emailService, emailRepo, settingsRepo, resumeStore, cfg.AccountEmail, logger)
	draftHandler := handler.NewDraftHandler(draftService, draftSessions, logger)
	settingsHandler := handler.NewSettingsHandler(settingsRepo, resumeStore, cfg.AccountEmail, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	statusHandler := handler.NewStatusHandler(uptimeClient, logger)
	hookHandler := handler.NewHookHandler(publisher, logger)

	// Router
	router := httpserver.NewRouter(
		authHandler,
		contactHandler,
		automationHandler,
		emailHandler,
		draftHandler,
		settingsHandler,
		dashboardHandler,
		statusHandler,
		hookHandler,
		cfg.JWT.Secret,
		dbConn,
	)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}
}
