package main

import (
	"time"

	"go.uber.org/zap"

	"sonic/internal/config"
	"sonic/internal/mq"
	"sonic/internal/mqhandler"
	"sonic/internal/repository"
	"sonic/internal/util"
	"sonic/pkg/db"
	"sonic/pkg/logger"
	redisclient "sonic/pkg/redis"
)

func main() {
	// Load config
	cfg := config.Load()

	logger := logger.NewLogger()
	defer logger.Sync()

	logger.Info("Starting worker service...")

	// Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour)

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	logger.Info("Database connection established")

	// Init Repositories
	emailRepo := repository.NewEmailRepository(dbConn)

	// Publisher doubles as the dead-letter sink for poisoned messages
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("MQ publisher initialization failed", zap.Error(err))
	}
	defer publisher.Close()

	// Init Handlers
	dispatchedHandler := mqhandler.NewDispatchedHandler(emailRepo, deduper, publisher, logger)

	// Consumer for dispatch confirmations
	logger.Info("Initializing dispatched consumer", zap.String("queue", "email.dispatched.q"))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "email.dispatched.q", mq.RoutingKeyEmailDispatched, logger)
	if err != nil {
		logger.Fatal("failed to init dispatched consumer", zap.Error(err))
	}
	consumer.SetHandler(dispatchedHandler.Handle)
	go func() {
		logger.Info("Starting dispatched consumer")
		if err := consumer.StartConsuming(); err != nil {
			logger.Fatal("dispatched consumer failed", zap.Error(err))
		}
	}()
	defer consumer.Close()

	logger.Info("Consumer started, worker is ready to process messages")

	// Keep worker running
	select {}
}
