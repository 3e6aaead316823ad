package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vendor-payouts/payout-service/internal/admin_api"
	adminservice "github.com/vendor-payouts/payout-service/internal/admin_api/service"
	"github.com/vendor-payouts/payout-service/internal/config"
	"github.com/vendor-payouts/payout-service/internal/data/mongo"
	"github.com/vendor-payouts/payout-service/internal/data/postgres"
	"github.com/vendor-payouts/payout-service/internal/domain/schedule"
	"github.com/vendor-payouts/payout-service/internal/logger"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/components"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/consumer"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/dispatcher"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/locks"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/scheduler"
	"github.com/vendor-payouts/payout-service/internal/payout_processor/service"
	"github.com/vendor-payouts/payout-service/internal/platform/gateway"
	"github.com/vendor-payouts/payout-service/internal/platform/messaging/consumers"
	"github.com/vendor-payouts/payout-service/internal/platform/messaging/producers"
	"github.com/vendor-payouts/payout-service/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("payout_orchestrator")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Payout Orchestrator",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	vendorRepo := postgres.NewVendorRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	payoutRepo := postgres.NewPayoutRepository(log, postgresDB)
	failureRepo := mongo.NewFailureRepository(log, mongoDB.Database())

	// Initialize payout event producer
	eventProducer, err := producers.NewPayoutEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payout event producer", "error", err)
		os.Exit(1)
	}

	// Initialize the transfer gateway client
	gatewayClient := gateway.NewHTTPClient(log, &cfg.Gateway)

	// Per-vendor lock table and the in-process schedule registry. Both are
	// shared between the dispatcher and the admin API, which is why they
	// all live in this one process.
	lockTable := locks.NewVendorLockTable()
	registry := schedule.NewRegistry()

	// Initialize payout service with separated concerns
	payoutService := components.CreatePayoutService(
		postgresDB,
		vendorRepo,
		ledgerRepo,
		payoutRepo,
		failureRepo,
		gatewayClient,
		eventProducer,
		lockTable,
		log,
		cfg,
	)

	// Rebuild payout schedules from the vendor accounts
	sched := scheduler.NewScheduler(registry, vendorRepo, log)
	if _, err := sched.Rehydrate(appCtx); err != nil {
		log.Error("Failed to rehydrate payout schedules", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for settlement events
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	settlementHandler := consumer.NewSettlementEventHandler(log, ledgerRepo)

	// Initialize the scheduled payout dispatcher
	failureRecorder := components.NewFailureRecorder(failureRepo, eventProducer, log)
	payoutDispatcher := dispatcher.NewDispatcher(&cfg.Payout, registry, payoutService, failureRecorder, log)

	// Initialize the admin API server
	vendorService := adminservice.NewVendorService(vendorRepo, sched)
	scheduleService := adminservice.NewScheduleService(vendorRepo, registry, sched)
	payoutAdminService := adminservice.NewPayoutAdminService(payoutService, payoutRepo, failureRepo)
	server := admin_api.NewServer(log, cfg, vendorService, payoutAdminService, scheduleService)

	// Create error channel for service errors
	errChan := make(chan error, 3)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SettlementTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SettlementTopic, cfg.Kafka.ConsumerGroup, settlementHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start the dispatcher in a goroutine unless payouts are disabled
	if cfg.Payout.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payoutDispatcher.Start(appCtx)
		}()
	} else {
		log.Warn("Scheduled payouts are disabled; only manual triggers will run")
	}

	// Start the HTTP server in a goroutine
	go func() {
		log.Info("Starting admin API server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("admin API server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting HTTP requests first so no new payouts enter the pipeline
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping admin API server", "error", err)
	}

	// Shutdown the worker pool if it's a WorkerPoolPayoutService
	if wpService, ok := payoutService.(*service.WorkerPoolPayoutService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close payout event producer
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing payout event producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Payout Orchestrator shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Payout Orchestrator shutdown completed successfully")
}
