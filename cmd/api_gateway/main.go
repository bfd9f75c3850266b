package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketplace-wallet-ledger/internal/api_gateway"
	"github.com/marketplace-wallet-ledger/internal/api_gateway/service"
	"github.com/marketplace-wallet-ledger/internal/config"
	"github.com/marketplace-wallet-ledger/internal/data/mongo"
	"github.com/marketplace-wallet-ledger/internal/data/postgres"
	"github.com/marketplace-wallet-ledger/internal/domain/fees"
	"github.com/marketplace-wallet-ledger/internal/logger"
	"github.com/marketplace-wallet-ledger/internal/platform/messaging/producers"
	"github.com/marketplace-wallet-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	if err := mongo.EnsureIndexes(appCtx, mongoDB.Database()); err != nil {
		log.Error("Failed to ensure ledger indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the gateway (publishes settlement requests)
	kafkaProducer, err := producers.NewSettlementReqMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement request Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	escrowRepo := postgres.NewEscrowRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	// Initialize fee schedule
	feeCalc, err := fees.NewCalculator(cfg.Fees.DepositRate, cfg.Fees.WithdrawalRate)
	if err != nil {
		log.Error("Failed to initialize fee calculator", "error", err)
		os.Exit(1)
	}

	// Initialize services
	walletService := service.NewWalletService(log, walletRepo, ledgerRepo, feeCalc, kafkaProducer)
	escrowService := service.NewEscrowService(log, postgresDB, walletRepo, escrowRepo, ledgerRepo, outboxRepo, cfg.Retry)
	transactionService := service.NewTransactionService(log, ledgerRepo, walletRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, walletService, transactionService, escrowService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight requests finish before the
	// stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
