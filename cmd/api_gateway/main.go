package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/debit-ledger/internal/api_gateway"
	"github.com/debit-ledger/internal/api_gateway/service"
	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/data/mongo"
	"github.com/debit-ledger/internal/data/postgres"
	"github.com/debit-ledger/internal/logger"
	"github.com/debit-ledger/internal/platform/messaging/producers"
	"github.com/debit-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

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

	envelopeProducer, err := producers.NewEnvelopeProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize API Gateway Kafka producer", "error", err)
		os.Exit(1)
	}

	// The gateway reads entries the processor writes, so it runs without an entry cache.
	accountRepo := postgres.NewAccountRepository(log, postgresDB, nil)
	trustLineRepo := postgres.NewTrustLineRepository(log, postgresDB, nil)
	debitRepo := postgres.NewDebitRepository(log, postgresDB, nil)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	accountService := service.NewAccountService(accountRepo, trustLineRepo, debitRepo)
	transactionService := service.NewTransactionService(log, historyRepo, envelopeProducer)

	server := api_gateway.NewServer(log, cfg, accountService, transactionService)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests before closing what the handlers use.
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = envelopeProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed")
}
