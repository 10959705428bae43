package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/data/mongo"
	"github.com/debit-ledger/internal/data/postgres"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/logger"
	"github.com/debit-ledger/internal/platform/messaging/consumers"
	"github.com/debit-ledger/internal/platform/messaging/producers"
	"github.com/debit-ledger/internal/platform/metrics"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/debit-ledger/internal/platform/telemetry"
	"github.com/debit-ledger/internal/transaction_processor/components"
	"github.com/debit-ledger/internal/transaction_processor/consumer"
	"github.com/debit-ledger/internal/transaction_processor/outbox_poller"
	"github.com/debit-ledger/internal/transaction_processor/service"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("transaction_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Transaction Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	entryCache, err := cache.New(cfg.Ledger.CacheSize)
	if err != nil {
		log.Error("Failed to initialize entry cache", "size", cfg.Ledger.CacheSize, "error", err)
		os.Exit(1)
	}

	// ledgerctl writes around the cache; SIGHUP drops every marker it may have made stale.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go entryCache.ClearOn(appCtx, hup, log.With("component", "entry_cache"))

	var meterProvider *sdkmetric.MeterProvider
	if cfg.Metrics.Enabled {
		meterProvider, err = telemetry.NewMeterProvider(appCtx, log.With("component", "telemetry"), cfg.Application.Name, cfg.Metrics)
		if err != nil {
			log.Error("Failed to initialize meter provider", "error", err)
			os.Exit(1)
		}
	}

	observer, err := buildObserver(cfg, meterProvider, log)
	if err != nil {
		log.Error("Failed to initialize operation metrics", "error", err)
		os.Exit(1)
	}

	// The processor is the only writer, so the entry cache is shared by every repository.
	headerRepo := postgres.NewHeaderRepository(log, postgresDB)
	accountRepo := postgres.NewAccountRepository(log, postgresDB, entryCache)
	trustLineRepo := postgres.NewTrustLineRepository(log, postgresDB, entryCache)
	debitRepo := postgres.NewDebitRepository(log, postgresDB, entryCache)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure history indexes", "error", err)
		os.Exit(1)
	}

	if _, err := headerRepo.Current(appCtx); err != nil {
		log.Error("Ledger header is not initialized, run ledgerctl bootstrap first", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	processingService := components.CreateProcessingService(
		postgresDB.Pool(),
		components.PostgresStores(headerRepo, accountRepo, trustLineRepo, debitRepo),
		entryCache,
		observer,
		historyRepo,
		outboxRepo,
		log,
		cfg,
	)

	transactionEventHandler := consumer.NewTransactionEventHandler(
		log,
		processingService,
		deadLetters,
	)

	historyPublisher := outbox_poller.NewHistoryPublisher(
		outboxRepo,
		historyRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		historyPublisher,
		log,
	)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.TransactionTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.TransactionTopic, cfg.Kafka.ConsumerGroup, transactionEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// The consumer drains before the pool so no envelope is submitted to a closed pool.
	if done := kafkaConsumer.Done(); done != nil {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			log.Warn("Consumer did not stop before the shutdown timeout")
		}
	}

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

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

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if meterProvider != nil {
		if err = meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", "error", err)
		}
	}

	log.Info("Entry cache at shutdown", "entries", entryCache.Len())

	if serviceErr != nil {
		log.Error("Transaction Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Transaction Processor shutdown completed")
}

// buildObserver records operation results on the SDK meter provider and mirrors them to
// the debug log. With metrics disabled only the log observer remains.
func buildObserver(cfg *config.Config, mp *sdkmetric.MeterProvider, log *slog.Logger) (metrics.Observer, error) {
	logObserver := metrics.NewLogObserver(log.With("component", "operations"))
	if !cfg.Metrics.Enabled || mp == nil {
		return logObserver, nil
	}

	otelObserver, err := metrics.NewOtelObserver(mp, cfg.Metrics.MeterName)
	if err != nil {
		return nil, err
	}
	return metrics.Fanout{otelObserver, logObserver}, nil
}
