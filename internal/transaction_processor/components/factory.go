package components

import (
	"log/slog"

	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/outbox"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/platform/metrics"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/debit-ledger/internal/transaction_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	db persistence.TxBeginner,
	stores StoreBinder,
	entryCache *cache.EntryCache,
	observer metrics.Observer,
	historyRepo history.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewTransactionValidator(historyRepo, outboxRepo, logger.With("component", "validator"))
	applier := NewLedgerApplier(stores, entryCache, observer, logger.With("component", "ledger_applier"))
	outboxManager := NewOutboxManager(outboxRepo, logger.With("component", "outbox_manager"))
	failureRecorder := NewFailureRecorder(historyRepo, logger.With("component", "failure_recorder"))

	baseService := service.NewProcessingService(
		db,
		validator,
		applier,
		outboxManager,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
