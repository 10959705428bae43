package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type ProcessingServiceImpl struct {
	db              persistence.TxBeginner
	validator       TransactionValidator
	applier         LedgerApplier
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger

	// applyMu serializes envelope application. The ledger is applied one transaction at
	// a time, whatever the worker pool size.
	applyMu sync.Mutex
}

func NewProcessingService(
	db persistence.TxBeginner,
	validator TransactionValidator,
	applier LedgerApplier,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		db:              db,
		validator:       validator,
		applier:         applier,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessTransaction applies one envelope. A nil return means the message is done with,
// whether the envelope applied or was rejected; an error asks the consumer to retry.
func (s *ProcessingServiceImpl) ProcessTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) error {
	logger := s.logger
	if envelope.CorrelationID != "" {
		logger = s.logger.With("correlation_id", envelope.CorrelationID)
	}
	txID := envelope.TransactionID.String()

	logger.Info("Processing transaction",
		"transaction_id", txID,
		"source_account", envelope.SourceAccount.String(),
		"operations", len(envelope.Operations),
	)

	// 1. Validate the envelope shape
	if err := s.validator.Validate(ctx, envelope); err != nil {
		logger.Error("Transaction validation failed", "transaction_id", txID, "error", err)

		reason := fmt.Sprintf("%s: %v", shared.FailureReasonMalformedEnvelope, err)
		if recordErr := s.failureRecorder.RecordFailure(ctx, history.NewRecord(envelope), reason); recordErr != nil {
			logger.Error("Failed to record transaction failure", "transaction_id", txID, "error", recordErr)
		}
		return nil
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, envelope)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	// 3. Begin database transaction
	tx, err := s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "transaction_id", txID, "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", txID, err)
	}

	var result *ApplyResult
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "transaction_id", txID)
			s.rollback(ctx, tx, result, logger)
			panic(p)
		}
	}()

	// 4. Apply every operation
	result, err = s.applier.Apply(ctx, tx, envelope)
	if err != nil {
		logger.Error("Ledger fault while applying transaction, rolling back", "transaction_id", txID, "error", err)
		s.rollback(ctx, tx, result, logger)
		return fmt.Errorf("failed to apply transaction %s: %w", txID, err)
	}

	// 5. Rejected envelopes leave no trace in the ledger
	if !result.Record.Succeeded() {
		s.rollback(ctx, tx, result, logger)
		logger.Info("Transaction rejected",
			"transaction_id", txID,
			"reason", result.Record.FailureReason,
		)
		if recordErr := s.failureRecorder.RecordFailure(ctx, result.Record, result.Record.FailureReason); recordErr != nil {
			logger.Error("Failed to record transaction failure", "transaction_id", txID, "error", recordErr)
		}
		return nil
	}

	// 6. Create outbox entry
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, result.Record); err != nil {
		s.rollback(ctx, tx, result, logger)
		return err
	}

	// 7. Commit database transaction and refresh the cache
	if err = result.Delta.Commit(ctx, tx); err != nil {
		logger.Error("Failed to commit database transaction", "transaction_id", txID, "error", err)
		return fmt.Errorf("failed to commit DB transaction for %s: %w", txID, err)
	}

	logger.Info("Database transaction committed successfully",
		"transaction_id", txID,
		"ledger_seq", result.Record.LedgerSeq,
		"changes", result.Record.ChangeCount,
	)
	return nil
}

// rollback discards tx through the change set when there is one, so touched cache keys
// are flushed as well.
func (s *ProcessingServiceImpl) rollback(ctx context.Context, tx pgx.Tx, result *ApplyResult, logger *slog.Logger) {
	var err error
	if result != nil && result.Delta != nil && !result.Delta.Closed() {
		err = result.Delta.Rollback(ctx, tx)
	} else {
		err = tx.Rollback(ctx)
	}
	if err != nil {
		logger.Error("Failed to rollback transaction", "error", err)
	}
}
