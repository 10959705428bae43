package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/transaction_processor/service"
)

type FailureRecorderImpl struct {
	historyRepo history.Repository
	logger      *slog.Logger
}

func NewFailureRecorder(historyRepo history.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// RecordFailure archives a rejected envelope with its per-operation codes
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, record *history.Record, failureReason string) error {
	logger := r.logger
	if record.CorrelationID != "" {
		logger = r.logger.With("correlation_id", record.CorrelationID)
	}
	txID := record.TransactionID.String()

	logger.Info("Recording failed transaction", "transaction_id", txID, "reason", failureReason)

	now := time.Now().UTC()
	failed := *record
	failed.Status = shared.TransactionStatusFailed
	failed.FailureReason = failureReason
	failed.ProcessedAt = &now

	existing, err := r.historyRepo.GetByTransactionID(ctx, record.TransactionID)
	if err != nil && !errors.Is(err, history.ErrRecordNotFound{}) {
		logger.Error("Failed to get existing history record for failed transaction", "transaction_id", txID, "error", err)
	}

	if existing != nil {
		if existing.Status == shared.TransactionStatusFailed {
			logger.Info("History record already marked as FAILED", "transaction_id", txID)
			return nil
		}
		logger.Info("Updating existing history record to FAILED", "transaction_id", txID, "status", existing.Status)
		if updateErr := r.historyRepo.UpdateStatus(ctx, record.TransactionID, shared.TransactionStatusFailed, failureReason); updateErr != nil {
			logger.Error("Failed to update history record to FAILED", "transaction_id", txID, "error", updateErr)
			return updateErr
		}
		return nil
	}

	if createErr := r.historyRepo.Create(ctx, &failed); createErr != nil {
		if errors.Is(createErr, history.ErrDuplicateRecord{}) {
			logger.Info("History record created concurrently", "transaction_id", txID)
			return nil
		}
		logger.Error("Failed to create FAILED history record", "transaction_id", txID, "error", createErr)
		return createErr
	}
	logger.Info("Successfully created FAILED history record", "transaction_id", txID)
	return nil
}
