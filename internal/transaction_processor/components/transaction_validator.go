package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/outbox"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/transaction_processor/service"
)

type TransactionValidatorImpl struct {
	historyRepo history.Repository
	outboxRepo  outbox.Repository
	logger      *slog.Logger
}

func NewTransactionValidator(historyRepo history.Repository, outboxRepo outbox.Repository, logger *slog.Logger) service.TransactionValidator {
	return &TransactionValidatorImpl{
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// Validate checks the envelope shape
func (v *TransactionValidatorImpl) Validate(ctx context.Context, envelope *shared.TransactionEnvelope) error {
	if err := envelope.Validate(); err != nil {
		logger := v.logger
		if envelope.CorrelationID != "" {
			logger = v.logger.With("correlation_id", envelope.CorrelationID)
		}
		logger.Error("Invalid transaction envelope",
			"transaction_id", envelope.TransactionID.String(),
			"operations", len(envelope.Operations),
			"error", err,
		)
		return err
	}
	return nil
}

// CheckIdempotency reports whether the envelope was already handled. A terminal history
// record or a committed outbox message means it was.
func (v *TransactionValidatorImpl) CheckIdempotency(ctx context.Context, envelope *shared.TransactionEnvelope) (bool, error) {
	logger := v.logger
	if envelope.CorrelationID != "" {
		logger = v.logger.With("correlation_id", envelope.CorrelationID)
	}
	txID := envelope.TransactionID.String()

	existing, err := v.historyRepo.GetByTransactionID(ctx, envelope.TransactionID)
	if err != nil && !errors.Is(err, history.ErrRecordNotFound{}) {
		logger.Error("Failed to check history for idempotency", "transaction_id", txID, "error", err)
		return false, fmt.Errorf("idempotency check failed for transaction %s: %w", txID, err)
	}
	if existing != nil {
		if existing.Status == shared.TransactionStatusCompleted || existing.Status == shared.TransactionStatusFailed {
			logger.Info("Transaction already processed (idempotency)", "transaction_id", txID, "status", existing.Status)
			return true, nil
		}
		logger.Info("Transaction found in history with non-terminal status, proceeding", "transaction_id", txID, "status", existing.Status)
	}

	if envelope.IdempotencyKey != "" {
		byKey, err := v.historyRepo.GetByIdempotencyKey(ctx, envelope.IdempotencyKey)
		if err != nil {
			logger.Error("Failed to check idempotency key", "transaction_id", txID, "error", err)
			return false, fmt.Errorf("idempotency key check failed for transaction %s: %w", txID, err)
		}
		if byKey != nil && byKey.TransactionID != envelope.TransactionID {
			logger.Info("Idempotency key already used by another transaction",
				"transaction_id", txID,
				"previous_transaction_id", byKey.TransactionID.String(),
			)
			return true, nil
		}
	}

	// Applied but not yet archived by the outbox poller
	message, err := v.outboxRepo.GetByTransactionID(ctx, envelope.TransactionID)
	var notFound outbox.ErrMessageNotFound
	if err != nil && !errors.As(err, &notFound) {
		logger.Error("Failed to check outbox for idempotency", "transaction_id", txID, "error", err)
		return false, fmt.Errorf("outbox idempotency check failed for transaction %s: %w", txID, err)
	}
	if message != nil {
		logger.Info("Transaction already applied, awaiting archive", "transaction_id", txID, "outbox_id", message.ID)
		return true, nil
	}

	return false, nil
}
