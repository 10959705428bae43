package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/outbox"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/transaction_processor/service"
	"github.com/jackc/pgx/v5"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry queues the result of an applied envelope in the apply transaction.
// The poller marks it COMPLETED when it reaches the history store.
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, record *history.Record) error {
	logger := m.logger
	if record.CorrelationID != "" {
		logger = m.logger.With("correlation_id", record.CorrelationID)
	}
	txID := record.TransactionID.String()

	pending := *record
	pending.Status = shared.TransactionStatusPending
	pending.FailureReason = ""

	message, err := outbox.NewMessage(&pending)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)", "transaction_id", txID, "error", err)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", txID, err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"transaction_id", txID,
			"source_account", record.SourceAccount.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for tx %s: %w", txID, err)
	}

	logger.Info("Outbox message created successfully", "transaction_id", txID, "outbox_id", message.ID)
	return nil
}
