package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/outbox"
	"github.com/debit-ledger/internal/domain/shared"
)

// HistoryPublisher archives outbox messages in the history store
type HistoryPublisher interface {
	PublishToHistory(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisherImpl implements HistoryPublisher
type HistoryPublisherImpl struct {
	outboxRepo  outbox.Repository
	historyRepo history.Repository
	logger      *slog.Logger
}

// NewHistoryPublisher creates a new publisher
func NewHistoryPublisher(
	outboxRepo outbox.Repository,
	historyRepo history.Repository,
	logger *slog.Logger,
) HistoryPublisher {
	return &HistoryPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// PublishToHistory writes the committed result carried by message as a COMPLETED record
// and marks the message PROCESSED. Publishing the same message twice is harmless.
func (p *HistoryPublisherImpl) PublishToHistory(ctx context.Context, message *outbox.Message) error {
	record, err := message.Record()
	if err != nil {
		p.logger.Error("Failed to unmarshal history record from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if record.CorrelationID != "" {
		logger = p.logger.With("correlation_id", record.CorrelationID)
	}
	txID := record.TransactionID.String()

	logger.Info("Attempting to publish outbox message to history", "outbox_id", message.ID, "transaction_id", txID)

	now := time.Now().UTC()
	record.Status = shared.TransactionStatusCompleted
	record.FailureReason = ""
	record.ProcessedAt = &now

	existing, err := p.historyRepo.GetByTransactionID(ctx, record.TransactionID)
	if err != nil && !errors.Is(err, history.ErrRecordNotFound{}) {
		logger.Error("Failed to check existing history record before publishing", "transaction_id", txID, "error", err)
		return fmt.Errorf("failed to check existing history record %s: %w", txID, err)
	}

	switch {
	case existing == nil:
		err = p.historyRepo.Create(ctx, record)
		if errors.Is(err, history.ErrDuplicateRecord{}) {
			logger.Info("History record written concurrently", "transaction_id", txID)
			err = nil
		}
		if err != nil {
			logger.Error("Failed to create history record in MongoDB", "transaction_id", txID, "error", err)
			return fmt.Errorf("failed to create history record %s: %w", txID, err)
		}
		logger.Info("Successfully created history record in MongoDB", "transaction_id", txID)
	case existing.Status == shared.TransactionStatusCompleted:
		logger.Info("History record already COMPLETED", "transaction_id", txID)
	default:
		if err = p.historyRepo.UpdateStatus(ctx, record.TransactionID, shared.TransactionStatusCompleted, ""); err != nil {
			logger.Error("Failed to update existing history record to COMPLETED", "transaction_id", txID, "error", err)
			return fmt.Errorf("failed to update history record %s to COMPLETED: %w", txID, err)
		}
		logger.Info("Updated existing history record to COMPLETED", "transaction_id", txID)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", txID, "error", err,
		)
		return fmt.Errorf("history write for %s OK, but failed to mark outbox %d as PROCESSED: %w", txID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", txID)
	return nil
}
