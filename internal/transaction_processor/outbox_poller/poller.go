package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/domain/outbox"
	"github.com/debit-ledger/internal/domain/shared"
)

// Poller moves committed results from the outbox table to the history store
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        HistoryPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher HistoryPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger
		if record, err := msg.Record(); err == nil && record.CorrelationID != "" {
			logger = p.logger.With("correlation_id", record.CorrelationID)
		}

		if err := p.publisher.PublishToHistory(ctx, msg); err != nil {
			logger.Error("Failed to publish outbox message to history",
				"outbox_id", msg.ID, "transaction_id", msg.TransactionID, "current_attempts", msg.Attempts, "error", err,
			)
			p.recordAttempt(ctx, logger, msg)
			continue
		}
	}
	return nil
}

// recordAttempt counts a failed publish and gives up on the message after
// maxRetryAttempts.
func (p *Poller) recordAttempt(ctx context.Context, logger *slog.Logger, msg *outbox.Message) {
	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", err)
		return
	}

	if msg.Attempts+1 < p.maxRetryAttempts {
		return
	}

	logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
		"outbox_id", msg.ID, "transaction_id", msg.TransactionID, "attempts_made", msg.Attempts+1,
	)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", err)
	}
}
