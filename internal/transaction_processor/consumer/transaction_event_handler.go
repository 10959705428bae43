package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/platform/messaging/producers"
	"github.com/debit-ledger/internal/transaction_processor/service"
)

// TransactionEventHandler handles transaction envelopes consumed from Kafka
type TransactionEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewTransactionEventHandler creates a new handler. producer may be nil when the DLQ is
// disabled.
func NewTransactionEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage decodes one envelope and hands it to the processing service. A nil
// return commits the offset.
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var envelope shared.TransactionEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal transaction envelope from Kafka message", err)
	}

	logger := h.logger
	if envelope.CorrelationID != "" {
		logger = h.logger.With("correlation_id", envelope.CorrelationID)
	}

	logger.Info("Received transaction envelope for processing",
		"transaction_id", envelope.TransactionID.String(),
		"source_account", envelope.SourceAccount.String(),
		"operations", len(envelope.Operations),
	)

	if err := h.processingService.ProcessTransaction(ctx, &envelope); err != nil {
		logger.Error("Failed to process transaction",
			"transaction_id", envelope.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("processing transaction %s failed: %w", envelope.TransactionID.String(), err)
	}

	logger.Info("Successfully processed transaction", "transaction_id", envelope.TransactionID.String())
	return nil
}

func (h *TransactionEventHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("failed to unmarshal message value: %w", cause)
}
