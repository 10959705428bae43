package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	historyRepo history.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, historyRepo history.Repository, producer producers.MessagePublisher) TransactionService {
	return &TransactionServiceImpl{
		historyRepo: historyRepo,
		producer:    producer,
		logger:      logger,
	}
}

// SubmitTransaction publishes envelope keyed by its transaction ID. When the idempotency
// key already has an archived result, nothing is published and that result is returned.
func (s *TransactionServiceImpl) SubmitTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) (uuid.UUID, *history.Record, error) {
	idempotencyKey := envelope.IdempotencyKey

	if idempotencyKey != "" {
		existing, err := s.historyRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			s.logger.Error("Failed to check for existing transaction with idempotency key",
				"idempotency_key", idempotencyKey,
				"error", err,
			)
			return uuid.Nil, nil, err
		}

		if existing != nil {
			s.logger.Info("Found existing transaction with idempotency key",
				"idempotency_key", idempotencyKey,
				"transaction_id", existing.TransactionID.String(),
				"status", string(existing.Status),
			)
			return existing.TransactionID, existing, nil
		}
	}

	if err := envelope.Validate(); err != nil {
		return uuid.Nil, nil, err
	}

	key := envelope.TransactionID.String()
	if err := s.producer.Publish(ctx, key, envelope); err != nil {
		s.logger.Error("Failed to publish transaction envelope",
			"transaction_id", key,
			"source_account", envelope.SourceAccount.String(),
			"operations", len(envelope.Operations),
			"error", err,
		)
		return uuid.Nil, nil, err
	}

	s.logger.Info("Transaction envelope published",
		"transaction_id", key,
		"source_account", envelope.SourceAccount.String(),
		"operations", len(envelope.Operations),
	)

	return envelope.TransactionID, nil, nil
}

// GetTransactionByID retrieves a transaction result by its ID. Returns nil if not found
func (s *TransactionServiceImpl) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*history.Record, error) {
	res, err := s.historyRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound{}) {
			s.logger.Info("Transaction not found", "transaction_id", transactionID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}
	return res, nil
}

// GetTransactionsByAccountID retrieves a page of results for a source account
// Returns records, total count, and any error
func (s *TransactionServiceImpl) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*history.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.historyRepo.GetBySourceAccount(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.historyRepo.CountBySourceAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
