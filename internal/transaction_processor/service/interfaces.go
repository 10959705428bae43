package service

import (
	"context"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/jackc/pgx/v5"
)

// ProcessingService defines the interface for processing transaction envelopes.
type ProcessingService interface {
	ProcessTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) error
}

// TransactionValidator validates envelopes before they reach the apply path
type TransactionValidator interface {
	Validate(ctx context.Context, envelope *shared.TransactionEnvelope) error
	CheckIdempotency(ctx context.Context, envelope *shared.TransactionEnvelope) (bool, error)
}

// ApplyResult is what one envelope did to the ledger. Delta is still open: the caller
// commits or rolls it back together with the database transaction.
type ApplyResult struct {
	Record *history.Record
	Delta  *delta.Delta
}

// LedgerApplier runs every operation of an envelope inside tx
type LedgerApplier interface {
	Apply(ctx context.Context, tx pgx.Tx, envelope *shared.TransactionEnvelope) (*ApplyResult, error)
}

// OutboxManager writes the result of an applied envelope into the outbox
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, record *history.Record) error
}

// FailureRecorder archives rejected envelopes in the history store
type FailureRecorder interface {
	RecordFailure(ctx context.Context, record *history.Record, failureReason string) error
}
