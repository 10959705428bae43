package history

import (
	"context"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository manages result history persistence with pagination support
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Record, error)
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Record, error)
	GetBySourceAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Record, error)
	CountBySourceAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status shared.TransactionStatus, reason string) error
}

// ErrRecordNotFound indicates a missing history record
type ErrRecordNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "history record not found: " + e.TransactionID.String()
}

// Is matches any ErrRecordNotFound when the target carries no transaction id
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateRecord indicates transaction uniqueness violation
type ErrDuplicateRecord struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate history record: " + e.TransactionID.String()
}

func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
