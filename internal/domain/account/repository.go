package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read side of account persistence used outside the apply path.
// Entry writes go through the ledger entry store so they are tracked by a change set.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}
