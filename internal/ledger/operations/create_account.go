package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// CreateAccount creates Destination with no balance.
type CreateAccount struct {
	Destination uuid.UUID `json:"destination"`
}

func (*CreateAccount) Type() shared.OperationType { return shared.OperationTypeCreateAccount }

func (op *CreateAccount) checkValid(f *Frame) bool {
	if op.Destination == f.SourceID() {
		return f.invalid(CreateAccountMalformed, "malformed-destination-equals-source")
	}
	return true
}

func (op *CreateAccount) apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error) {
	existing, err := ac.Accounts.Load(ctx, op.Destination, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load destination account: %w", err)
	}
	if existing != nil {
		return f.fail(CreateAccountAlreadyExist, "already-exist")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, f.Source()); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}

	dest := account.NewAccount(op.Destination, ac.Header.StartingSequenceNumber())
	if err := ac.Accounts.Add(ctx, ac.Delta, dest); err != nil {
		return false, fmt.Errorf("failed to add destination account: %w", err)
	}

	return f.succeed(CreateAccountSuccess)
}
