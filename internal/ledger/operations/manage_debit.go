package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ManageDebit grants Debitor a standing authorization to pay Asset out of the source
// account, or revokes it when Delete is set.
type ManageDebit struct {
	Debitor uuid.UUID   `json:"debitor"`
	Asset   asset.Asset `json:"asset"`
	Delete  bool        `json:"delete,omitempty"`
}

func (*ManageDebit) Type() shared.OperationType { return shared.OperationTypeManageDebit }

func (op *ManageDebit) checkValid(f *Frame) bool {
	if !op.Asset.IsValidCredit() {
		return f.invalid(ManageDebitMalformed, "malformed-invalid-asset")
	}
	if op.Debitor == f.SourceID() {
		return f.invalid(ManageDebitMalformed, "malformed-self-debit")
	}
	return true
}

func (op *ManageDebit) apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error) {
	source := f.Source()

	existing, err := ac.Debits.Load(ctx, source.ID, op.Debitor, op.Asset, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load debit authorization: %w", err)
	}

	if op.Delete {
		return op.revoke(ctx, f, ac, existing)
	}

	if existing != nil {
		return f.fail(ManageDebitAlreadyExists, "debit-already-exists")
	}

	debitor, err := ac.Accounts.Load(ctx, op.Debitor, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load debitor account: %w", err)
	}
	if debitor == nil {
		return f.fail(ManageDebitNoDebitor, "no-debitor")
	}

	line, err := ac.TrustLines.Load(ctx, source.ID, op.Asset, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load trust line: %w", err)
	}
	if line == nil {
		return f.fail(ManageDebitNoTrust, "no-trust")
	}

	auth := debit.New(source.ID, op.Debitor, op.Asset)

	ok, err := source.AddNumEntries(1, ac.Header)
	if err != nil {
		return false, err
	}
	if !ok {
		return f.fail(ManageDebitLowReserve, "low-reserve")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, source); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}
	if err := ac.Debits.Add(ctx, ac.Delta, auth); err != nil {
		return false, fmt.Errorf("failed to add debit authorization: %w", err)
	}

	return f.succeed(ManageDebitSuccess)
}

func (op *ManageDebit) revoke(ctx context.Context, f *Frame, ac *ApplyContext, existing *debit.Authorization) (bool, error) {
	if existing == nil {
		return f.fail(ManageDebitNotFound, "not-found")
	}

	source := f.Source()
	ok, err := source.AddNumEntries(-1, ac.Header)
	if err != nil {
		return false, err
	}
	if !ok {
		return f.fail(ManageDebitLowReserve, "low-reserve")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, source); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}
	if err := ac.Debits.Delete(ctx, ac.Delta, existing.Owner, existing.Debitor, existing.Asset); err != nil {
		return false, fmt.Errorf("failed to delete debit authorization: %w", err)
	}

	return f.succeed(ManageDebitSuccess)
}
