package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
)

// ChangeTrust creates, updates or, with a zero Limit, removes the source account's trust
// line for Asset.
type ChangeTrust struct {
	Asset asset.Asset `json:"asset"`
	Limit int64       `json:"limit"`
}

func (*ChangeTrust) Type() shared.OperationType { return shared.OperationTypeChangeTrust }

func (op *ChangeTrust) checkValid(f *Frame) bool {
	if !op.Asset.IsValidCredit() {
		return f.invalid(ChangeTrustMalformed, "malformed-invalid-asset")
	}
	if op.Limit < 0 {
		return f.invalid(ChangeTrustMalformed, "malformed-negative-limit")
	}
	if op.Asset.Issuer == f.SourceID() {
		return f.invalid(ChangeTrustMalformed, "malformed-self-trust")
	}
	return true
}

func (op *ChangeTrust) apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error) {
	source := f.Source()

	issuer, err := ac.Accounts.Load(ctx, op.Asset.Issuer, nil)
	if err != nil {
		return false, fmt.Errorf("failed to load issuer: %w", err)
	}
	if issuer == nil {
		return f.fail(ChangeTrustNoIssuer, "no-issuer")
	}

	line, err := ac.TrustLines.Load(ctx, source.ID, op.Asset, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load trust line: %w", err)
	}

	if line != nil {
		if op.Limit < line.Balance {
			return f.fail(ChangeTrustInvalidLimit, "invalid-limit")
		}
		if op.Limit == 0 {
			return op.remove(ctx, f, ac, line)
		}
		line.Limit = op.Limit
		if err := ac.TrustLines.Change(ctx, ac.Delta, line); err != nil {
			return false, fmt.Errorf("failed to store trust line: %w", err)
		}
		return f.succeed(ChangeTrustSuccess)
	}

	if op.Limit == 0 {
		return f.fail(ChangeTrustInvalidLimit, "invalid-limit")
	}

	ok, err := source.AddNumEntries(1, ac.Header)
	if err != nil {
		return false, err
	}
	if !ok {
		return f.fail(ChangeTrustLowReserve, "low-reserve")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, source); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}
	created := trustline.New(source.ID, op.Asset, op.Limit, !issuer.IsAuthRequired())
	if err := ac.TrustLines.Add(ctx, ac.Delta, created); err != nil {
		return false, fmt.Errorf("failed to add trust line: %w", err)
	}

	return f.succeed(ChangeTrustSuccess)
}

func (op *ChangeTrust) remove(ctx context.Context, f *Frame, ac *ApplyContext, line *trustline.TrustLine) (bool, error) {
	source := f.Source()

	ok, err := source.AddNumEntries(-1, ac.Header)
	if err != nil {
		return false, err
	}
	if !ok {
		return f.fail(ChangeTrustLowReserve, "low-reserve")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, source); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}
	if err := ac.TrustLines.Delete(ctx, ac.Delta, line.AccountID, line.Asset); err != nil {
		return false, fmt.Errorf("failed to delete trust line: %w", err)
	}

	return f.succeed(ChangeTrustSuccess)
}
