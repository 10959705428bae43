package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/google/uuid"
)

// Payment moves Amount of Asset from the source account to Destination. Issuers send
// and receive their own asset without a trust line.
type Payment struct {
	Destination uuid.UUID   `json:"destination"`
	Asset       asset.Asset `json:"asset"`
	Amount      int64       `json:"amount"`
}

func (*Payment) Type() shared.OperationType { return shared.OperationTypePayment }

func (op *Payment) checkValid(f *Frame) bool {
	if op.Amount <= 0 {
		return f.invalid(PaymentMalformed, "malformed-negative-amount")
	}
	if !op.Asset.IsValid() {
		return f.invalid(PaymentMalformed, "malformed-invalid-asset")
	}
	return true
}

func (op *Payment) apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error) {
	source := f.Source()

	if op.Destination == source.ID {
		return f.succeed(PaymentSuccess)
	}

	dest, err := ac.Accounts.Load(ctx, op.Destination, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load destination account: %w", err)
	}
	if dest == nil {
		return f.fail(PaymentNoDestination, "no-destination")
	}

	if op.Asset.IsNative() {
		return op.applyNative(ctx, f, ac, dest)
	}

	if op.Asset.Issuer != source.ID && op.Asset.Issuer != dest.ID {
		ok, err := ac.Accounts.Exists(ctx, op.Asset.Issuer)
		if err != nil {
			return false, fmt.Errorf("failed to look up issuer: %w", err)
		}
		if !ok {
			return f.fail(PaymentNoIssuer, "no-issuer")
		}
	}

	var destLine, sourceLine *trustline.TrustLine

	if dest.ID != op.Asset.Issuer {
		destLine, err = ac.TrustLines.Load(ctx, dest.ID, op.Asset, ac.Delta)
		if err != nil {
			return false, fmt.Errorf("failed to load destination trust line: %w", err)
		}
		if destLine == nil {
			return f.fail(PaymentNoTrust, "no-trust")
		}
		if !destLine.IsAuthorized() {
			return f.fail(PaymentNotAuthorized, "not-authorized")
		}
		if !destLine.AddBalance(op.Amount) {
			return f.fail(PaymentLineFull, "line-full")
		}
	}

	if source.ID != op.Asset.Issuer {
		sourceLine, err = ac.TrustLines.Load(ctx, source.ID, op.Asset, ac.Delta)
		if err != nil {
			return false, fmt.Errorf("failed to load source trust line: %w", err)
		}
		if sourceLine == nil {
			return f.fail(PaymentSrcNoTrust, "src-no-trust")
		}
		if !sourceLine.IsAuthorized() {
			return f.fail(PaymentSrcNotAuthorized, "src-not-authorized")
		}
		if !sourceLine.AddBalance(-op.Amount) {
			return f.fail(PaymentUnderfunded, "underfunded")
		}
	}

	if destLine != nil {
		if err := ac.TrustLines.Change(ctx, ac.Delta, destLine); err != nil {
			return false, fmt.Errorf("failed to store destination trust line: %w", err)
		}
	}
	if sourceLine != nil {
		if err := ac.TrustLines.Change(ctx, ac.Delta, sourceLine); err != nil {
			return false, fmt.Errorf("failed to store source trust line: %w", err)
		}
	}

	return f.succeed(PaymentSuccess)
}

func (op *Payment) applyNative(ctx context.Context, f *Frame, ac *ApplyContext, dest *account.Account) (bool, error) {
	source := f.Source()

	if !dest.AddBalance(op.Amount) {
		return f.fail(PaymentLineFull, "line-full")
	}
	if source.AvailableBalance(ac.Header) < op.Amount {
		return f.fail(PaymentUnderfunded, "underfunded")
	}
	if !source.AddBalance(-op.Amount) {
		return f.fail(PaymentUnderfunded, "underfunded")
	}

	if err := ac.Accounts.Change(ctx, ac.Delta, dest); err != nil {
		return false, fmt.Errorf("failed to store destination account: %w", err)
	}
	if err := ac.Accounts.Change(ctx, ac.Delta, source); err != nil {
		return false, fmt.Errorf("failed to store source account: %w", err)
	}

	return f.succeed(PaymentSuccess)
}
