package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// DirectDebit pays out of Owner's account on the strength of a debit authorization Owner
// granted to the source account. The payment itself runs as a nested Payment frame whose
// source is Owner.
type DirectDebit struct {
	Owner        uuid.UUID `json:"owner"`
	PayWithDebit Payment   `json:"pay_with_debit"`
}

func (*DirectDebit) Type() shared.OperationType { return shared.OperationTypeDirectDebit }

type paymentTranslation struct {
	code   DirectDebitResultCode
	reason string
}

// fromPayment maps every Payment code to its Direct-Debit counterpart. Entries with an
// empty reason are not translatable; success never reaches the table.
var fromPayment = [...]paymentTranslation{
	PaymentSuccess:          {},
	PaymentMalformed:        {DirectDebitMalformed, "payment-malformed"},
	PaymentUnderfunded:      {DirectDebitOwnerUnderfunded, "owner-underfunded"},
	PaymentSrcNoTrust:       {DirectDebitOwnerNoTrust, "owner-no-trust"},
	PaymentSrcNotAuthorized: {DirectDebitOwnerNotAuthorized, "owner-not-authorized"},
	PaymentNoDestination:    {DirectDebitNoDestination, "no-destination"},
	PaymentNoTrust:          {DirectDebitDestinationNoTrust, "destination-no-trust"},
	PaymentNotAuthorized:    {DirectDebitDestinationNotAuthorized, "destination-not-authorized"},
	PaymentLineFull:         {DirectDebitLineFull, "line-full"},
	PaymentNoIssuer:         {DirectDebitNoIssuer, "no-issuer"},
}

// Fails to compile unless fromPayment has exactly one entry per Payment code.
var _ = [1]struct{}{}[len(fromPayment)-int(numPaymentResultCodes)]

// translatePayment returns the Direct-Debit code for a failed payment.
func translatePayment(code PaymentResultCode) (DirectDebitResultCode, string, error) {
	if code < 0 || int(code) >= len(fromPayment) {
		return 0, "", shared.Faultf("unexpected payment result code %d", int(code))
	}
	t := fromPayment[code]
	if t.reason == "" {
		return 0, "", shared.Faultf("payment result %s has no direct debit translation", code)
	}
	return t.code, t.reason, nil
}

func (op *DirectDebit) checkValid(f *Frame) bool {
	if !op.PayWithDebit.Asset.IsValid() {
		return f.invalid(DirectDebitMalformed, "malformed-invalid-asset")
	}
	return true
}

func (op *DirectDebit) apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error) {
	auth, err := ac.Debits.Load(ctx, op.Owner, f.SourceID(), op.PayWithDebit.Asset, nil)
	if err != nil {
		return false, fmt.Errorf("failed to load debit authorization: %w", err)
	}
	if auth == nil {
		return f.fail(DirectDebitNoDebit, "no-debit")
	}

	owner, err := ac.Accounts.Load(ctx, op.Owner, ac.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to load debit owner: %w", err)
	}
	if owner == nil {
		return false, shared.Faultf("debit authorization %s references missing owner account", auth.Key())
	}

	ownerID := op.Owner
	payment := &Payment{
		Destination: op.PayWithDebit.Destination,
		Asset:       op.PayWithDebit.Asset,
		Amount:      op.PayWithDebit.Amount,
	}
	inner := NewFrame(Operation{SourceAccount: &ownerID, Body: payment}, owner)

	if inner.CheckValid() {
		ok, err := inner.Apply(ctx, ac)
		if err != nil {
			return false, err
		}
		if ok {
			return f.succeed(DirectDebitSuccess)
		}
	}

	res := inner.Result()
	if res.Code != OpInner {
		return false, shared.Faultf("unexpected payment result %s", res.Code)
	}
	code, ok := res.Inner.(PaymentResultCode)
	if !ok {
		return false, shared.Faultf("unexpected payment result type %T", res.Inner)
	}
	translated, reason, err := translatePayment(code)
	if err != nil {
		return false, err
	}
	return f.fail(translated, reason)
}
