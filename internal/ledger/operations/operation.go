// Package operations applies ledger operations. Each operation runs in a Frame that
// validates it against its source account and then applies it to the ledger through an
// ApplyContext, recording every mutation into the context's change set.
package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
)

var ErrMalformedBody = errors.New("operation body is malformed")

// Body is one of CreateAccount, ManageDebit, DirectDebit, Payment or ChangeTrust.
type Body interface {
	Type() shared.OperationType
	checkValid(f *Frame) bool
	apply(ctx context.Context, f *Frame, ac *ApplyContext) (bool, error)
}

// Operation is a decoded operation. A nil SourceAccount means the transaction source.
type Operation struct {
	SourceAccount *uuid.UUID
	Body          Body
}

// SourceOr resolves the effective source account id.
func (op Operation) SourceOr(txSource uuid.UUID) uuid.UUID {
	if op.SourceAccount != nil {
		return *op.SourceAccount
	}
	return txSource
}

// Decode parses the wire form of an operation.
func Decode(req shared.OperationRequest) (Operation, error) {
	var body Body
	switch req.Type {
	case shared.OperationTypeCreateAccount:
		body = &CreateAccount{}
	case shared.OperationTypeManageDebit:
		body = &ManageDebit{}
	case shared.OperationTypeDirectDebit:
		body = &DirectDebit{}
	case shared.OperationTypePayment:
		body = &Payment{}
	case shared.OperationTypeChangeTrust:
		body = &ChangeTrust{}
	default:
		return Operation{}, fmt.Errorf("%w: %q", shared.ErrUnknownOperation, req.Type)
	}

	if len(req.Body) == 0 {
		return Operation{}, fmt.Errorf("%w: empty %s body", ErrMalformedBody, req.Type)
	}
	if err := json.Unmarshal(req.Body, body); err != nil {
		return Operation{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return Operation{SourceAccount: req.SourceAccount, Body: body}, nil
}

// AccountStore is the entry store for accounts.
type AccountStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Load(ctx context.Context, id uuid.UUID, d *delta.Delta) (*account.Account, error)
	Add(ctx context.Context, d *delta.Delta, a *account.Account) error
	Change(ctx context.Context, d *delta.Delta, a *account.Account) error
	Delete(ctx context.Context, d *delta.Delta, id uuid.UUID) error
}

// TrustLineStore is the entry store for trust lines.
type TrustLineStore interface {
	Exists(ctx context.Context, accountID uuid.UUID, a asset.Asset) (bool, error)
	Load(ctx context.Context, accountID uuid.UUID, a asset.Asset, d *delta.Delta) (*trustline.TrustLine, error)
	Add(ctx context.Context, d *delta.Delta, t *trustline.TrustLine) error
	Change(ctx context.Context, d *delta.Delta, t *trustline.TrustLine) error
	Delete(ctx context.Context, d *delta.Delta, accountID uuid.UUID, a asset.Asset) error
}

// DebitStore is the entry store for debit authorizations. Change always faults.
type DebitStore interface {
	Exists(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset) (bool, error)
	Load(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset, d *delta.Delta) (*debit.Authorization, error)
	Add(ctx context.Context, d *delta.Delta, auth *debit.Authorization) error
	Change(ctx context.Context, d *delta.Delta, auth *debit.Authorization) error
	Delete(ctx context.Context, d *delta.Delta, owner, debitor uuid.UUID, a asset.Asset) error
}

// ApplyContext is the ledger state an operation applies against. Nested frames share
// their parent's context.
type ApplyContext struct {
	Accounts   AccountStore
	TrustLines TrustLineStore
	Debits     DebitStore
	Delta      *delta.Delta
	Header     header.Header
}
