package operations

import (
	"context"
	"testing"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directDebitWorld struct {
	*testLedger
	root, debitor, destination, gateway uuid.UUID
	idr, usd                            asset.Asset
}

func newDirectDebitWorld(t *testing.T) *directDebitWorld {
	l := newTestLedger(t)
	w := &directDebitWorld{testLedger: l}

	w.root = l.root(1_000_000)
	w.debitor = l.create(w.root, minBalance(2))
	w.destination = l.create(w.root, minBalance(3))
	w.gateway = l.create(w.root, minBalance(3))
	w.idr = asset.MustCredit("IDR", w.gateway)
	w.usd = asset.MustCredit("USD", w.gateway)

	l.changeTrust(w.root, w.idr, 5000)
	l.pay(w.gateway, w.root, w.idr, 4000)
	l.changeTrust(w.destination, w.idr, 4000)
	l.pay(w.gateway, w.destination, w.idr, 3000)

	res, err := l.manageDebit(w.root, w.debitor, w.idr, false)
	require.NoError(t, err)
	require.True(t, res.Success())
	return w
}

func TestDirectDebit_Basic(t *testing.T) {
	w := newDirectDebitWorld(t)

	res, err := w.directDebit(w.debitor, w.root, w.destination, w.idr, 500)
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, DirectDebitSuccess, res.Inner)
	assert.Equal(t, observation{"op-direct-debit", "success", "apply"}, w.obs.last())

	assert.Equal(t, int64(3500), w.line(w.root, w.idr).Balance)
	assert.Equal(t, int64(3500), w.line(w.destination, w.idr).Balance)
}

func TestDirectDebit_ToSelf(t *testing.T) {
	w := newDirectDebitWorld(t)
	w.changeTrust(w.debitor, w.idr, 1000)

	res, err := w.directDebit(w.debitor, w.root, w.debitor, w.idr, 250)
	require.NoError(t, err)
	require.True(t, res.Success())

	assert.Equal(t, int64(250), w.line(w.debitor, w.idr).Balance)
	assert.Equal(t, int64(3750), w.line(w.root, w.idr).Balance)
}

func TestDirectDebit_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		run    func(w *directDebitWorld) (Result, error)
		code   DirectDebitResultCode
		reason string
	}{
		{
			name: "debit does not exist",
			run: func(w *directDebitWorld) (Result, error) {
				return w.directDebit(w.debitor, w.gateway, w.destination, w.idr, 500)
			},
			code:   DirectDebitNoDebit,
			reason: "no-debit",
		},
		{
			name: "owner underfunded",
			run: func(w *directDebitWorld) (Result, error) {
				w.changeTrust(w.destination, w.idr, 10000)
				return w.directDebit(w.debitor, w.root, w.destination, w.idr, 4500)
			},
			code:   DirectDebitOwnerUnderfunded,
			reason: "owner-underfunded",
		},
		{
			name: "owner has no trust to asset",
			run: func(w *directDebitWorld) (Result, error) {
				w.changeTrust(w.root, w.usd, 1000)
				w.changeTrust(w.destination, w.usd, 1000)
				w.pay(w.gateway, w.root, w.usd, 500)
				w.pay(w.gateway, w.destination, w.usd, 500)
				res, err := w.manageDebit(w.root, w.debitor, w.usd, false)
				require.NoError(w.t, err)
				require.True(w.t, res.Success())
				w.pay(w.root, w.gateway, w.usd, 500)
				w.changeTrust(w.root, w.usd, 0)
				return w.directDebit(w.debitor, w.root, w.destination, w.usd, 500)
			},
			code:   DirectDebitOwnerNoTrust,
			reason: "owner-no-trust",
		},
		{
			name: "destination does not exist",
			run: func(w *directDebitWorld) (Result, error) {
				return w.directDebit(w.debitor, w.root, uuid.New(), w.idr, 500)
			},
			code:   DirectDebitNoDestination,
			reason: "no-destination",
		},
		{
			name: "destination has no trust to asset",
			run: func(w *directDebitWorld) (Result, error) {
				w.changeTrust(w.root, w.usd, 1000)
				w.changeTrust(w.destination, w.usd, 1000)
				w.pay(w.gateway, w.root, w.usd, 500)
				w.pay(w.gateway, w.destination, w.usd, 500)
				res, err := w.manageDebit(w.root, w.debitor, w.usd, false)
				require.NoError(w.t, err)
				require.True(w.t, res.Success())
				w.pay(w.destination, w.gateway, w.usd, 500)
				w.changeTrust(w.destination, w.usd, 0)
				return w.directDebit(w.debitor, w.root, w.destination, w.usd, 500)
			},
			code:   DirectDebitDestinationNoTrust,
			reason: "destination-no-trust",
		},
		{
			name: "destination line full",
			run: func(w *directDebitWorld) (Result, error) {
				w.changeTrust(w.root, w.usd, 1000)
				w.changeTrust(w.destination, w.usd, 500)
				w.pay(w.gateway, w.root, w.usd, 500)
				w.pay(w.gateway, w.destination, w.usd, 400)
				res, err := w.manageDebit(w.root, w.debitor, w.usd, false)
				require.NoError(w.t, err)
				require.True(w.t, res.Success())
				return w.directDebit(w.debitor, w.root, w.destination, w.usd, 250)
			},
			code:   DirectDebitLineFull,
			reason: "line-full",
		},
		{
			name: "issuer does not exist",
			run: func(w *directDebitWorld) (Result, error) {
				w.removeAccount(w.gateway)
				return w.directDebit(w.debitor, w.root, w.destination, w.idr, 500)
			},
			code:   DirectDebitNoIssuer,
			reason: "no-issuer",
		},
		{
			name: "zero amount",
			run: func(w *directDebitWorld) (Result, error) {
				return w.directDebit(w.debitor, w.root, w.destination, w.idr, 0)
			},
			code:   DirectDebitMalformed,
			reason: "payment-malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newDirectDebitWorld(t)

			res, err := tt.run(w)
			require.NoError(t, err)
			assert.False(t, res.Success())
			assert.Equal(t, tt.code, res.Inner)
			assert.Equal(t, observation{"op-direct-debit", "failure", tt.reason}, w.obs.last())

			assert.Equal(t, int64(4000), w.line(w.root, w.idr).Balance)
		})
	}
}

func TestDirectDebit_InvalidAsset(t *testing.T) {
	w := newDirectDebitWorld(t)

	res, err := w.directDebit(w.debitor, w.root, w.destination, asset.Asset{Type: asset.TypeCreditAlphanum4, Code: "TOOLONG", Issuer: w.gateway}, 10)
	require.NoError(t, err)
	assert.Equal(t, DirectDebitMalformed, res.Inner)
	assert.Equal(t, observation{"op-direct-debit", "invalid", "malformed-invalid-asset"}, w.obs.last())
}

func TestDirectDebit_MissingOwnerIsFault(t *testing.T) {
	w := newDirectDebitWorld(t)

	ghost := uuid.New()
	w.store.Seed(nil, nil, []*debit.Authorization{debit.New(ghost, w.debitor, w.idr)})
	seen := len(w.obs.seen)

	_, err := w.directDebit(w.debitor, ghost, w.destination, w.idr, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrFault)
	assert.Len(t, w.obs.seen, seen)
}

func TestTranslatePayment_Exhaustive(t *testing.T) {
	seen := make(map[DirectDebitResultCode]PaymentResultCode)

	for _, code := range PaymentResultCodes() {
		if code.IsSuccess() {
			continue
		}
		t.Run(code.String(), func(t *testing.T) {
			translated, reason, err := translatePayment(code)
			require.NoError(t, err, "payment result %s is not handled by direct debit", code)
			assert.NotEmpty(t, reason)
			assert.False(t, translated.IsSuccess())

			prev, dup := seen[translated]
			assert.False(t, dup, "%s and %s both translate to %s", prev, code, translated)
			seen[translated] = code
		})
	}
}

func TestTranslatePayment_Faults(t *testing.T) {
	for _, code := range []PaymentResultCode{PaymentSuccess, numPaymentResultCodes, -1} {
		_, _, err := translatePayment(code)
		assert.ErrorIs(t, err, shared.ErrFault, "code %d", int(code))
	}
}

// removeAccount deletes an account outright, the way a merge would.
func (l *testLedger) removeAccount(id uuid.UUID) {
	ctx := context.Background()
	tx, err := l.store.Begin(ctx)
	require.NoError(l.t, err)

	d := delta.New(l.header, l.cache)
	require.NoError(l.t, l.store.Accounts().Delete(ctx, d, id))
	require.NoError(l.t, d.Commit(ctx, tx))

	assert.Nil(l.t, l.account(id))
}
