package operations

import (
	"context"
	"testing"

	"github.com/debit-ledger/internal/data/memory"
	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testBaseReserve = 10

type observation struct {
	operation, outcome, reason string
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) Observe(_ context.Context, operation, outcome, reason string) {
	r.seen = append(r.seen, observation{operation, outcome, reason})
}

func (r *recordingObserver) last() observation {
	if len(r.seen) == 0 {
		return observation{}
	}
	return r.seen[len(r.seen)-1]
}

// testLedger applies operations one per transaction against a memory store.
type testLedger struct {
	t      *testing.T
	store  *memory.Store
	cache  *cache.EntryCache
	header header.Header
	obs    *recordingObserver
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	c, err := cache.New(256)
	require.NoError(t, err)
	return &testLedger{
		t:      t,
		store:  memory.New(c),
		cache:  c,
		header: header.Header{LedgerSeq: 2, BaseReserve: testBaseReserve, BaseFee: 1},
		obs:    &recordingObserver{},
	}
}

func minBalance(n uint32) int64 {
	return header.Header{BaseReserve: testBaseReserve}.MinimumBalance(n)
}

func (l *testLedger) root(balance int64) uuid.UUID {
	root := account.NewAccount(uuid.New(), 1)
	root.Balance = balance
	l.store.Seed([]*account.Account{root}, nil, nil)
	return root.ID
}

// create makes a new account funded by from with balance native units.
func (l *testLedger) create(from uuid.UUID, balance int64) uuid.UUID {
	id := uuid.New()
	l.mustApply(from, &CreateAccount{Destination: id})
	if balance > 0 {
		l.mustApply(from, &Payment{Destination: id, Asset: asset.Native(), Amount: balance})
	}
	return id
}

func (l *testLedger) context(d *delta.Delta) *ApplyContext {
	return &ApplyContext{
		Accounts:   l.store.Accounts(),
		TrustLines: l.store.TrustLines(),
		Debits:     l.store.Debits(),
		Delta:      d,
		Header:     l.header,
	}
}

// apply runs body as a single-operation transaction, committing only on success.
func (l *testLedger) apply(source uuid.UUID, body Body) (Result, error) {
	ctx := context.Background()

	tx, err := l.store.Begin(ctx)
	require.NoError(l.t, err)

	d := delta.New(l.header, l.cache)
	ac := l.context(d)

	src, err := ac.Accounts.Load(ctx, source, d)
	require.NoError(l.t, err)

	res, runErr := Run(ctx, NewFrame(Operation{SourceAccount: &source, Body: body}, src), ac, l.obs)
	if runErr != nil || !res.Success() {
		require.NoError(l.t, d.Rollback(ctx, tx))
		return res, runErr
	}
	require.NoError(l.t, d.Commit(ctx, tx))
	return res, nil
}

func (l *testLedger) mustApply(source uuid.UUID, body Body) {
	l.t.Helper()
	res, err := l.apply(source, body)
	require.NoError(l.t, err)
	require.True(l.t, res.Success(), "%s failed with %s (%s)", body.Type(), res, res.Reason)
}

func (l *testLedger) account(id uuid.UUID) *account.Account {
	a, err := l.store.Accounts().Load(context.Background(), id, nil)
	require.NoError(l.t, err)
	return a
}

func (l *testLedger) line(id uuid.UUID, a asset.Asset) *trustline.TrustLine {
	line, err := l.store.TrustLines().Load(context.Background(), id, a, nil)
	require.NoError(l.t, err)
	return line
}

func (l *testLedger) debit(owner, debitor uuid.UUID, a asset.Asset) *debit.Authorization {
	auth, err := l.store.Debits().Load(context.Background(), owner, debitor, a, nil)
	require.NoError(l.t, err)
	return auth
}

func (l *testLedger) changeTrust(id uuid.UUID, a asset.Asset, limit int64) {
	l.mustApply(id, &ChangeTrust{Asset: a, Limit: limit})
}

func (l *testLedger) pay(from, to uuid.UUID, a asset.Asset, amount int64) {
	l.mustApply(from, &Payment{Destination: to, Asset: a, Amount: amount})
}

func (l *testLedger) manageDebit(owner, debitor uuid.UUID, a asset.Asset, del bool) (Result, error) {
	return l.apply(owner, &ManageDebit{Debitor: debitor, Asset: a, Delete: del})
}

func (l *testLedger) directDebit(debitor, owner, dest uuid.UUID, a asset.Asset, amount int64) (Result, error) {
	return l.apply(debitor, &DirectDebit{
		Owner:        owner,
		PayWithDebit: Payment{Destination: dest, Asset: a, Amount: amount},
	})
}
