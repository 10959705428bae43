package memory

import (
	"context"
	"sort"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
)

// AccountStore is the account entry store.
type AccountStore struct {
	t *table[uuid.UUID, account.Account]
}

func (s *AccountStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.t.exists(ctx, id)
}

func (s *AccountStore) Load(ctx context.Context, id uuid.UUID, d *delta.Delta) (*account.Account, error) {
	return s.t.load(ctx, id, d)
}

func (s *AccountStore) Add(ctx context.Context, d *delta.Delta, a *account.Account) error {
	return s.t.add(ctx, d, a)
}

func (s *AccountStore) Change(ctx context.Context, d *delta.Delta, a *account.Account) error {
	return s.t.change(ctx, d, a)
}

func (s *AccountStore) Delete(ctx context.Context, d *delta.Delta, id uuid.UUID) error {
	return s.t.remove(ctx, d, id)
}

// GetByID implements the read side used by the gateway.
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.t.load(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return a, nil
}

// TrustLineStore is the trust line entry store.
type TrustLineStore struct {
	t *table[trustline.Key, trustline.TrustLine]
}

func (s *TrustLineStore) Exists(ctx context.Context, accountID uuid.UUID, a asset.Asset) (bool, error) {
	return s.t.exists(ctx, trustline.KeyFor(accountID, a))
}

func (s *TrustLineStore) Load(ctx context.Context, accountID uuid.UUID, a asset.Asset, d *delta.Delta) (*trustline.TrustLine, error) {
	return s.t.load(ctx, trustline.KeyFor(accountID, a), d)
}

func (s *TrustLineStore) Add(ctx context.Context, d *delta.Delta, t *trustline.TrustLine) error {
	return s.t.add(ctx, d, t)
}

func (s *TrustLineStore) Change(ctx context.Context, d *delta.Delta, t *trustline.TrustLine) error {
	return s.t.change(ctx, d, t)
}

func (s *TrustLineStore) Delete(ctx context.Context, d *delta.Delta, accountID uuid.UUID, a asset.Asset) error {
	return s.t.remove(ctx, d, trustline.KeyFor(accountID, a))
}

// ListByAccount returns the account's lines ordered by asset code.
func (s *TrustLineStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*trustline.TrustLine, error) {
	var out []*trustline.TrustLine
	for _, l := range s.t.all() {
		if l.AccountID == accountID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out, nil
}

// DebitStore is the debit authorization entry store.
type DebitStore struct {
	t *table[debit.Key, debit.Authorization]
}

func (s *DebitStore) Exists(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset) (bool, error) {
	return s.t.exists(ctx, debit.KeyFor(owner, debitor, a))
}

func (s *DebitStore) Load(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset, d *delta.Delta) (*debit.Authorization, error) {
	return s.t.load(ctx, debit.KeyFor(owner, debitor, a), d)
}

func (s *DebitStore) Add(ctx context.Context, d *delta.Delta, auth *debit.Authorization) error {
	return s.t.add(ctx, d, auth)
}

// Change always fails: authorizations are deleted and re-added, never changed.
func (s *DebitStore) Change(ctx context.Context, d *delta.Delta, auth *debit.Authorization) error {
	return s.t.change(ctx, d, auth)
}

func (s *DebitStore) Delete(ctx context.Context, d *delta.Delta, owner, debitor uuid.UUID, a asset.Asset) error {
	return s.t.remove(ctx, d, debit.KeyFor(owner, debitor, a))
}

func (s *DebitStore) LoadAllForOwner(_ context.Context, owner uuid.UUID) ([]*debit.Authorization, error) {
	var out []*debit.Authorization
	for _, auth := range s.t.all() {
		if auth.Owner == owner {
			out = append(out, auth)
		}
	}
	sortDebits(out)
	return out, nil
}

func (s *DebitStore) LoadAll(_ context.Context) (map[uuid.UUID][]*debit.Authorization, error) {
	out := make(map[uuid.UUID][]*debit.Authorization)
	for _, auth := range s.t.all() {
		out[auth.Owner] = append(out[auth.Owner], auth)
	}
	for _, auths := range out {
		sortDebits(auths)
	}
	return out, nil
}

func (s *DebitStore) Count(_ context.Context) (int64, error) {
	s.t.store.mu.RLock()
	defer s.t.store.mu.RUnlock()
	return int64(len(s.t.rows)), nil
}

// CreateSchema is a no-op; the table always exists.
func (s *DebitStore) CreateSchema(context.Context) error { return nil }

// DropAll empties the table and clears the cache.
func (s *DebitStore) DropAll(context.Context) error {
	s.t.store.mu.Lock()
	s.t.rows = make(map[debit.Key]*debit.Authorization)
	s.t.store.mu.Unlock()

	if c := s.t.store.cache; c != nil {
		c.Clear()
	}
	return nil
}

func sortDebits(auths []*debit.Authorization) {
	sort.Slice(auths, func(i, j int) bool {
		return auths[i].Key().String() < auths[j].Key().String()
	})
}
