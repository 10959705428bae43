package memory

import (
	"context"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
)

// kind describes how one entry type is keyed, wrapped and stamped.
type kind[K comparable, T any] struct {
	entryKey func(K) entry.Key
	keyOf    func(*T) K
	wrap     func(*T) *entry.Entry
	unwrap   func(*entry.Entry) *T
	clone    func(*T) *T
	valid    func(*T) bool
	stamp    func(*T, uint32)
	mutable  bool
}

var accountKind = kind[uuid.UUID, account.Account]{
	entryKey: entry.AccountKey,
	keyOf:    func(a *account.Account) uuid.UUID { return a.ID },
	wrap:     entry.FromAccount,
	unwrap:   func(e *entry.Entry) *account.Account { return e.Account },
	clone:    (*account.Account).Clone,
	valid:    (*account.Account).IsValid,
	stamp:    func(a *account.Account, seq uint32) { a.LastModified = seq },
	mutable:  true,
}

var trustLineKind = kind[trustline.Key, trustline.TrustLine]{
	entryKey: func(k trustline.Key) entry.Key { return entry.Key{Kind: entry.KindTrustLine, ID: k.String()} },
	keyOf:    (*trustline.TrustLine).Key,
	wrap:     entry.FromTrustLine,
	unwrap:   func(e *entry.Entry) *trustline.TrustLine { return e.TrustLine },
	clone:    (*trustline.TrustLine).Clone,
	valid:    (*trustline.TrustLine).IsValid,
	stamp:    func(t *trustline.TrustLine, seq uint32) { t.LastModified = seq },
	mutable:  true,
}

var debitKind = kind[debit.Key, debit.Authorization]{
	entryKey: func(k debit.Key) entry.Key { return entry.Key{Kind: entry.KindDebitAuthorization, ID: k.String()} },
	keyOf:    (*debit.Authorization).Key,
	wrap:     entry.FromDebit,
	unwrap:   func(e *entry.Entry) *debit.Authorization { return e.Debit },
	clone:    (*debit.Authorization).Clone,
	valid:    (*debit.Authorization).IsValid,
	stamp:    func(*debit.Authorization, uint32) {},
	mutable:  false,
}

type table[K comparable, T any] struct {
	store *Store
	kind  kind[K, T]
	rows  map[K]*T
}

func newTable[K comparable, T any](s *Store, k kind[K, T]) *table[K, T] {
	return &table[K, T]{store: s, kind: k, rows: make(map[K]*T)}
}

func (t *table[K, T]) snapshot() map[K]*T {
	out := make(map[K]*T, len(t.rows))
	for k, v := range t.rows {
		out[k] = t.kind.clone(v)
	}
	return out
}

func (s *Store) flush(key entry.Key) {
	if s.cache != nil {
		s.cache.Flush(key)
	}
}

func (t *table[K, T]) exists(_ context.Context, k K) (bool, error) {
	ek := t.kind.entryKey(k)
	if c := t.store.cache; c != nil {
		switch hit := c.Get(ek); hit.State {
		case cache.Present:
			return true, nil
		case cache.Absent:
			return false, nil
		}
	}

	t.store.mu.RLock()
	row, ok := t.rows[k]
	t.store.mu.RUnlock()

	if c := t.store.cache; c != nil {
		if ok {
			c.Put(t.kind.wrap(row))
		} else {
			c.PutAbsent(ek)
		}
	}
	return ok, nil
}

func (t *table[K, T]) load(_ context.Context, k K, d *delta.Delta) (*T, error) {
	ek := t.kind.entryKey(k)
	var found *T

	hit := cache.Lookup{State: cache.Unknown}
	if t.store.cache != nil {
		hit = t.store.cache.Get(ek)
	}

	switch hit.State {
	case cache.Absent:
		return nil, nil
	case cache.Present:
		found = t.kind.unwrap(hit.Entry)
	default:
		t.store.mu.RLock()
		row, ok := t.rows[k]
		if ok {
			found = t.kind.clone(row)
		}
		t.store.mu.RUnlock()

		if c := t.store.cache; c != nil {
			if found != nil {
				c.Put(t.kind.wrap(found))
			} else {
				c.PutAbsent(ek)
			}
		}
	}

	if found == nil {
		return nil, nil
	}
	if d != nil {
		if err := d.RecordEntry(t.kind.wrap(found)); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (t *table[K, T]) add(_ context.Context, d *delta.Delta, v *T) error {
	if d == nil {
		return shared.Faultf("entry add without a change set")
	}
	if !t.kind.valid(v) {
		return entry.ErrInvalidEntry
	}
	k := t.kind.keyOf(v)

	t.store.mu.Lock()
	if _, ok := t.rows[k]; ok {
		t.store.mu.Unlock()
		return entry.ErrAlreadyExists
	}
	t.kind.stamp(v, d.Header().LedgerSeq)
	t.rows[k] = t.kind.clone(v)
	t.store.mu.Unlock()

	t.store.flush(t.kind.entryKey(k))
	return d.AddEntry(t.kind.wrap(v))
}

func (t *table[K, T]) change(_ context.Context, d *delta.Delta, v *T) error {
	if !t.kind.mutable {
		return entry.ErrImmutableEntry
	}
	if d == nil {
		return shared.Faultf("entry change without a change set")
	}
	if !t.kind.valid(v) {
		return entry.ErrInvalidEntry
	}
	k := t.kind.keyOf(v)

	t.store.mu.Lock()
	if _, ok := t.rows[k]; !ok {
		t.store.mu.Unlock()
		return shared.Faultf("change of missing entry %s", t.kind.entryKey(k))
	}
	t.kind.stamp(v, d.Header().LedgerSeq)
	t.rows[k] = t.kind.clone(v)
	t.store.mu.Unlock()

	t.store.flush(t.kind.entryKey(k))
	return d.ModEntry(t.kind.wrap(v))
}

func (t *table[K, T]) remove(_ context.Context, d *delta.Delta, k K) error {
	if d == nil {
		return shared.Faultf("entry delete without a change set")
	}

	t.store.mu.Lock()
	delete(t.rows, k)
	t.store.mu.Unlock()

	ek := t.kind.entryKey(k)
	t.store.flush(ek)
	return d.DeleteEntry(ek)
}

func (t *table[K, T]) all() []*T {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	out := make([]*T, 0, len(t.rows))
	for _, v := range t.rows {
		out = append(out, t.kind.clone(v))
	}
	return out
}
