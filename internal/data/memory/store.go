// Package memory is an in-process ledger entry store with the same contract as the
// Postgres stores. Transactions are simulated with a snapshot taken at Begin and
// restored on Rollback.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/google/uuid"
)

var (
	ErrTxInProgress = errors.New("memory store transaction already in progress")
	ErrTxDone       = errors.New("memory store transaction already finished")
)

// Store owns the three entry tables. A nil cache disables caching.
type Store struct {
	mu    sync.RWMutex
	cache *cache.EntryCache
	tx    *Tx

	accounts   *table[uuid.UUID, account.Account]
	trustLines *table[trustline.Key, trustline.TrustLine]
	debits     *table[debit.Key, debit.Authorization]
}

func New(c *cache.EntryCache) *Store {
	s := &Store{cache: c}
	s.accounts = newTable(s, accountKind)
	s.trustLines = newTable(s, trustLineKind)
	s.debits = newTable(s, debitKind)
	return s
}

func (s *Store) Accounts() *AccountStore     { return &AccountStore{t: s.accounts} }
func (s *Store) TrustLines() *TrustLineStore { return &TrustLineStore{t: s.trustLines} }
func (s *Store) Debits() *DebitStore         { return &DebitStore{t: s.debits} }

// Begin snapshots every table. Only one transaction may be open at a time.
func (s *Store) Begin(_ context.Context) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, ErrTxInProgress
	}
	s.tx = &Tx{
		store:      s,
		accounts:   s.accounts.snapshot(),
		trustLines: s.trustLines.snapshot(),
		debits:     s.debits.snapshot(),
	}
	return s.tx, nil
}

// Tx is an open memory store transaction. Writes land in the tables immediately; Rollback
// restores the snapshot.
type Tx struct {
	store      *Store
	accounts   map[uuid.UUID]*account.Account
	trustLines map[trustline.Key]*trustline.TrustLine
	debits     map[debit.Key]*debit.Authorization
	done       bool
}

func (tx *Tx) Commit(_ context.Context) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	s.tx = nil
	return nil
}

func (tx *Tx) Rollback(_ context.Context) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	s.tx = nil
	s.accounts.rows = tx.accounts
	s.trustLines.rows = tx.trustLines
	s.debits.rows = tx.debits
	return nil
}

// Seed writes entries directly, bypassing change sets and the cache. Used for fixtures
// and bootstrap.
func (s *Store) Seed(accounts []*account.Account, lines []*trustline.TrustLine, auths []*debit.Authorization) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range accounts {
		s.accounts.rows[a.ID] = a.Clone()
		s.flush(accountKind.entryKey(a.ID))
	}
	for _, l := range lines {
		s.trustLines.rows[l.Key()] = l.Clone()
		s.flush(trustLineKind.entryKey(l.Key()))
	}
	for _, d := range auths {
		s.debits.rows[d.Key()] = d.Clone()
		s.flush(debitKind.entryKey(d.Key()))
	}
}
