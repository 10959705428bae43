// Package postgres provides PostgreSQL implementations of the ledger entry stores and
// the domain repositories. Entry stores write inside the caller's transaction and keep
// the shared entry cache coherent with what they write.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository is the account entry store
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	cache   entryCache
	logger  *slog.Logger
}

// NewAccountRepository creates the store on the pool. c may be nil.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB, c *cache.EntryCache) *AccountRepository {
	return &AccountRepository{
		querier: db.Pool(),
		cache:   entryCache{c: c},
		logger:  logger,
	}
}

// WithTx returns a store writing through tx and sharing this store's cache
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{
		querier: tx,
		cache:   r.cache,
		logger:  r.logger,
	}
}

const selectAccount = `
		SELECT id, balance, seq_num, num_sub_entries, flags, last_modified
		FROM accounts
		WHERE id = $1
	`

// Exists reports whether the account is present, consulting the cache first
func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	key := entry.AccountKey(id)
	switch hit := r.cache.get(key); hit.State {
	case cache.Present:
		return true, nil
	case cache.Absent:
		return false, nil
	}

	a, err := r.fetch(ctx, id)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// Load returns the account or nil when absent. A non-nil d records the loaded entry.
func (r *AccountRepository) Load(ctx context.Context, id uuid.UUID, d *delta.Delta) (*account.Account, error) {
	key := entry.AccountKey(id)

	var acc *account.Account
	switch hit := r.cache.get(key); hit.State {
	case cache.Absent:
		return nil, nil
	case cache.Present:
		acc = hit.Entry.Account
	default:
		var err error
		if acc, err = r.fetch(ctx, id); err != nil {
			return nil, err
		}
	}

	if acc == nil {
		return nil, nil
	}
	if d != nil {
		if err := d.RecordEntry(entry.FromAccount(acc)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// fetch reads the row and caches the outcome
func (r *AccountRepository) fetch(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var (
		acc                                account.Account
		numSubEntries, flags, lastModified int64
	)
	err := r.querier.QueryRow(ctx, selectAccount, id).Scan(
		&acc.ID,
		&acc.Balance,
		&acc.SeqNum,
		&numSubEntries,
		&flags,
		&lastModified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.cache.remember(entry.AccountKey(id), nil)
			return nil, nil
		}
		r.logger.Error("Failed to load account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	acc.NumSubEntries = uint32(numSubEntries)
	acc.Flags = uint32(flags)
	acc.LastModified = uint32(lastModified)

	r.cache.remember(entry.AccountKey(id), entry.FromAccount(&acc))
	return acc.Clone(), nil
}

// GetByID implements account.Repository
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := r.Load(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc, nil
}

// Add inserts a new account
func (r *AccountRepository) Add(ctx context.Context, d *delta.Delta, acc *account.Account) error {
	if d == nil {
		return shared.Faultf("account add without a change set")
	}
	if !acc.IsValid() {
		return entry.ErrInvalidEntry
	}
	acc.LastModified = d.Header().LedgerSeq
	key := entry.AccountKey(acc.ID)

	query := `
		INSERT INTO accounts (id, balance, seq_num, num_sub_entries, flags, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Balance,
		acc.SeqNum,
		int64(acc.NumSubEntries),
		int64(acc.Flags),
		int64(acc.LastModified),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entry.ErrAlreadyExists
		}
		r.logger.Error("Failed to add account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to add account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrAlreadyExists
	}
	if err := expectOne(tag, "insert", key); err != nil {
		return err
	}

	r.cache.flush(key)
	return d.AddEntry(entry.FromAccount(acc))
}

// Change updates an existing account
func (r *AccountRepository) Change(ctx context.Context, d *delta.Delta, acc *account.Account) error {
	if d == nil {
		return shared.Faultf("account change without a change set")
	}
	if !acc.IsValid() {
		return entry.ErrInvalidEntry
	}
	acc.LastModified = d.Header().LedgerSeq
	key := entry.AccountKey(acc.ID)

	query := `
		UPDATE accounts
		SET balance = $1, seq_num = $2, num_sub_entries = $3, flags = $4, last_modified = $5
		WHERE id = $6
	`

	tag, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.SeqNum,
		int64(acc.NumSubEntries),
		int64(acc.Flags),
		int64(acc.LastModified),
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}
	if err := expectOne(tag, "update", key); err != nil {
		return err
	}

	r.cache.flush(key)
	return d.ModEntry(entry.FromAccount(acc))
}

// Delete removes the account row if present
func (r *AccountRepository) Delete(ctx context.Context, d *delta.Delta, id uuid.UUID) error {
	if d == nil {
		return shared.Faultf("account delete without a change set")
	}
	key := entry.AccountKey(id)

	if _, err := r.querier.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		r.logger.Error("Failed to delete account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	r.cache.flush(key)
	return d.DeleteEntry(key)
}
