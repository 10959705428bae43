package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DebitRepository is the debit authorization entry store. Authorizations are immutable:
// Change always faults.
type DebitRepository struct {
	querier persistence.Querier
	cache   entryCache
	logger  *slog.Logger
}

func NewDebitRepository(logger *slog.Logger, db *persistence.PostgresDB, c *cache.EntryCache) *DebitRepository {
	return &DebitRepository{
		querier: db.Pool(),
		cache:   entryCache{c: c},
		logger:  logger,
	}
}

func (r *DebitRepository) WithTx(tx pgx.Tx) *DebitRepository {
	return &DebitRepository{
		querier: tx,
		cache:   r.cache,
		logger:  r.logger,
	}
}

const (
	debitColumns = `owner, debitor, asset_type, issuer, asset_code`

	createDebitsTable = `
		CREATE TABLE IF NOT EXISTS debits (
			owner      VARCHAR(56) NOT NULL,
			debitor    VARCHAR(56) NOT NULL,
			asset_type INT         NOT NULL,
			issuer     VARCHAR(56) NOT NULL,
			asset_code VARCHAR(12) NOT NULL,
			PRIMARY KEY (owner, debitor, issuer, asset_code)
		)
	`
	createDebitsOwnerIndex = `CREATE INDEX IF NOT EXISTS debits_owner ON debits (owner)`
	dropDebitsTable        = `DROP TABLE IF EXISTS debits`
)

func (r *DebitRepository) Exists(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset) (bool, error) {
	switch hit := r.cache.get(entry.DebitKey(owner, debitor, a)); hit.State {
	case cache.Present:
		return true, nil
	case cache.Absent:
		return false, nil
	}

	auth, err := r.fetch(ctx, owner, debitor, a)
	if err != nil {
		return false, err
	}
	return auth != nil, nil
}

func (r *DebitRepository) Load(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset, d *delta.Delta) (*debit.Authorization, error) {
	var auth *debit.Authorization
	switch hit := r.cache.get(entry.DebitKey(owner, debitor, a)); hit.State {
	case cache.Absent:
		return nil, nil
	case cache.Present:
		auth = hit.Entry.Debit
	default:
		var err error
		if auth, err = r.fetch(ctx, owner, debitor, a); err != nil {
			return nil, err
		}
	}

	if auth == nil {
		return nil, nil
	}
	if d != nil {
		if err := d.RecordEntry(entry.FromDebit(auth)); err != nil {
			return nil, err
		}
	}
	return auth, nil
}

func (r *DebitRepository) fetch(ctx context.Context, owner, debitor uuid.UUID, a asset.Asset) (*debit.Authorization, error) {
	key := debit.KeyFor(owner, debitor, a)
	ek := entry.DebitKey(owner, debitor, a)
	query := `SELECT ` + debitColumns + `
		FROM debits
		WHERE owner = $1 AND debitor = $2 AND issuer = $3 AND asset_code = $4
	`

	auth, err := scanDebit(r.querier.QueryRow(ctx, query, key.Owner, key.Debitor, key.Issuer, key.AssetCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.cache.remember(ek, nil)
			return nil, nil
		}
		r.logger.Error("Failed to load debit authorization", "key", key.String(), "error", err)
		return nil, fmt.Errorf("failed to load debit authorization: %w", err)
	}

	r.cache.remember(ek, entry.FromDebit(auth))
	return auth.Clone(), nil
}

func scanDebit(row pgx.Row) (*debit.Authorization, error) {
	var (
		owner, debitor, issuer, code string
		assetType                    int
	)
	if err := row.Scan(&owner, &debitor, &assetType, &issuer, &code); err != nil {
		return nil, err
	}

	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to parse debit owner %q: %w", owner, err)
	}
	debitorID, err := uuid.Parse(debitor)
	if err != nil {
		return nil, fmt.Errorf("failed to parse debitor %q: %w", debitor, err)
	}
	a, err := asset.FromColumns(assetType, code, issuer)
	if err != nil {
		return nil, err
	}
	return debit.New(ownerID, debitorID, a), nil
}

// Add inserts a new authorization. Duplicates leave the table and the cache untouched.
func (r *DebitRepository) Add(ctx context.Context, d *delta.Delta, auth *debit.Authorization) error {
	if d == nil {
		return shared.Faultf("debit add without a change set")
	}
	if !auth.IsValid() {
		return entry.ErrInvalidEntry
	}
	key := auth.Key()
	ek := entry.DebitKey(auth.Owner, auth.Debitor, auth.Asset)

	query := `
		INSERT INTO debits (` + debitColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner, debitor, issuer, asset_code) DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, query,
		key.Owner,
		key.Debitor,
		int(auth.Asset.Type),
		key.Issuer,
		key.AssetCode,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entry.ErrAlreadyExists
		}
		r.logger.Error("Failed to add debit authorization", "key", key.String(), "error", err)
		return fmt.Errorf("failed to add debit authorization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrAlreadyExists
	}
	if err := expectOne(tag, "insert", ek); err != nil {
		return err
	}

	r.cache.flush(ek)
	return d.AddEntry(entry.FromDebit(auth))
}

// Change always fails with entry.ErrImmutableEntry
func (r *DebitRepository) Change(_ context.Context, _ *delta.Delta, auth *debit.Authorization) error {
	r.logger.Error("Attempted to change an immutable debit authorization", "key", auth.Key().String())
	return entry.ErrImmutableEntry
}

// Delete removes the authorization; deleting an absent row is not an error
func (r *DebitRepository) Delete(ctx context.Context, d *delta.Delta, owner, debitor uuid.UUID, a asset.Asset) error {
	if d == nil {
		return shared.Faultf("debit delete without a change set")
	}
	key := debit.KeyFor(owner, debitor, a)
	ek := entry.DebitKey(owner, debitor, a)

	query := `DELETE FROM debits WHERE owner = $1 AND debitor = $2 AND issuer = $3 AND asset_code = $4`
	if _, err := r.querier.Exec(ctx, query, key.Owner, key.Debitor, key.Issuer, key.AssetCode); err != nil {
		r.logger.Error("Failed to delete debit authorization", "key", key.String(), "error", err)
		return fmt.Errorf("failed to delete debit authorization: %w", err)
	}

	r.cache.flush(ek)
	return d.DeleteEntry(ek)
}

// LoadAllForOwner scans the owner's authorizations. Not for the apply path.
func (r *DebitRepository) LoadAllForOwner(ctx context.Context, owner uuid.UUID) ([]*debit.Authorization, error) {
	query := `SELECT ` + debitColumns + `
		FROM debits
		WHERE owner = $1
		ORDER BY debitor, issuer, asset_code
	`
	return r.query(ctx, query, owner.String())
}

// LoadAll scans the whole table grouped by owner. Expensive; tooling only.
func (r *DebitRepository) LoadAll(ctx context.Context) (map[uuid.UUID][]*debit.Authorization, error) {
	query := `SELECT ` + debitColumns + `
		FROM debits
		ORDER BY owner, debitor, issuer, asset_code
	`
	auths, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[uuid.UUID][]*debit.Authorization)
	for _, auth := range auths {
		byOwner[auth.Owner] = append(byOwner[auth.Owner], auth)
	}
	return byOwner, nil
}

func (r *DebitRepository) query(ctx context.Context, query string, args ...any) ([]*debit.Authorization, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query debit authorizations", "error", err)
		return nil, fmt.Errorf("failed to query debit authorizations: %w", err)
	}
	defer rows.Close()

	var auths []*debit.Authorization
	for rows.Next() {
		auth, err := scanDebit(rows)
		if err != nil {
			r.logger.Error("Failed to scan debit authorization", "error", err)
			return nil, fmt.Errorf("failed to scan debit authorization: %w", err)
		}
		auths = append(auths, auth)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over debit authorizations", "error", err)
		return nil, fmt.Errorf("error iterating over debit authorizations: %w", err)
	}

	return auths, nil
}

func (r *DebitRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM debits`).Scan(&count); err != nil {
		r.logger.Error("Failed to count debit authorizations", "error", err)
		return 0, fmt.Errorf("failed to count debit authorizations: %w", err)
	}
	return count, nil
}

// CreateSchema creates the debits table and its owner index if missing
func (r *DebitRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range []string{createDebitsTable, createDebitsOwnerIndex} {
		if _, err := r.querier.Exec(ctx, stmt); err != nil {
			r.logger.Error("Failed to create debits schema", "error", err)
			return fmt.Errorf("failed to create debits schema: %w", err)
		}
	}
	return nil
}

// DropAll drops the debits table and clears the cache
func (r *DebitRepository) DropAll(ctx context.Context) error {
	if _, err := r.querier.Exec(ctx, dropDebitsTable); err != nil {
		r.logger.Error("Failed to drop debits table", "error", err)
		return fmt.Errorf("failed to drop debits table: %w", err)
	}
	if r.cache.c != nil {
		r.cache.c.Clear()
	}
	return nil
}
