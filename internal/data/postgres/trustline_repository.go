package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TrustLineRepository is the trust line entry store
type TrustLineRepository struct {
	querier persistence.Querier
	cache   entryCache
	logger  *slog.Logger
}

func NewTrustLineRepository(logger *slog.Logger, db *persistence.PostgresDB, c *cache.EntryCache) *TrustLineRepository {
	return &TrustLineRepository{
		querier: db.Pool(),
		cache:   entryCache{c: c},
		logger:  logger,
	}
}

func (r *TrustLineRepository) WithTx(tx pgx.Tx) *TrustLineRepository {
	return &TrustLineRepository{
		querier: tx,
		cache:   r.cache,
		logger:  r.logger,
	}
}

const trustLineColumns = `account_id, asset_type, issuer, asset_code, balance, tlimit, authorized, last_modified`

func (r *TrustLineRepository) Exists(ctx context.Context, accountID uuid.UUID, a asset.Asset) (bool, error) {
	switch hit := r.cache.get(entry.TrustLineKey(accountID, a)); hit.State {
	case cache.Present:
		return true, nil
	case cache.Absent:
		return false, nil
	}

	line, err := r.fetch(ctx, accountID, a)
	if err != nil {
		return false, err
	}
	return line != nil, nil
}

func (r *TrustLineRepository) Load(ctx context.Context, accountID uuid.UUID, a asset.Asset, d *delta.Delta) (*trustline.TrustLine, error) {
	var line *trustline.TrustLine
	switch hit := r.cache.get(entry.TrustLineKey(accountID, a)); hit.State {
	case cache.Absent:
		return nil, nil
	case cache.Present:
		line = hit.Entry.TrustLine
	default:
		var err error
		if line, err = r.fetch(ctx, accountID, a); err != nil {
			return nil, err
		}
	}

	if line == nil {
		return nil, nil
	}
	if d != nil {
		if err := d.RecordEntry(entry.FromTrustLine(line)); err != nil {
			return nil, err
		}
	}
	return line, nil
}

func (r *TrustLineRepository) fetch(ctx context.Context, accountID uuid.UUID, a asset.Asset) (*trustline.TrustLine, error) {
	key := trustline.KeyFor(accountID, a)
	query := `SELECT ` + trustLineColumns + `
		FROM trustlines
		WHERE account_id = $1 AND issuer = $2 AND asset_code = $3
	`

	line, err := scanTrustLine(r.querier.QueryRow(ctx, query, key.AccountID, key.Issuer, key.AssetCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.cache.remember(entry.TrustLineKey(accountID, a), nil)
			return nil, nil
		}
		r.logger.Error("Failed to load trust line", "key", key.String(), "error", err)
		return nil, fmt.Errorf("failed to load trust line: %w", err)
	}

	r.cache.remember(entry.TrustLineKey(accountID, a), entry.FromTrustLine(line))
	return line.Clone(), nil
}

func scanTrustLine(row pgx.Row) (*trustline.TrustLine, error) {
	var (
		accountID, issuer, code string
		assetType               int
		lastModified            int64
		line                    trustline.TrustLine
	)
	if err := row.Scan(&accountID, &assetType, &issuer, &code, &line.Balance, &line.Limit, &line.Authorized, &lastModified); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trust line account %q: %w", accountID, err)
	}
	a, err := asset.FromColumns(assetType, code, issuer)
	if err != nil {
		return nil, err
	}

	line.AccountID = id
	line.Asset = a
	line.LastModified = uint32(lastModified)
	return &line, nil
}

// ListByAccount implements trustline.Repository
func (r *TrustLineRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*trustline.TrustLine, error) {
	query := `SELECT ` + trustLineColumns + `
		FROM trustlines
		WHERE account_id = $1
		ORDER BY issuer, asset_code
	`

	rows, err := r.querier.Query(ctx, query, accountID.String())
	if err != nil {
		r.logger.Error("Failed to list trust lines", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list trust lines: %w", err)
	}
	defer rows.Close()

	var lines []*trustline.TrustLine
	for rows.Next() {
		line, err := scanTrustLine(rows)
		if err != nil {
			r.logger.Error("Failed to scan trust line", "error", err)
			return nil, fmt.Errorf("failed to scan trust line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over trust lines", "error", err)
		return nil, fmt.Errorf("error iterating over trust lines: %w", err)
	}

	return lines, nil
}

func (r *TrustLineRepository) Add(ctx context.Context, d *delta.Delta, line *trustline.TrustLine) error {
	if d == nil {
		return shared.Faultf("trust line add without a change set")
	}
	if !line.IsValid() {
		return entry.ErrInvalidEntry
	}
	line.LastModified = d.Header().LedgerSeq
	key := line.Key()
	ek := entry.TrustLineKey(line.AccountID, line.Asset)

	query := `
		INSERT INTO trustlines (` + trustLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, issuer, asset_code) DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, query,
		key.AccountID,
		int(line.Asset.Type),
		key.Issuer,
		key.AssetCode,
		line.Balance,
		line.Limit,
		line.Authorized,
		int64(line.LastModified),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entry.ErrAlreadyExists
		}
		r.logger.Error("Failed to add trust line", "key", key.String(), "error", err)
		return fmt.Errorf("failed to add trust line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrAlreadyExists
	}
	if err := expectOne(tag, "insert", ek); err != nil {
		return err
	}

	r.cache.flush(ek)
	return d.AddEntry(entry.FromTrustLine(line))
}

func (r *TrustLineRepository) Change(ctx context.Context, d *delta.Delta, line *trustline.TrustLine) error {
	if d == nil {
		return shared.Faultf("trust line change without a change set")
	}
	if !line.IsValid() {
		return entry.ErrInvalidEntry
	}
	line.LastModified = d.Header().LedgerSeq
	key := line.Key()
	ek := entry.TrustLineKey(line.AccountID, line.Asset)

	query := `
		UPDATE trustlines
		SET balance = $1, tlimit = $2, authorized = $3, last_modified = $4
		WHERE account_id = $5 AND issuer = $6 AND asset_code = $7
	`

	tag, err := r.querier.Exec(ctx, query,
		line.Balance,
		line.Limit,
		line.Authorized,
		int64(line.LastModified),
		key.AccountID,
		key.Issuer,
		key.AssetCode,
	)
	if err != nil {
		r.logger.Error("Failed to update trust line", "key", key.String(), "error", err)
		return fmt.Errorf("failed to update trust line: %w", err)
	}
	if err := expectOne(tag, "update", ek); err != nil {
		return err
	}

	r.cache.flush(ek)
	return d.ModEntry(entry.FromTrustLine(line))
}

func (r *TrustLineRepository) Delete(ctx context.Context, d *delta.Delta, accountID uuid.UUID, a asset.Asset) error {
	if d == nil {
		return shared.Faultf("trust line delete without a change set")
	}
	key := trustline.KeyFor(accountID, a)
	ek := entry.TrustLineKey(accountID, a)

	query := `DELETE FROM trustlines WHERE account_id = $1 AND issuer = $2 AND asset_code = $3`
	if _, err := r.querier.Exec(ctx, query, key.AccountID, key.Issuer, key.AssetCode); err != nil {
		r.logger.Error("Failed to delete trust line", "key", key.String(), "error", err)
		return fmt.Errorf("failed to delete trust line: %w", err)
	}

	r.cache.flush(ek)
	return d.DeleteEntry(ek)
}
