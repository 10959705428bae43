package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// HeaderRepository implements header.Repository for PostgreSQL. Each closed ledger
// appends a row; the current header is the highest sequence.
type HeaderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewHeaderRepository(logger *slog.Logger, db *persistence.PostgresDB) *HeaderRepository {
	return &HeaderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *HeaderRepository) WithTx(tx pgx.Tx) *HeaderRepository {
	return &HeaderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Current returns the open ledger header
func (r *HeaderRepository) Current(ctx context.Context) (header.Header, error) {
	query := `
		SELECT ledger_seq, base_reserve, base_fee, closed_at
		FROM ledger_headers
		ORDER BY ledger_seq DESC
		LIMIT 1
	`

	var (
		h   header.Header
		seq int64
	)
	err := r.querier.QueryRow(ctx, query).Scan(&seq, &h.BaseReserve, &h.BaseFee, &h.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return header.Header{}, header.ErrHeaderNotFound
		}
		r.logger.Error("Failed to load ledger header", "error", err)
		return header.Header{}, fmt.Errorf("failed to load ledger header: %w", err)
	}
	h.LedgerSeq = uint32(seq)

	return h, nil
}

// Advance closes the current ledger at closedAt and opens the next one
func (r *HeaderRepository) Advance(ctx context.Context, closedAt time.Time) (header.Header, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return header.Header{}, err
	}

	next := current.Next(closedAt.UTC())
	if err := r.insert(ctx, next); err != nil {
		return header.Header{}, err
	}

	r.logger.Info("Ledger advanced", "ledger_seq", next.LedgerSeq)
	return next, nil
}

// Init writes the genesis header unless one already exists
func (r *HeaderRepository) Init(ctx context.Context, genesis header.Header) error {
	return r.insert(ctx, genesis)
}

func (r *HeaderRepository) insert(ctx context.Context, h header.Header) error {
	query := `
		INSERT INTO ledger_headers (ledger_seq, base_reserve, base_fee, closed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ledger_seq) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, int64(h.LedgerSeq), h.BaseReserve, h.BaseFee, h.ClosedAt); err != nil {
		r.logger.Error("Failed to write ledger header", "ledger_seq", h.LedgerSeq, "error", err)
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	return nil
}
