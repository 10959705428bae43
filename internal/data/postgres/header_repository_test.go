package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/debit-ledger/internal/domain/header"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerCols = []string{"ledger_seq", "base_reserve", "base_fee", "closed_at"}

func TestHeaderRepository_Current(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &HeaderRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("ORDER BY ledger_seq DESC")

	t.Run("success", func(t *testing.T) {
		closed := time.Now().UTC()
		mock.ExpectQuery(query).
			WillReturnRows(pgxmock.NewRows(headerCols).AddRow(int64(12), int64(100), int64(10), closed))

		h, err := repo.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, header.Header{LedgerSeq: 12, BaseReserve: 100, BaseFee: 10, ClosedAt: closed}, h)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(pgx.ErrNoRows)

		_, err := repo.Current(ctx)
		assert.ErrorIs(t, err, header.ErrHeaderNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHeaderRepository_Advance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &HeaderRepository{querier: mock, logger: newTestLogger()}
	closedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_headers")).
			WillReturnRows(pgxmock.NewRows(headerCols).AddRow(int64(4), int64(100), int64(10), time.Time{}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_headers")).
			WithArgs(int64(5), int64(100), int64(10), closedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		next, err := repo.Advance(ctx, closedAt)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), next.LedgerSeq)
		assert.Equal(t, closedAt, next.ClosedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error", func(t *testing.T) {
		dbErr := errors.New("read-only transaction")
		mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_headers")).
			WillReturnRows(pgxmock.NewRows(headerCols).AddRow(int64(5), int64(100), int64(10), closedAt))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_headers")).
			WithArgs(int64(6), int64(100), int64(10), closedAt).
			WillReturnError(dbErr)

		_, err := repo.Advance(ctx, closedAt)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHeaderRepository_Init(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &HeaderRepository{querier: mock, logger: newTestLogger()}
	genesis := header.Header{LedgerSeq: 1, BaseReserve: 100, BaseFee: 10}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (ledger_seq) DO NOTHING")).
		WithArgs(int64(1), int64(100), int64(10), time.Time{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, repo.Init(ctx, genesis))
	assert.NoError(t, mock.ExpectationsWereMet())
}
