package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/data/postgres"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/debit-ledger/internal/ledger/operations"
	"github.com/debit-ledger/internal/platform/metrics"
	"github.com/debit-ledger/internal/transaction_processor/service"
	"github.com/jackc/pgx/v5"
)

var (
	_ operations.AccountStore   = (*postgres.AccountRepository)(nil)
	_ operations.TrustLineStore = (*postgres.TrustLineRepository)(nil)
	_ operations.DebitStore     = (*postgres.DebitRepository)(nil)
)

// HeaderReader reads the header of the open ledger
type HeaderReader interface {
	Current(ctx context.Context) (header.Header, error)
}

// StoreSet is the header and entry stores one envelope applies against
type StoreSet struct {
	Headers    HeaderReader
	Accounts   operations.AccountStore
	TrustLines operations.TrustLineStore
	Debits     operations.DebitStore
}

// StoreBinder binds a StoreSet to an open transaction
type StoreBinder func(tx pgx.Tx) StoreSet

// PostgresStores binds the Postgres repositories to the apply transaction.
func PostgresStores(
	headers *postgres.HeaderRepository,
	accounts *postgres.AccountRepository,
	trustLines *postgres.TrustLineRepository,
	debits *postgres.DebitRepository,
) StoreBinder {
	return func(tx pgx.Tx) StoreSet {
		return StoreSet{
			Headers:    headers.WithTx(tx),
			Accounts:   accounts.WithTx(tx),
			TrustLines: trustLines.WithTx(tx),
			Debits:     debits.WithTx(tx),
		}
	}
}

type LedgerApplierImpl struct {
	stores   StoreBinder
	cache    *cache.EntryCache
	observer metrics.Observer
	logger   *slog.Logger
}

// NewLedgerApplier builds the apply engine. c may be nil.
func NewLedgerApplier(stores StoreBinder, c *cache.EntryCache, observer metrics.Observer, logger *slog.Logger) service.LedgerApplier {
	if observer == nil {
		observer = metrics.NewNopObserver()
	}
	return &LedgerApplierImpl{
		stores:   stores,
		cache:    c,
		observer: observer,
		logger:   logger,
	}
}

// Apply runs every operation of envelope against one change set. All operations run
// even after one fails, so the record carries a code for each of them. The returned
// error is reserved for faults and storage failures; when it is set the result still
// carries the change set if one was opened.
func (a *LedgerApplierImpl) Apply(ctx context.Context, tx pgx.Tx, envelope *shared.TransactionEnvelope) (result *service.ApplyResult, err error) {
	logger := a.logger
	if envelope.CorrelationID != "" {
		logger = a.logger.With("correlation_id", envelope.CorrelationID)
	}

	stores := a.stores(tx)
	h, err := stores.Headers.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger header: %w", err)
	}

	var dc delta.Cache
	if a.cache != nil {
		dc = a.cache
	}
	d := delta.New(h, dc)
	defer func() {
		if p := recover(); p != nil {
			_ = d.Rollback(ctx, nil)
			panic(p)
		}
	}()

	record := history.NewRecord(envelope)
	record.LedgerSeq = h.LedgerSeq
	result = &service.ApplyResult{Record: record, Delta: d}

	ac := &operations.ApplyContext{
		Accounts:   stores.Accounts,
		TrustLines: stores.TrustLines,
		Debits:     stores.Debits,
		Delta:      d,
		Header:     h,
	}

	source, err := ac.Accounts.Load(ctx, envelope.SourceAccount, d)
	if err != nil {
		return result, fmt.Errorf("failed to load source account: %w", err)
	}
	if source == nil {
		logger.Warn("Transaction source account not found",
			"transaction_id", envelope.TransactionID.String(),
			"source_account", envelope.SourceAccount.String(),
		)
		record.FailureReason = string(shared.FailureReasonNoSourceAccount)
		return result, nil
	}

	for i, req := range envelope.Operations {
		outcome, err := a.applyOne(ctx, ac, envelope, req)
		if err != nil {
			return result, fmt.Errorf("operation %d (%s): %w", i, req.Type, err)
		}
		outcome.Index = i
		record.Operations = append(record.Operations, outcome)

		if !outcome.Success && record.FailureReason == "" {
			record.FailureReason = fmt.Sprintf("%s: operation %d %s %s",
				shared.FailureReasonOperationFailed, i, outcome.Type, outcome.Code)
		}
		logger.Debug("Operation applied",
			"transaction_id", envelope.TransactionID.String(),
			"index", i,
			"type", outcome.Type,
			"code", outcome.Code,
		)
	}

	record.ChangeCount = d.Len()
	return result, nil
}

// applyOne decodes and runs one operation. The source account is reloaded for every
// operation so it reflects what earlier operations did to it.
func (a *LedgerApplierImpl) applyOne(ctx context.Context, ac *operations.ApplyContext, envelope *shared.TransactionEnvelope, req shared.OperationRequest) (history.OperationOutcome, error) {
	op, err := operations.Decode(req)
	if err != nil {
		if errors.Is(err, operations.ErrMalformedBody) || errors.Is(err, shared.ErrUnknownOperation) {
			return history.OperationOutcome{
				Type: req.Type,
				Code: string(shared.FailureReasonMalformedBody),
			}, nil
		}
		return history.OperationOutcome{}, err
	}

	source, err := ac.Accounts.Load(ctx, op.SourceOr(envelope.SourceAccount), ac.Delta)
	if err != nil {
		return history.OperationOutcome{}, fmt.Errorf("failed to load operation source account: %w", err)
	}

	frame := operations.NewFrame(op, source)
	res, err := operations.Run(ctx, frame, ac, a.observer)
	if err != nil {
		return history.OperationOutcome{}, err
	}

	return history.OperationOutcome{
		Type:    res.Type,
		Code:    res.String(),
		Success: res.Success(),
	}, nil
}
