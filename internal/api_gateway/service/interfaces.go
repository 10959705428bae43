package service

import (
	"context"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/google/uuid"
)

// AccountService defines the read side of the ledger entries
type AccountService interface {
	// GetAccount retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// ListTrustLines returns every trust line held by the account
	ListTrustLines(ctx context.Context, id uuid.UUID) ([]*trustline.TrustLine, error)

	// ListDebits returns every debit authorization granted by owner
	ListDebits(ctx context.Context, owner uuid.UUID) ([]*debit.Authorization, error)

	// CountDebits returns the number of stored debit authorizations
	CountDebits(ctx context.Context) (int64, error)
}

// TransactionService defines the interface for transaction operations
type TransactionService interface {
	// SubmitTransaction publishes an envelope for the processor with idempotency support
	// Returns the transaction ID and the existing record if the idempotency key was already used
	SubmitTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) (uuid.UUID, *history.Record, error)

	// GetTransactionByID retrieves the result of a transaction
	// Returns nil if the transaction is not archived yet
	GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*history.Record, error)

	// GetTransactionsByAccountID retrieves a page of results for a source account
	// Returns records, total count, and any error
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*history.Record, int64, error)
}
