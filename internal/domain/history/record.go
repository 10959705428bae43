// Package history holds the archived outcome of every processed transaction envelope.
package history

import (
	"time"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// OperationOutcome is the result of one operation inside a transaction
type OperationOutcome struct {
	Index   int                  `json:"index" bson:"index"`
	Type    shared.OperationType `json:"type" bson:"type"`
	Code    string               `json:"code" bson:"code"`
	Success bool                 `json:"success" bson:"success"`
}

// Record is the archived result of one transaction envelope
type Record struct {
	TransactionID  uuid.UUID                `json:"transaction_id" bson:"transaction_id"`
	SourceAccount  uuid.UUID                `json:"source_account" bson:"source_account"`
	Operations     []OperationOutcome       `json:"operations" bson:"operations"`
	LedgerSeq      uint32                   `json:"ledger_seq" bson:"ledger_seq"`
	ChangeCount    int                      `json:"change_count" bson:"change_count"`
	IdempotencyKey string                   `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CorrelationID  string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status         shared.TransactionStatus `json:"status" bson:"status"`
	FailureReason  string                   `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at" bson:"created_at"`
	ProcessedAt    *time.Time               `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// NewRecord starts a pending record for env. Operation outcomes are appended as the
// operations apply.
func NewRecord(env *shared.TransactionEnvelope) *Record {
	return &Record{
		TransactionID:  env.TransactionID,
		SourceAccount:  env.SourceAccount,
		Operations:     make([]OperationOutcome, 0, len(env.Operations)),
		IdempotencyKey: env.IdempotencyKey,
		CorrelationID:  env.CorrelationID,
		Status:         shared.TransactionStatusPending,
		CreatedAt:      env.Timestamp,
	}
}

// Succeeded reports whether every operation in the record applied.
func (r *Record) Succeeded() bool {
	if len(r.Operations) == 0 {
		return false
	}
	for _, op := range r.Operations {
		if !op.Success {
			return false
		}
	}
	return true
}
