package shared

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyEnvelope        = errors.New("transaction envelope has no operations")
	ErrMissingSource        = errors.New("transaction envelope has no source account")
	ErrUnknownOperation     = errors.New("unknown operation type")
	ErrTooManyOperations    = errors.New("transaction envelope exceeds the operation limit")
	ErrMissingTransactionID = errors.New("transaction envelope has no transaction id")
)

// MaxOperationsPerTransaction bounds the number of operations in one envelope.
const MaxOperationsPerTransaction = 100

// OperationRequest is the wire form of one operation inside an envelope. Body is decoded
// according to Type by the operations package.
type OperationRequest struct {
	Type          OperationType   `json:"type"`
	SourceAccount *uuid.UUID      `json:"source_account,omitempty"`
	Body          json.RawMessage `json:"body"`
}

// TransactionEnvelope defines a Kafka message carrying one transaction to apply
type TransactionEnvelope struct {
	TransactionID  uuid.UUID          `json:"transaction_id"`
	SourceAccount  uuid.UUID          `json:"source_account"`
	Operations     []OperationRequest `json:"operations"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
	CorrelationID  string             `json:"correlation_id"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Validate checks the envelope shape. Operation bodies are validated when decoded.
func (e *TransactionEnvelope) Validate() error {
	if e.TransactionID == uuid.Nil {
		return ErrMissingTransactionID
	}
	if e.SourceAccount == uuid.Nil {
		return ErrMissingSource
	}
	if len(e.Operations) == 0 {
		return ErrEmptyEnvelope
	}
	if len(e.Operations) > MaxOperationsPerTransaction {
		return ErrTooManyOperations
	}
	for _, op := range e.Operations {
		if !op.Type.IsKnown() {
			return ErrUnknownOperation
		}
	}
	return nil
}
