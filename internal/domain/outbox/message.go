package outbox

import (
	"encoding/json"
	"time"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message carries a transaction result from the apply transaction to the history store
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	SourceAccount uuid.UUID           `json:"source_account"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps record in a pending message.
func NewMessage(record *history.Record) (*Message, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: record.TransactionID,
		SourceAccount: record.SourceAccount,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (m *Message) touch() {
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	m.touch()
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	m.touch()
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	m.touch()
}

// Record decodes the history record carried in the payload
func (m *Message) Record() (*history.Record, error) {
	var record history.Record
	if err := json.Unmarshal(m.Payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
