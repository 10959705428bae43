// Package header holds the ledger header values the apply path reads: the sequence of
// the open ledger and the reserve parameters.
package header

import (
	"context"
	"errors"
	"time"
)

// ErrHeaderNotFound indicates the header table has no rows
var ErrHeaderNotFound = errors.New("ledger header not found")

// Header describes the currently open ledger.
type Header struct {
	LedgerSeq   uint32    `json:"ledger_seq"`
	BaseReserve int64     `json:"base_reserve"`
	BaseFee     int64     `json:"base_fee"`
	ClosedAt    time.Time `json:"closed_at"`
}

// StartingSequenceNumber is the sequence number given to accounts created in this ledger.
func (h Header) StartingSequenceNumber() int64 {
	return int64(h.LedgerSeq) << 32
}

// MinimumBalance is the native balance an account owning numSubEntries auxiliary entries
// must keep.
func (h Header) MinimumBalance(numSubEntries uint32) int64 {
	return (2 + int64(numSubEntries)) * h.BaseReserve
}

// Next returns the header of the ledger following h.
func (h Header) Next(closedAt time.Time) Header {
	return Header{
		LedgerSeq:   h.LedgerSeq + 1,
		BaseReserve: h.BaseReserve,
		BaseFee:     h.BaseFee,
		ClosedAt:    closedAt,
	}
}

// Repository reads and advances the ledger header
type Repository interface {
	Current(ctx context.Context) (Header, error)
	Advance(ctx context.Context, closedAt time.Time) (Header, error)
	Init(ctx context.Context, genesis Header) error
}
