package account

import (
	"errors"
	"math"

	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNilAccountID  = errors.New("account id is required")
)

// Flags set on an account acting as an issuer
const (
	FlagAuthRequired  uint32 = 1 << 0
	FlagAuthRevocable uint32 = 1 << 1
	allFlags                 = FlagAuthRequired | FlagAuthRevocable
)

// Account is the ledger entry of one account. Balance is the native balance in stroops.
type Account struct {
	ID            uuid.UUID `json:"id"`
	Balance       int64     `json:"balance"`
	SeqNum        int64     `json:"seq_num"`
	NumSubEntries uint32    `json:"num_sub_entries"`
	Flags         uint32    `json:"flags"`
	LastModified  uint32    `json:"last_modified"`
}

// NewAccount returns an empty account seeded with the given starting sequence number.
func NewAccount(id uuid.UUID, startingSeq int64) *Account {
	return &Account{
		ID:     id,
		SeqNum: startingSeq,
	}
}

// IsValid reports whether the entry may be persisted.
func (a *Account) IsValid() bool {
	return a.ID != uuid.Nil && a.Balance >= 0 && a.Flags&^allFlags == 0
}

// IsAuthRequired reports whether trust lines to this issuer start unauthorized.
func (a *Account) IsAuthRequired() bool {
	return a.Flags&FlagAuthRequired != 0
}

// MinimumBalance is the reserve the account must hold for its current sub-entries.
func (a *Account) MinimumBalance(h header.Header) int64 {
	return h.MinimumBalance(a.NumSubEntries)
}

// AvailableBalance is the native balance above the reserve.
func (a *Account) AvailableBalance(h header.Header) int64 {
	return a.Balance - a.MinimumBalance(h)
}

// AddNumEntries adjusts the auxiliary-entry count by count. It returns false, leaving
// the account untouched, when the balance would not cover the resulting reserve. The
// reserve is checked for releases as well as for new entries. A count going negative
// means the ledger is corrupt and is reported as a fault.
func (a *Account) AddNumEntries(count int, h header.Header) (bool, error) {
	next := int64(a.NumSubEntries) + int64(count)
	if next < 0 || next > math.MaxUint32 {
		return false, shared.Faultf("account %s sub-entry count would become %d", a.ID, next)
	}
	if a.Balance < h.MinimumBalance(uint32(next)) {
		return false, nil
	}
	a.NumSubEntries = uint32(next)
	return true, nil
}

// AddBalance adds delta to the native balance. It fails on overflow or when the result
// would drop below zero; reserve checks are the caller's concern.
func (a *Account) AddBalance(delta int64) bool {
	if delta > 0 && a.Balance > math.MaxInt64-delta {
		return false
	}
	next := a.Balance + delta
	if next < 0 {
		return false
	}
	a.Balance = next
	return true
}

// Clone returns a copy safe to mutate.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
