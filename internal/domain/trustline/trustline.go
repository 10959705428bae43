// Package trustline holds an account's registered willingness to hold an issued asset.
package trustline

import (
	"math"

	"github.com/debit-ledger/internal/domain/asset"
	"github.com/google/uuid"
)

// TrustLine is the ledger entry for one (account, asset) pair.
type TrustLine struct {
	AccountID    uuid.UUID   `json:"account_id"`
	Asset        asset.Asset `json:"asset"`
	Balance      int64       `json:"balance"`
	Limit        int64       `json:"limit"`
	Authorized   bool        `json:"authorized"`
	LastModified uint32      `json:"last_modified"`
}

// Key identifies a trust line by its derived string fields.
type Key struct {
	AccountID string
	Issuer    string
	AssetCode string
}

// KeyFor derives the key of the line held by accountID for a.
func KeyFor(accountID uuid.UUID, a asset.Asset) Key {
	return Key{
		AccountID: accountID.String(),
		Issuer:    a.IssuerString(),
		AssetCode: a.Code,
	}
}

func (k Key) String() string {
	return k.AccountID + ":" + k.Issuer + ":" + k.AssetCode
}

// New returns an empty line with the given limit.
func New(accountID uuid.UUID, a asset.Asset, limit int64, authorized bool) *TrustLine {
	return &TrustLine{
		AccountID:  accountID,
		Asset:      a,
		Limit:      limit,
		Authorized: authorized,
	}
}

// Key returns the identity of the line.
func (t *TrustLine) Key() Key {
	return KeyFor(t.AccountID, t.Asset)
}

// IsValid reports whether the line may be persisted.
func (t *TrustLine) IsValid() bool {
	return t.AccountID != uuid.Nil &&
		t.Asset.IsValidCredit() &&
		t.Limit > 0 &&
		t.Balance >= 0 &&
		t.Balance <= t.Limit
}

// IsAuthorized reports whether the issuer allows the line to hold the asset.
func (t *TrustLine) IsAuthorized() bool {
	return t.Authorized
}

// AddBalance adds delta to the balance if the result stays within [0, Limit].
func (t *TrustLine) AddBalance(delta int64) bool {
	if delta > 0 && t.Balance > math.MaxInt64-delta {
		return false
	}
	next := t.Balance + delta
	if next < 0 || next > t.Limit {
		return false
	}
	t.Balance = next
	return true
}

// Clone returns a copy safe to mutate.
func (t *TrustLine) Clone() *TrustLine {
	c := *t
	return &c
}
