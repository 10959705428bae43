// Package debit models delegated debit authorizations: an owner's standing permission
// for a debitor account to pull a specific issued asset from the owner's balance.
package debit

import (
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/google/uuid"
)

// Authorization is immutable once stored; it can only be deleted.
type Authorization struct {
	Owner   uuid.UUID   `json:"owner"`
	Debitor uuid.UUID   `json:"debitor"`
	Asset   asset.Asset `json:"asset"`
}

// Key holds the derived string fields of the primary key (owner, debitor, issuer,
// asset code). Two keys are equal iff every field is equal.
type Key struct {
	Owner     string
	Debitor   string
	Issuer    string
	AssetCode string
}

// KeyFor derives the key of the authorization (owner, debitor, a).
func KeyFor(owner, debitor uuid.UUID, a asset.Asset) Key {
	return Key{
		Owner:     owner.String(),
		Debitor:   debitor.String(),
		Issuer:    a.IssuerString(),
		AssetCode: a.Code,
	}
}

func (k Key) String() string {
	return k.Owner + ":" + k.Debitor + ":" + k.Issuer + ":" + k.AssetCode
}

// New builds an authorization owned by owner.
func New(owner, debitor uuid.UUID, a asset.Asset) *Authorization {
	return &Authorization{Owner: owner, Debitor: debitor, Asset: a}
}

// Key returns the identity of the authorization.
func (a *Authorization) Key() Key {
	return KeyFor(a.Owner, a.Debitor, a.Asset)
}

// IsValid requires a well formed issued asset and both parties set.
func (a *Authorization) IsValid() bool {
	return a.Owner != uuid.Nil && a.Debitor != uuid.Nil && a.Asset.IsValidCredit()
}

// Clone returns a copy.
func (a *Authorization) Clone() *Authorization {
	c := *a
	return &c
}
