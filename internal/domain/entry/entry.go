// Package entry defines the closed set of ledger entry kinds, their keys and the errors
// shared by every entry store.
package entry

import (
	"errors"
	"fmt"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/google/uuid"
)

var (
	ErrInvalidEntry  = errors.New("ledger entry is invalid")
	ErrAlreadyExists = errors.New("ledger entry already exists")
	// ErrImmutableEntry is a fault: immutable kinds are deleted, never changed in place.
	ErrImmutableEntry = fmt.Errorf("%w: ledger entry is immutable", shared.ErrFault)
)

// Kind tags the entry variants.
type Kind int

const (
	KindAccount Kind = iota + 1
	KindTrustLine
	KindDebitAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindTrustLine:
		return "trustline"
	case KindDebitAuthorization:
		return "debit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key is a comparable entry identity usable as a map key.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.ID
}

// AccountKey is the key of account id.
func AccountKey(id uuid.UUID) Key {
	return Key{Kind: KindAccount, ID: id.String()}
}

// TrustLineKey is the key of the line accountID holds for a.
func TrustLineKey(accountID uuid.UUID, a asset.Asset) Key {
	return Key{Kind: KindTrustLine, ID: trustline.KeyFor(accountID, a).String()}
}

// DebitKey is the key of the authorization (owner, debitor, a).
func DebitKey(owner, debitor uuid.UUID, a asset.Asset) Key {
	return Key{Kind: KindDebitAuthorization, ID: debit.KeyFor(owner, debitor, a).String()}
}

// Entry holds exactly one of its variant pointers.
type Entry struct {
	Account   *account.Account
	TrustLine *trustline.TrustLine
	Debit     *debit.Authorization
}

func FromAccount(a *account.Account) *Entry       { return &Entry{Account: a} }
func FromTrustLine(t *trustline.TrustLine) *Entry { return &Entry{TrustLine: t} }
func FromDebit(d *debit.Authorization) *Entry     { return &Entry{Debit: d} }

// Kind reports which variant is set; zero when none is.
func (e *Entry) Kind() Kind {
	switch {
	case e.Account != nil:
		return KindAccount
	case e.TrustLine != nil:
		return KindTrustLine
	case e.Debit != nil:
		return KindDebitAuthorization
	default:
		return 0
	}
}

// Key derives the identity of the entry.
func (e *Entry) Key() Key {
	switch e.Kind() {
	case KindAccount:
		return AccountKey(e.Account.ID)
	case KindTrustLine:
		return TrustLineKey(e.TrustLine.AccountID, e.TrustLine.Asset)
	case KindDebitAuthorization:
		return DebitKey(e.Debit.Owner, e.Debit.Debitor, e.Debit.Asset)
	default:
		return Key{}
	}
}

// IsValid dispatches to the variant's validity predicate.
func (e *Entry) IsValid() bool {
	switch e.Kind() {
	case KindAccount:
		return e.Account.IsValid()
	case KindTrustLine:
		return e.TrustLine.IsValid()
	case KindDebitAuthorization:
		return e.Debit.IsValid()
	default:
		return false
	}
}

// Clone deep-copies the set variant.
func (e *Entry) Clone() *Entry {
	switch e.Kind() {
	case KindAccount:
		return FromAccount(e.Account.Clone())
	case KindTrustLine:
		return FromTrustLine(e.TrustLine.Clone())
	case KindDebitAuthorization:
		return FromDebit(e.Debit.Clone())
	default:
		return &Entry{}
	}
}
