// Package asset describes the assets an account can hold: the native base asset and
// issued credit assets identified by a short code and an issuer account.
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Type distinguishes the native asset from the two issued-code encodings.
type Type int

const (
	TypeNative Type = iota
	TypeCreditAlphanum4
	TypeCreditAlphanum12
)

const (
	maxAlphanum4Len  = 4
	maxAlphanum12Len = 12
)

var (
	ErrInvalidCode   = errors.New("asset code must be 1-12 alphanumeric characters")
	ErrInvalidIssuer = errors.New("asset issuer is required")
	ErrNativeAsset   = errors.New("native asset is not an issued asset")
)

func (t Type) String() string {
	switch t {
	case TypeNative:
		return "native"
	case TypeCreditAlphanum4:
		return "credit_alphanum4"
	case TypeCreditAlphanum12:
		return "credit_alphanum12"
	default:
		return fmt.Sprintf("asset_type(%d)", int(t))
	}
}

// Asset is a native or issued asset. The zero value is the native asset.
type Asset struct {
	Type   Type      `json:"type"`
	Code   string    `json:"code,omitempty"`
	Issuer uuid.UUID `json:"issuer,omitempty"`
}

// Native returns the base asset.
func Native() Asset {
	return Asset{Type: TypeNative}
}

// NewCredit builds an issued asset, picking the code encoding from the code length.
func NewCredit(code string, issuer uuid.UUID) (Asset, error) {
	code = strings.TrimSpace(code)
	if !validCode(code, maxAlphanum12Len) {
		return Asset{}, ErrInvalidCode
	}
	if issuer == uuid.Nil {
		return Asset{}, ErrInvalidIssuer
	}
	t := TypeCreditAlphanum4
	if len(code) > maxAlphanum4Len {
		t = TypeCreditAlphanum12
	}
	return Asset{Type: t, Code: code, Issuer: issuer}, nil
}

// MustCredit is NewCredit for fixtures and constants; it panics on a bad descriptor.
func MustCredit(code string, issuer uuid.UUID) Asset {
	a, err := NewCredit(code, issuer)
	if err != nil {
		panic(err)
	}
	return a
}

// IsNative reports whether a is the base asset.
func (a Asset) IsNative() bool {
	return a.Type == TypeNative
}

// IsValid reports whether a is well formed: the native asset with no code or issuer, or
// an issued asset whose code length matches its encoding and whose issuer is set.
func (a Asset) IsValid() bool {
	switch a.Type {
	case TypeNative:
		return a.Code == "" && a.Issuer == uuid.Nil
	case TypeCreditAlphanum4:
		return a.Issuer != uuid.Nil && validCode(a.Code, maxAlphanum4Len)
	case TypeCreditAlphanum12:
		return a.Issuer != uuid.Nil && len(a.Code) > maxAlphanum4Len && validCode(a.Code, maxAlphanum12Len)
	default:
		return false
	}
}

// IsValidCredit reports whether a is a well formed issued asset.
func (a Asset) IsValidCredit() bool {
	return !a.IsNative() && a.IsValid()
}

// Equal compares type, code and issuer.
func (a Asset) Equal(b Asset) bool {
	return a.Type == b.Type && a.Code == b.Code && a.Issuer == b.Issuer
}

// IssuerString renders the issuer in its canonical external form, empty for native.
func (a Asset) IssuerString() string {
	if a.IsNative() {
		return ""
	}
	return a.Issuer.String()
}

func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Code + ":" + a.Issuer.String()
}

// FromColumns rebuilds an asset from its stored (type, code, issuer) columns.
func FromColumns(assetType int, code, issuer string) (Asset, error) {
	t := Type(assetType)
	if t == TypeNative {
		return Native(), nil
	}
	id, err := uuid.Parse(issuer)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to parse asset issuer %q: %w", issuer, err)
	}
	a := Asset{Type: t, Code: strings.TrimSpace(code), Issuer: id}
	if !a.IsValid() {
		return Asset{}, fmt.Errorf("stored asset %s is malformed", a)
	}
	return a, nil
}

func validCode(code string, maxLen int) bool {
	if len(code) == 0 || len(code) > maxLen {
		return false
	}
	for _, r := range code {
		isDigit := r >= '0' && r <= '9'
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		if !isDigit && !isUpper && !isLower {
			return false
		}
	}
	return true
}
