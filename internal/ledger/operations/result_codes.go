package operations

import "fmt"

// ResultCode is implemented by every per-operation result taxonomy.
type ResultCode interface {
	fmt.Stringer
	IsSuccess() bool
}

// OperationResultCode is the outer code of a result. Only OpInner carries a meaningful
// per-operation code.
type OperationResultCode int

const (
	OpInner OperationResultCode = iota
	OpNoAccount
	OpNotSupported
)

func (c OperationResultCode) String() string {
	switch c {
	case OpInner:
		return "INNER"
	case OpNoAccount:
		return "NO_ACCOUNT"
	case OpNotSupported:
		return "NOT_SUPPORTED"
	default:
		return fmt.Sprintf("OPERATION_RESULT(%d)", int(c))
	}
}

func codeName(names []string, code int, family string) string {
	if code < 0 || code >= len(names) {
		return fmt.Sprintf("%s(%d)", family, code)
	}
	return names[code]
}

// CreateAccountResultCode

type CreateAccountResultCode int

const (
	CreateAccountSuccess CreateAccountResultCode = iota
	CreateAccountMalformed
	CreateAccountAlreadyExist
)

var createAccountNames = []string{"SUCCESS", "MALFORMED", "ALREADY_EXIST"}

func (c CreateAccountResultCode) String() string {
	return codeName(createAccountNames, int(c), "CREATE_ACCOUNT")
}

func (c CreateAccountResultCode) IsSuccess() bool { return c == CreateAccountSuccess }

// ManageDebitResultCode

type ManageDebitResultCode int

const (
	ManageDebitSuccess ManageDebitResultCode = iota
	ManageDebitMalformed
	ManageDebitNotFound
	ManageDebitLowReserve
	ManageDebitAlreadyExists
	ManageDebitNoDebitor
	ManageDebitNoTrust
)

var manageDebitNames = []string{
	"SUCCESS", "MALFORMED", "NOT_FOUND", "LOW_RESERVE", "ALREADY_EXISTS", "NO_DEBITOR", "NO_TRUST",
}

func (c ManageDebitResultCode) String() string {
	return codeName(manageDebitNames, int(c), "MANAGE_DEBIT")
}

func (c ManageDebitResultCode) IsSuccess() bool { return c == ManageDebitSuccess }

// DirectDebitResultCode

type DirectDebitResultCode int

const (
	DirectDebitSuccess DirectDebitResultCode = iota
	DirectDebitMalformed
	DirectDebitNoDebit
	DirectDebitOwnerUnderfunded
	DirectDebitOwnerNoTrust
	DirectDebitOwnerNotAuthorized
	DirectDebitNoDestination
	DirectDebitDestinationNoTrust
	DirectDebitDestinationNotAuthorized
	DirectDebitLineFull
	DirectDebitNoIssuer
)

var directDebitNames = []string{
	"SUCCESS", "MALFORMED", "NO_DEBIT", "OWNER_UNDERFUNDED", "OWNER_NO_TRUST",
	"OWNER_NOT_AUTHORIZED", "NO_DESTINATION", "DESTINATION_NO_TRUST",
	"DESTINATION_NOT_AUTHORIZED", "LINE_FULL", "NO_ISSUER",
}

func (c DirectDebitResultCode) String() string {
	return codeName(directDebitNames, int(c), "DIRECT_DEBIT")
}

func (c DirectDebitResultCode) IsSuccess() bool { return c == DirectDebitSuccess }

// PaymentResultCode

type PaymentResultCode int

const (
	PaymentSuccess PaymentResultCode = iota
	PaymentMalformed
	PaymentUnderfunded
	PaymentSrcNoTrust
	PaymentSrcNotAuthorized
	PaymentNoDestination
	PaymentNoTrust
	PaymentNotAuthorized
	PaymentLineFull
	PaymentNoIssuer

	// numPaymentResultCodes must stay last.
	numPaymentResultCodes
)

var paymentNames = []string{
	"SUCCESS", "MALFORMED", "UNDERFUNDED", "SRC_NO_TRUST", "SRC_NOT_AUTHORIZED",
	"NO_DESTINATION", "NO_TRUST", "NOT_AUTHORIZED", "LINE_FULL", "NO_ISSUER",
}

func (c PaymentResultCode) String() string {
	return codeName(paymentNames, int(c), "PAYMENT")
}

func (c PaymentResultCode) IsSuccess() bool { return c == PaymentSuccess }

// PaymentResultCodes lists the whole Payment taxonomy in declaration order.
func PaymentResultCodes() []PaymentResultCode {
	codes := make([]PaymentResultCode, 0, numPaymentResultCodes)
	for c := PaymentSuccess; c < numPaymentResultCodes; c++ {
		codes = append(codes, c)
	}
	return codes
}

// ChangeTrustResultCode

type ChangeTrustResultCode int

const (
	ChangeTrustSuccess ChangeTrustResultCode = iota
	ChangeTrustMalformed
	ChangeTrustNoIssuer
	ChangeTrustInvalidLimit
	ChangeTrustLowReserve
)

var changeTrustNames = []string{"SUCCESS", "MALFORMED", "NO_ISSUER", "INVALID_LIMIT", "LOW_RESERVE"}

func (c ChangeTrustResultCode) String() string {
	return codeName(changeTrustNames, int(c), "CHANGE_TRUST")
}

func (c ChangeTrustResultCode) IsSuccess() bool { return c == ChangeTrustSuccess }
