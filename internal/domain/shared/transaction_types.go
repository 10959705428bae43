package shared

// OperationType names the operation kinds accepted on the wire
type OperationType string

const (
	OperationTypeCreateAccount OperationType = "CREATE_ACCOUNT"
	OperationTypePayment       OperationType = "PAYMENT"
	OperationTypeChangeTrust   OperationType = "CHANGE_TRUST"
	OperationTypeManageDebit   OperationType = "MANAGE_DEBIT"
	OperationTypeDirectDebit   OperationType = "DIRECT_DEBIT"
)

// IsKnown reports whether t is one of the supported operation types.
func (t OperationType) IsKnown() bool {
	switch t {
	case OperationTypeCreateAccount, OperationTypePayment, OperationTypeChangeTrust,
		OperationTypeManageDebit, OperationTypeDirectDebit:
		return true
	}
	return false
}

// TransactionStatus defines transaction processing states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// FailureReason defines transaction failure categories
type FailureReason string

const (
	FailureReasonMalformedEnvelope FailureReason = "MALFORMED_ENVELOPE"
	FailureReasonNoSourceAccount   FailureReason = "NO_SOURCE_ACCOUNT"
	FailureReasonOperationFailed   FailureReason = "OPERATION_FAILED"
	FailureReasonMalformedBody     FailureReason = "MALFORMED_OPERATION_BODY"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
