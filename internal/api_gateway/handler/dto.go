package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/debit-ledger/internal/ledger/operations"
	"github.com/google/uuid"
)

var ErrMissingField = errors.New("required field is missing")

// AssetRequest describes an asset in a request. An empty code means the native asset.
type AssetRequest struct {
	Code   string `json:"code,omitempty"`
	Issuer string `json:"issuer,omitempty" binding:"omitempty,uuid"`
}

// OperationRequest is one operation of a transaction submission. Which fields are read
// depends on Type.
type OperationRequest struct {
	Type          string        `json:"type" binding:"required,oneof=CREATE_ACCOUNT PAYMENT CHANGE_TRUST MANAGE_DEBIT DIRECT_DEBIT"`
	SourceAccount string        `json:"source_account,omitempty" binding:"omitempty,uuid"`
	Destination   string        `json:"destination,omitempty" binding:"omitempty,uuid"`
	Debitor       string        `json:"debitor,omitempty" binding:"omitempty,uuid"`
	Owner         string        `json:"owner,omitempty" binding:"omitempty,uuid"`
	Asset         *AssetRequest `json:"asset,omitempty"`
	Amount        string        `json:"amount,omitempty"`
	Limit         string        `json:"limit,omitempty"`
	Delete        bool          `json:"delete,omitempty"`
}

// SubmitTransactionRequest represents a request to submit a transaction envelope
type SubmitTransactionRequest struct {
	SourceAccount  string             `json:"source_account" binding:"required,uuid"`
	Operations     []OperationRequest `json:"operations" binding:"required,min=1,max=100,dive"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

// ToEnvelope builds the wire envelope for the processor.
func (r *SubmitTransactionRequest) ToEnvelope(correlationID string, now time.Time) (*shared.TransactionEnvelope, error) {
	source, err := uuid.Parse(r.SourceAccount)
	if err != nil {
		return nil, fmt.Errorf("source_account: %w", err)
	}

	ops := make([]shared.OperationRequest, 0, len(r.Operations))
	for i := range r.Operations {
		op, err := r.Operations[i].toWire()
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		ops = append(ops, op)
	}

	return &shared.TransactionEnvelope{
		TransactionID:  uuid.New(),
		SourceAccount:  source,
		Operations:     ops,
		IdempotencyKey: r.IdempotencyKey,
		CorrelationID:  correlationID,
		Timestamp:      now.UTC(),
	}, nil
}

func (o *OperationRequest) toWire() (shared.OperationRequest, error) {
	req := shared.OperationRequest{Type: shared.OperationType(o.Type)}
	if o.SourceAccount != "" {
		id, err := uuid.Parse(o.SourceAccount)
		if err != nil {
			return req, fmt.Errorf("source_account: %w", err)
		}
		req.SourceAccount = &id
	}

	var body operations.Body
	switch req.Type {
	case shared.OperationTypeCreateAccount:
		dest, err := requireID("destination", o.Destination)
		if err != nil {
			return req, err
		}
		body = &operations.CreateAccount{Destination: dest}
	case shared.OperationTypePayment:
		p, err := o.payment()
		if err != nil {
			return req, err
		}
		body = &p
	case shared.OperationTypeDirectDebit:
		owner, err := requireID("owner", o.Owner)
		if err != nil {
			return req, err
		}
		p, err := o.payment()
		if err != nil {
			return req, err
		}
		body = &operations.DirectDebit{Owner: owner, PayWithDebit: p}
	case shared.OperationTypeManageDebit:
		debitor, err := requireID("debitor", o.Debitor)
		if err != nil {
			return req, err
		}
		a, err := o.asset()
		if err != nil {
			return req, err
		}
		body = &operations.ManageDebit{Debitor: debitor, Asset: a, Delete: o.Delete}
	case shared.OperationTypeChangeTrust:
		a, err := o.asset()
		if err != nil {
			return req, err
		}
		limit, err := ParseAmount(o.Limit)
		if err != nil {
			return req, fmt.Errorf("limit: %w", err)
		}
		body = &operations.ChangeTrust{Asset: a, Limit: limit}
	default:
		return req, shared.ErrUnknownOperation
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return req, err
	}
	req.Body = raw
	return req, nil
}

func (o *OperationRequest) payment() (operations.Payment, error) {
	dest, err := requireID("destination", o.Destination)
	if err != nil {
		return operations.Payment{}, err
	}
	a, err := o.asset()
	if err != nil {
		return operations.Payment{}, err
	}
	amount, err := ParseAmount(o.Amount)
	if err != nil {
		return operations.Payment{}, fmt.Errorf("amount: %w", err)
	}
	return operations.Payment{Destination: dest, Asset: a, Amount: amount}, nil
}

// asset resolves the descriptor. An absent asset or an empty code means native.
func (o *OperationRequest) asset() (asset.Asset, error) {
	if o.Asset == nil || o.Asset.Code == "" {
		return asset.Native(), nil
	}
	issuer, err := requireID("asset.issuer", o.Asset.Issuer)
	if err != nil {
		return asset.Asset{}, err
	}
	a, err := asset.NewCredit(o.Asset.Code, issuer)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("asset: %w", err)
	}
	return a, nil
}

func requireID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

// AssetResponse represents an asset in API responses
type AssetResponse struct {
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Issuer string `json:"issuer,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            string `json:"id"`
	Balance       string `json:"balance"`
	SeqNum        int64  `json:"seq_num"`
	NumSubEntries uint32 `json:"num_sub_entries"`
	Flags         uint32 `json:"flags"`
	LastModified  uint32 `json:"last_modified"`
}

// TrustLineResponse represents a trust line in API responses
type TrustLineResponse struct {
	AccountID    string        `json:"account_id"`
	Asset        AssetResponse `json:"asset"`
	Balance      string        `json:"balance"`
	Limit        string        `json:"limit"`
	Authorized   bool          `json:"authorized"`
	LastModified uint32        `json:"last_modified"`
}

// DebitResponse represents a debit authorization in API responses
type DebitResponse struct {
	Owner   string        `json:"owner"`
	Debitor string        `json:"debitor"`
	Asset   AssetResponse `json:"asset"`
}

// DebitCountResponse carries the size of the debit authorization store
type DebitCountResponse struct {
	Count int64 `json:"count"`
}

// OperationResultResponse is the outcome of one operation
type OperationResultResponse struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Success bool   `json:"success"`
}

// TransactionResponse represents a transaction result in API responses
type TransactionResponse struct {
	TransactionID string                    `json:"transaction_id"`
	SourceAccount string                    `json:"source_account"`
	Status        string                    `json:"status"`
	FailureReason string                    `json:"failure_reason,omitempty"`
	LedgerSeq     uint32                    `json:"ledger_seq"`
	ChangeCount   int                       `json:"change_count"`
	Operations    []OperationResultResponse `json:"operations"`
	CreatedAt     string                    `json:"created_at"`
	ProcessedAt   string                    `json:"processed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAsset(a asset.Asset) AssetResponse {
	return AssetResponse{
		Type:   a.Type.String(),
		Code:   a.Code,
		Issuer: a.IssuerString(),
	}
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:            acc.ID.String(),
		Balance:       FormatAmount(acc.Balance),
		SeqNum:        acc.SeqNum,
		NumSubEntries: acc.NumSubEntries,
		Flags:         acc.Flags,
		LastModified:  acc.LastModified,
	}
}

func mapTrustLineToResponse(tl *trustline.TrustLine) TrustLineResponse {
	return TrustLineResponse{
		AccountID:    tl.AccountID.String(),
		Asset:        mapAsset(tl.Asset),
		Balance:      FormatAmount(tl.Balance),
		Limit:        FormatAmount(tl.Limit),
		Authorized:   tl.Authorized,
		LastModified: tl.LastModified,
	}
}

func mapDebitToResponse(a *debit.Authorization) DebitResponse {
	return DebitResponse{
		Owner:   a.Owner.String(),
		Debitor: a.Debitor.String(),
		Asset:   mapAsset(a.Asset),
	}
}

func mapRecordToResponse(r *history.Record) TransactionResponse {
	response := TransactionResponse{
		TransactionID: r.TransactionID.String(),
		SourceAccount: r.SourceAccount.String(),
		Status:        string(r.Status),
		FailureReason: r.FailureReason,
		LedgerSeq:     r.LedgerSeq,
		ChangeCount:   r.ChangeCount,
		Operations:    make([]OperationResultResponse, 0, len(r.Operations)),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	for _, op := range r.Operations {
		response.Operations = append(response.Operations, OperationResultResponse{
			Index:   op.Index,
			Type:    string(op.Type),
			Code:    op.Code,
			Success: op.Success,
		})
	}
	if r.ProcessedAt != nil {
		response.ProcessedAt = r.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
