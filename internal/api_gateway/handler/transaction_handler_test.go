package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/debit-ledger/internal/api_gateway/middleware"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/operations"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) SubmitTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) (uuid.UUID, *history.Record, error) {
	args := m.Called(ctx, envelope)
	if args.Get(1) == nil {
		return args.Get(0).(uuid.UUID), nil, args.Error(2)
	}
	return args.Get(0).(uuid.UUID), args.Get(1).(*history.Record), args.Error(2)
}

func (m *MockTransactionService) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*history.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Record), args.Error(1)
}

func (m *MockTransactionService) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*history.Record, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*history.Record), args.Get(1).(int64), args.Error(2)
}

func transactionRouter(svc *MockTransactionService) *gin.Engine {
	router := setupTestRouter()
	router.Use(middleware.CorrelationID())
	h := NewTransactionHandler(newTestLogger(), svc)
	router.POST("/transactions", h.Submit)
	router.GET("/transactions/:id", h.GetByID)
	router.GET("/accounts/:id/transactions", h.GetByAccountID)
	return router
}

func TestTransactionHandler_Submit(t *testing.T) {
	source := uuid.New()
	dest := uuid.New()
	issuer := uuid.New()

	t.Run("Accepted", func(t *testing.T) {
		svc := new(MockTransactionService)
		var published *shared.TransactionEnvelope
		svc.On("SubmitTransaction", mock.Anything, mock.AnythingOfType("*shared.TransactionEnvelope")).
			Run(func(args mock.Arguments) { published = args.Get(1).(*shared.TransactionEnvelope) }).
			Return(uuid.New(), nil, nil).Once()

		body := `{
			"source_account": "` + source.String() + `",
			"idempotency_key": "k-1",
			"operations": [
				{"type": "CREATE_ACCOUNT", "destination": "` + dest.String() + `"},
				{"type": "PAYMENT", "destination": "` + dest.String() + `", "asset": {"code": "USD", "issuer": "` + issuer.String() + `"}, "amount": "12.5"}
			]
		}`
		rr, resp := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(body))

		require.Equal(t, http.StatusAccepted, rr.Code)
		var data map[string]string
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "PENDING", data["status"])
		assert.Equal(t, "k-1", data["idempotency_key"])

		require.NotNil(t, published)
		assert.Equal(t, source, published.SourceAccount)
		assert.Equal(t, "k-1", published.IdempotencyKey)
		assert.NotEmpty(t, published.CorrelationID)
		require.Len(t, published.Operations, 2)

		op, err := operations.Decode(published.Operations[1])
		require.NoError(t, err)
		payment, ok := op.Body.(*operations.Payment)
		require.True(t, ok)
		assert.Equal(t, int64(125_000_000), payment.Amount)
		assert.Equal(t, dest, payment.Destination)
		assert.Equal(t, "USD", payment.Asset.Code)
	})

	t.Run("DirectDebitAndOverride", func(t *testing.T) {
		svc := new(MockTransactionService)
		var published *shared.TransactionEnvelope
		svc.On("SubmitTransaction", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(1).(*shared.TransactionEnvelope) }).
			Return(uuid.New(), nil, nil).Once()

		owner := uuid.New()
		opSource := uuid.New()
		body := `{
			"source_account": "` + source.String() + `",
			"operations": [
				{"type": "DIRECT_DEBIT", "source_account": "` + opSource.String() + `", "owner": "` + owner.String() + `",
				 "destination": "` + dest.String() + `", "asset": {"code": "USD", "issuer": "` + issuer.String() + `"}, "amount": "1"}
			]
		}`
		rr, _ := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(body))

		require.Equal(t, http.StatusAccepted, rr.Code)
		require.NotNil(t, published)
		assert.NotEmpty(t, published.IdempotencyKey)
		op, err := operations.Decode(published.Operations[0])
		require.NoError(t, err)
		assert.Equal(t, opSource, op.SourceOr(source))
		dd, ok := op.Body.(*operations.DirectDebit)
		require.True(t, ok)
		assert.Equal(t, owner, dd.Owner)
		assert.Equal(t, int64(10_000_000), dd.PayWithDebit.Amount)
	})

	t.Run("IdempotencyHit", func(t *testing.T) {
		svc := new(MockTransactionService)
		now := time.Now().UTC()
		existing := &history.Record{
			TransactionID: uuid.New(),
			SourceAccount: source,
			Status:        shared.TransactionStatusCompleted,
			Operations:    []history.OperationOutcome{{Index: 0, Type: shared.OperationTypeManageDebit, Code: "SUCCESS", Success: true}},
			CreatedAt:     now,
			ProcessedAt:   &now,
		}
		svc.On("SubmitTransaction", mock.Anything, mock.Anything).Return(existing.TransactionID, existing, nil).Once()

		body := `{"source_account": "` + source.String() + `", "idempotency_key": "dup",
			"operations": [{"type": "MANAGE_DEBIT", "debitor": "` + dest.String() + `", "asset": {"code": "USD", "issuer": "` + issuer.String() + `"}}]}`
		rr, resp := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(body))

		require.Equal(t, http.StatusOK, rr.Code)
		var got TransactionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, existing.TransactionID.String(), got.TransactionID)
		assert.Equal(t, "COMPLETED", got.Status)
		require.Len(t, got.Operations, 1)
		assert.Equal(t, "SUCCESS", got.Operations[0].Code)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "bad json",
			body:       `{"source_account":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "no operations",
			body:       `{"source_account": "` + source.String() + `", "operations": []}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "unknown type",
			body:       `{"source_account": "` + source.String() + `", "operations": [{"type": "INFLATION"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "missing destination",
			body:       `{"source_account": "` + source.String() + `", "operations": [{"type": "CREATE_ACCOUNT"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNPROCESSABLE_ENTITY",
		},
		{
			name: "amount too precise",
			body: `{"source_account": "` + source.String() + `", "operations": [{"type": "PAYMENT", "destination": "` + dest.String() +
				`", "amount": "0.00000001"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNPROCESSABLE_ENTITY",
		},
		{
			name: "bad asset code",
			body: `{"source_account": "` + source.String() + `", "operations": [{"type": "CHANGE_TRUST", "asset": {"code": "US-D", "issuer": "` +
				issuer.String() + `"}, "limit": "10"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNPROCESSABLE_ENTITY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTransactionService)
			rr, resp := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(tt.body))

			assert.Equal(t, tt.wantStatus, rr.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			svc.AssertNotCalled(t, "SubmitTransaction", mock.Anything, mock.Anything)
		})
	}

	t.Run("ServiceError", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("SubmitTransaction", mock.Anything, mock.Anything).Return(uuid.Nil, nil, errors.New("kafka unavailable")).Once()

		body := `{"source_account": "` + source.String() + `", "operations": [{"type": "CREATE_ACCOUNT", "destination": "` + dest.String() + `"}]}`
		rr, _ := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(body))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("EnvelopeRejectedByService", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("SubmitTransaction", mock.Anything, mock.Anything).Return(uuid.Nil, nil, shared.ErrTooManyOperations).Once()

		body := `{"source_account": "` + source.String() + `", "operations": [{"type": "CREATE_ACCOUNT", "destination": "` + dest.String() + `"}]}`
		rr, _ := serve(t, transactionRouter(svc), http.MethodPost, "/transactions", strings.NewReader(body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTransactionHandler_GetByID(t *testing.T) {
	txID := uuid.New()

	t.Run("Found", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("GetTransactionByID", mock.Anything, txID).Return(&history.Record{
			TransactionID: txID,
			Status:        shared.TransactionStatusFailed,
			FailureReason: "OPERATION_FAILED: operation 0 DIRECT_DEBIT NOT_FOUND",
			LedgerSeq:     9,
		}, nil).Once()

		rr, resp := serve(t, transactionRouter(svc), http.MethodGet, "/transactions/"+txID.String(), nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var got TransactionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "FAILED", got.Status)
		assert.Equal(t, uint32(9), got.LedgerSeq)
		assert.Contains(t, got.FailureReason, "NOT_FOUND")
		assert.Empty(t, got.ProcessedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("GetTransactionByID", mock.Anything, txID).Return(nil, nil).Once()

		rr, _ := serve(t, transactionRouter(svc), http.MethodGet, "/transactions/"+txID.String(), nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		rr, _ := serve(t, transactionRouter(new(MockTransactionService)), http.MethodGet, "/transactions/xyz", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Error", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("GetTransactionByID", mock.Anything, txID).Return(nil, errors.New("mongo down")).Once()

		rr, _ := serve(t, transactionRouter(svc), http.MethodGet, "/transactions/"+txID.String(), nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestTransactionHandler_GetByAccountID(t *testing.T) {
	accountID := uuid.New()

	t.Run("Paged", func(t *testing.T) {
		svc := new(MockTransactionService)
		records := []*history.Record{{TransactionID: uuid.New()}, {TransactionID: uuid.New()}}
		svc.On("GetTransactionsByAccountID", mock.Anything, accountID, 2, 2).Return(records, int64(5), nil).Once()

		rr, resp := serve(t, transactionRouter(svc), http.MethodGet, "/accounts/"+accountID.String()+"/transactions?page=2&per_page=2", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		assert.Equal(t, int64(5), resp.Meta.TotalItems)
		var got []TransactionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Len(t, got, 2)
	})

	t.Run("Defaults", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("GetTransactionsByAccountID", mock.Anything, accountID, 1, 10).Return([]*history.Record{}, int64(0), nil).Once()

		rr, _ := serve(t, transactionRouter(svc), http.MethodGet, "/accounts/"+accountID.String()+"/transactions", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("PerPageTooLarge", func(t *testing.T) {
		rr, _ := serve(t, transactionRouter(new(MockTransactionService)), http.MethodGet, "/accounts/"+accountID.String()+"/transactions?per_page=500", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
