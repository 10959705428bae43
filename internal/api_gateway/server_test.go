package api_gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/debit-ledger/internal/api_gateway/middleware"
	"github.com/debit-ledger/internal/api_gateway/service"
	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/data/memory"
	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/history"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	history.Repository
}

func (stubHistory) GetByTransactionID(_ context.Context, id uuid.UUID) (*history.Record, error) {
	return nil, history.ErrRecordNotFound{TransactionID: id}
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (stubPublisher) Close() error                                       { return nil }

func newTestServer(t *testing.T) (*Server, uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	issuer := uuid.New()

	store := memory.New(nil)
	store.Seed(
		[]*account.Account{{ID: owner, Balance: 100_0000000, NumSubEntries: 1}, {ID: issuer, Balance: 100_0000000}},
		nil,
		[]*debit.Authorization{debit.New(owner, issuer, asset.MustCredit("USD", issuer))},
	)

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.WriteTimeout = time.Second
	cfg.Application.Env = "test"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := service.NewAccountService(store.Accounts(), store.TrustLines(), store.Debits())
	transactions := service.NewTransactionService(logger, stubHistory{}, stubPublisher{})
	return NewServer(logger, cfg, accounts, transactions), owner
}

func TestServerRoutes(t *testing.T) {
	srv, owner := newTestServer(t)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/health", wantStatus: http.StatusOK},
		{path: "/api/v1/accounts/" + owner.String(), wantStatus: http.StatusOK},
		{path: "/api/v1/accounts/" + owner.String() + "/trustlines", wantStatus: http.StatusOK},
		{path: "/api/v1/accounts/" + owner.String() + "/debits", wantStatus: http.StatusOK},
		{path: "/api/v1/accounts/" + uuid.NewString(), wantStatus: http.StatusNotFound},
		{path: "/api/v1/debits/count", wantStatus: http.StatusOK},
		{path: "/api/v1/transactions/" + uuid.NewString(), wantStatus: http.StatusNotFound},
		{path: "/api/v1/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotEmpty(t, rr.Header().Get(middleware.CorrelationIDHeader))
		})
	}
}

func TestServerDebitCount(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/debits/count", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data.Count)
}

func TestServerStopWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.NoError(t, srv.Stop(context.Background()))
}
