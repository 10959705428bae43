package service

import (
	"context"
	"errors"
	"testing"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/asset"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockTrustLineRepository struct {
	mock.Mock
}

func (m *MockTrustLineRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*trustline.TrustLine, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trustline.TrustLine), args.Error(1)
}

type MockDebitRepository struct {
	mock.Mock
}

func (m *MockDebitRepository) LoadAllForOwner(ctx context.Context, owner uuid.UUID) ([]*debit.Authorization, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*debit.Authorization), args.Error(1)
}

func (m *MockDebitRepository) LoadAll(ctx context.Context) (map[uuid.UUID][]*debit.Authorization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]*debit.Authorization), args.Error(1)
}

func (m *MockDebitRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDebitRepository) CreateSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDebitRepository) DropAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newAccountFixture() (*MockAccountRepository, *MockTrustLineRepository, *MockDebitRepository, AccountService) {
	accounts := new(MockAccountRepository)
	lines := new(MockTrustLineRepository)
	debits := new(MockDebitRepository)
	return accounts, lines, debits, NewAccountService(accounts, lines, debits)
}

func TestAccountServiceImpl_GetAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		accounts, _, _, svc := newAccountFixture()
		id := uuid.New()
		expected := &account.Account{ID: id, Balance: 500_0000000}
		accounts.On("GetByID", ctx, id).Return(expected, nil).Once()

		acc, err := svc.GetAccount(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, expected, acc)
		accounts.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		accounts, _, _, svc := newAccountFixture()
		id := uuid.New()
		accounts.On("GetByID", ctx, id).Return(nil, account.ErrAccountNotFound{AccountID: id}).Once()

		acc, err := svc.GetAccount(ctx, id)

		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, id, notFound.AccountID)
	})
}

func TestAccountServiceImpl_ListTrustLines(t *testing.T) {
	ctx := context.Background()
	issuer := uuid.New()

	t.Run("Success", func(t *testing.T) {
		accounts, lines, _, svc := newAccountFixture()
		id := uuid.New()
		expected := []*trustline.TrustLine{trustline.New(id, asset.MustCredit("USD", issuer), 1000, true)}
		accounts.On("GetByID", ctx, id).Return(&account.Account{ID: id}, nil).Once()
		lines.On("ListByAccount", ctx, id).Return(expected, nil).Once()

		got, err := svc.ListTrustLines(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, expected, got)
		accounts.AssertExpectations(t)
		lines.AssertExpectations(t)
	})

	t.Run("MissingAccountSkipsLookup", func(t *testing.T) {
		accounts, lines, _, svc := newAccountFixture()
		id := uuid.New()
		accounts.On("GetByID", ctx, id).Return(nil, account.ErrAccountNotFound{AccountID: id}).Once()

		got, err := svc.ListTrustLines(ctx, id)

		assert.Nil(t, got)
		assert.Error(t, err)
		lines.AssertNotCalled(t, "ListByAccount", mock.Anything, mock.Anything)
	})
}

func TestAccountServiceImpl_ListDebits(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	usd := asset.MustCredit("USD", uuid.New())

	tests := []struct {
		name    string
		setup   func(a *MockAccountRepository, d *MockDebitRepository)
		want    []*debit.Authorization
		wantErr bool
	}{
		{
			name: "owner with authorizations",
			setup: func(a *MockAccountRepository, d *MockDebitRepository) {
				a.On("GetByID", ctx, owner).Return(&account.Account{ID: owner}, nil)
				d.On("LoadAllForOwner", ctx, owner).Return([]*debit.Authorization{debit.New(owner, owner, usd)}, nil)
			},
			want: []*debit.Authorization{debit.New(owner, owner, usd)},
		},
		{
			name: "owner missing",
			setup: func(a *MockAccountRepository, d *MockDebitRepository) {
				a.On("GetByID", ctx, owner).Return(nil, account.ErrAccountNotFound{AccountID: owner})
			},
			wantErr: true,
		},
		{
			name: "store error",
			setup: func(a *MockAccountRepository, d *MockDebitRepository) {
				a.On("GetByID", ctx, owner).Return(&account.Account{ID: owner}, nil)
				d.On("LoadAllForOwner", ctx, owner).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, _, debits, svc := newAccountFixture()
			tt.setup(accounts, debits)

			got, err := svc.ListDebits(ctx, owner)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			accounts.AssertExpectations(t)
			debits.AssertExpectations(t)
		})
	}
}

func TestAccountServiceImpl_CountDebits(t *testing.T) {
	ctx := context.Background()
	_, _, debits, svc := newAccountFixture()
	debits.On("Count", ctx).Return(int64(7), nil).Once()

	n, err := svc.CountDebits(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
