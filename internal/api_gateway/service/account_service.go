package service

import (
	"context"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/trustline"
	"github.com/google/uuid"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo   account.Repository
	trustLineRepo trustline.Repository
	debitRepo     debit.Repository
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, trustLineRepo trustline.Repository, debitRepo debit.Repository) AccountService {
	return &AccountServiceImpl{
		accountRepo:   accountRepo,
		trustLineRepo: trustLineRepo,
		debitRepo:     debitRepo,
	}
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// ListTrustLines checks the account exists first so a missing account is not
// reported as an empty list.
func (s *AccountServiceImpl) ListTrustLines(ctx context.Context, id uuid.UUID) ([]*trustline.TrustLine, error) {
	if _, err := s.accountRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.trustLineRepo.ListByAccount(ctx, id)
}

func (s *AccountServiceImpl) ListDebits(ctx context.Context, owner uuid.UUID) ([]*debit.Authorization, error) {
	if _, err := s.accountRepo.GetByID(ctx, owner); err != nil {
		return nil, err
	}
	return s.debitRepo.LoadAllForOwner(ctx, owner)
}

func (s *AccountServiceImpl) CountDebits(ctx context.Context) (int64, error) {
	return s.debitRepo.Count(ctx)
}
