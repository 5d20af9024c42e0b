package walletsvc

import (
	"context"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

type Service interface {
	// Grant bootstraps the wallet if needed and credits amount,
	// returning the new balance. Admin topups and reward grants both go
	// through here.
	Grant(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error)

	// Debit charges amount (chat use). A wallet that does not exist or
	// cannot cover the amount yields ErrInsufficientBalance; balances
	// never go negative.
	Debit(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error)

	Summary(ctx context.Context, userID string) (int64, []model.LedgerEntry, error)
}

type service struct {
	r walletrepo.Repo
}

func New(r walletrepo.Repo) Service { return &service{r} }

func (s *service) Grant(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	if err := s.r.Bootstrap(ctx, userID); err != nil {
		return 0, err
	}
	return s.r.Topup(ctx, userID, amount, meta)
}

func (s *service) Debit(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	newBal, err := s.r.Topup(ctx, userID, -amount, meta)
	if errors.Is(err, walletrepo.ErrInsufficientBalance) || errors.Is(err, walletrepo.ErrWalletNotFound) {
		return 0, ErrInsufficientBalance
	}
	return newBal, err
}

func (s *service) Summary(ctx context.Context, userID string) (int64, []model.LedgerEntry, error) {
	bal, err := s.r.Balance(ctx, userID)
	if errors.Is(err, walletrepo.ErrWalletNotFound) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	entries, err := s.r.Ledger(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	return bal, entries, nil
}
