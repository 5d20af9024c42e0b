package invitesvc

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/K-i-Q/credit-chat-companion/model"
	inviterepo "github.com/K-i-Q/credit-chat-companion/repository/invite"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
)

var (
	ErrNotFound  = errors.New("invite not found")
	ErrBadCode   = errors.New("invalid code format")
	ErrCodeTaken = errors.New("invite code already exists")
)

var codePattern = regexp.MustCompile(`^[a-z0-9_-]{4,32}$`)

type RedeemResult struct {
	AlreadyRedeemed bool
	NewBalance      *int64
}

type Service interface {
	// Redeem applies an invite code for the caller. Redeeming a code
	// twice is not an error: the second call reports AlreadyRedeemed.
	Redeem(ctx context.Context, userID, code string) (*RedeemResult, error)

	Create(ctx context.Context, createdBy, code string, credits int64) (*model.Invite, error)
	List(ctx context.Context) ([]model.Invite, error)
	Delete(ctx context.Context, inviteID int64) error
}

type service struct {
	ir inviterepo.Repo
	wr walletrepo.Repo
}

func New(ir inviterepo.Repo, wr walletrepo.Repo) Service { return &service{ir: ir, wr: wr} }

func (s *service) Redeem(ctx context.Context, userID, code string) (*RedeemResult, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrBadCode
	}

	inv, err := s.ir.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv == nil || !inv.Active {
		return nil, ErrNotFound
	}

	// The (invite_id, user_id) uniqueness constraint is the only guard
	// against concurrent double redemption.
	if err := s.ir.InsertRedemption(ctx, inv.ID, userID); err != nil {
		if errors.Is(err, inviterepo.ErrAlreadyRedeemed) {
			return &RedeemResult{AlreadyRedeemed: true}, nil
		}
		return nil, err
	}

	if err := s.wr.Bootstrap(ctx, userID); err != nil {
		s.compensate(ctx, inv.ID, userID)
		return nil, err
	}
	newBal, err := s.wr.Topup(ctx, userID, inv.Credits, model.Meta{"source": "invite", "code": code})
	if err != nil {
		s.compensate(ctx, inv.ID, userID)
		return nil, err
	}

	// Trailing bookkeeping; its failure does not fail the redemption.
	_ = s.ir.BumpUsage(ctx, inv.ID)

	return &RedeemResult{NewBalance: &newBal}, nil
}

// compensate removes the redemption row when the grant after it failed.
// Best effort: there is no cross-entity transaction, and a leftover row
// only means a manual reconciliation.
func (s *service) compensate(ctx context.Context, inviteID int64, userID string) {
	_ = s.ir.DeleteRedemption(ctx, inviteID, userID)
}

func (s *service) Create(ctx context.Context, createdBy, code string, credits int64) (*model.Invite, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, ErrBadCode
	}

	inv := &model.Invite{Code: code, Credits: credits, CreatedBy: createdBy}
	if err := s.ir.Insert(ctx, inv); err != nil {
		if errors.Is(err, inviterepo.ErrCodeTaken) {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return inv, nil
}

func (s *service) List(ctx context.Context) ([]model.Invite, error) {
	return s.ir.List(ctx)
}

func (s *service) Delete(ctx context.Context, inviteID int64) error {
	ok, err := s.ir.Delete(ctx, inviteID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
