package referralsvc

import (
	"context"
	"errors"
	"strings"

	referralrepo "github.com/K-i-Q/credit-chat-companion/repository/referral"
)

var (
	ErrNotFound = errors.New("referral not found")
	ErrOwnCode  = errors.New("cannot use your own code")
	ErrBadCode  = errors.New("invalid code")
)

type ApplyResult struct {
	AlreadyApplied bool
}

type Service interface {
	// Code returns the caller's referral code, creating it on first
	// request. The code is derived from the user id, so concurrent first
	// requests converge on the same value.
	Code(ctx context.Context, userID string) (string, error)

	Apply(ctx context.Context, userID, code string) (*ApplyResult, error)
}

type service struct {
	r referralrepo.Repo
}

func New(r referralrepo.Repo) Service { return &service{r} }

// BuildCode derives the referral code from the user id: "mx" plus the
// first 8 hex digits of the UUID, dashes stripped.
func BuildCode(userID string) string {
	compact := strings.ReplaceAll(userID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "mx" + strings.ToLower(compact)
}

func (s *service) Code(ctx context.Context, userID string) (string, error) {
	existing, err := s.r.CodeByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Code, nil
	}

	code := BuildCode(userID)
	if err := s.r.InsertCode(ctx, userID, code); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Apply(ctx context.Context, userID, code string) (*ApplyResult, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrBadCode
	}

	ref, err := s.r.CodeByValue(ctx, code)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrNotFound
	}
	if ref.UserID == userID {
		return nil, ErrOwnCode
	}

	if err := s.r.InsertRedemption(ctx, ref.UserID, userID, ref.Code); err != nil {
		if errors.Is(err, referralrepo.ErrAlreadyApplied) {
			return &ApplyResult{AlreadyApplied: true}, nil
		}
		return nil, err
	}
	return &ApplyResult{}, nil
}
