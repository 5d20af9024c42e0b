package referralrepo

import (
	"context"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	"github.com/K-i-Q/credit-chat-companion/util/database"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrAlreadyApplied maps the referred_user_id unique violation: a user may
// apply at most one referral code ever.
var ErrAlreadyApplied = errors.New("referral already applied")

type Repo interface {
	CodeByUser(ctx context.Context, userID string) (*model.ReferralCode, error)
	CodeByValue(ctx context.Context, code string) (*model.ReferralCode, error)
	InsertCode(ctx context.Context, userID, code string) error

	InsertRedemption(ctx context.Context, referrerUserID, referredUserID, code string) error
	// PendingRedemptionByReferred finds the unrewarded redemption for a
	// buyer, if any.
	PendingRedemptionByReferred(ctx context.Context, referredUserID string) (*model.ReferralRedemption, error)
	// ClaimReward marks the redemption rewarded only if it is still
	// unrewarded. false means a concurrent delivery already claimed it.
	ClaimReward(ctx context.Context, redemptionID int64, purchaseID string) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) CodeByUser(ctx context.Context, userID string) (*model.ReferralCode, error) {
	rc := &model.ReferralCode{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT user_id, code, created_at
		FROM referral_codes
		WHERE user_id = $1`, userID,
	).Scan(&rc.UserID, &rc.Code, &rc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *repo) CodeByValue(ctx context.Context, code string) (*model.ReferralCode, error) {
	rc := &model.ReferralCode{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT user_id, code, created_at
		FROM referral_codes
		WHERE code = $1`, code,
	).Scan(&rc.UserID, &rc.Code, &rc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *repo) InsertCode(ctx context.Context, userID, code string) error {
	// The code is derived from the user id, so concurrent first inserts
	// carry identical values and the conflict can be swallowed.
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO referral_codes (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, code)
	return err
}

func (r *repo) InsertRedemption(ctx context.Context, referrerUserID, referredUserID, code string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO referral_redemptions (referrer_user_id, referred_user_id, code)
		VALUES ($1, $2, $3)`, referrerUserID, referredUserID, code)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrAlreadyApplied
	}
	return err
}

func (r *repo) PendingRedemptionByReferred(ctx context.Context, referredUserID string) (*model.ReferralRedemption, error) {
	rr := &model.ReferralRedemption{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, referrer_user_id, referred_user_id, code, rewarded_at, purchase_id, created_at
		FROM referral_redemptions
		WHERE referred_user_id = $1 AND rewarded_at IS NULL`, referredUserID,
	).Scan(&rr.ID, &rr.ReferrerUserID, &rr.ReferredUserID, &rr.Code,
		&rr.RewardedAt, &rr.PurchaseID, &rr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rr, nil
}

func (r *repo) ClaimReward(ctx context.Context, redemptionID int64, purchaseID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE referral_redemptions
		SET rewarded_at = now(), purchase_id = $2
		WHERE id = $1 AND rewarded_at IS NULL`, redemptionID, purchaseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
