package model

import "time"

type ReferralCode struct {
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

type ReferralRedemption struct {
	ID             int64      `json:"id"`
	ReferrerUserID string     `json:"referrer_user_id"`
	ReferredUserID string     `json:"referred_user_id"`
	Code           string     `json:"code"`
	RewardedAt     *time.Time `json:"rewarded_at,omitempty"`
	PurchaseID     *string    `json:"purchase_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ApplyReferralReq applies another user's referral code to the caller
// swagger:model ApplyReferralReq
type ApplyReferralReq struct {
	Code string `json:"code" validate:"required"`
}
