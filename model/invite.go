package model

import "time"

type Invite struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	Credits    int64      `json:"credits"`
	Active     bool       `json:"active"`
	UsesCount  int64      `json:"uses_count"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// RedeemInviteReq redeems an invite code for the caller
// swagger:model RedeemInviteReq
type RedeemInviteReq struct {
	Code string `json:"code" validate:"required"`
}

// CreateInviteReq is the admin invite creation payload
// swagger:model CreateInviteReq
type CreateInviteReq struct {
	Code    string `json:"code" validate:"required"`
	Credits int64  `json:"credits" validate:"required,gt=0"`
}

// DeleteInviteReq deletes an invite by id
// swagger:model DeleteInviteReq
type DeleteInviteReq struct {
	InviteID int64 `json:"invite_id" validate:"required"`
}
