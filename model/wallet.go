package model

import "time"

// Meta is free-form diagnostic metadata stored as jsonb next to ledger
// entries and payment rows.
type Meta map[string]any

type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerEntry struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Meta         Meta      `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TopupReq is the admin credit grant payload
// swagger:model TopupReq
type TopupReq struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}
