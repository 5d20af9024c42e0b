package model

import "time"

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusApproved   PaymentStatus = "approved"
	StatusFailed     PaymentStatus = "failed"
)

// Purchase is one PIX charge for credits. ID is the external reference we
// hand to the gateway at charge creation, not the gateway's own payment id.
type Purchase struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Credits           int64         `json:"credits"`
	AmountCents       int64         `json:"amount_cents"`
	Currency          string        `json:"currency"`
	Status            PaymentStatus `json:"status"`
	ProviderPaymentID *string       `json:"provider_payment_id,omitempty"`
	QRCode            *string       `json:"qr_code,omitempty"`
	QRCodeBase64      *string       `json:"qr_code_base64,omitempty"`
	Metadata          Meta          `json:"metadata,omitempty"`
	ApprovedAt        *time.Time    `json:"approved_at,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Donation is tracked like a Purchase but never grants credits.
type Donation struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	AmountCents       int64         `json:"amount_cents"`
	Currency          string        `json:"currency"`
	Status            PaymentStatus `json:"status"`
	ProviderPaymentID *string       `json:"provider_payment_id,omitempty"`
	QRCode            *string       `json:"qr_code,omitempty"`
	QRCodeBase64      *string       `json:"qr_code_base64,omitempty"`
	Metadata          Meta          `json:"metadata,omitempty"`
	ApprovedAt        *time.Time    `json:"approved_at,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CreatedAt         time.Time     `json:"created_at"`
}

// CreatePixReq requests a PIX charge for credits
// swagger:model CreatePixReq
type CreatePixReq struct {
	Credits int64 `json:"credits" validate:"required,gt=0"`
}

// CreateDonationReq requests a PIX charge for a donation amount in BRL
// swagger:model CreateDonationReq
type CreateDonationReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// PaymentStatusReq polls a purchase or donation by its id
// swagger:model PaymentStatusReq
type PaymentStatusReq struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

type ChargeCreated struct {
	PaymentID    string  `json:"payment_id"`
	Status       string  `json:"status"`
	QRCode       *string `json:"qr_code"`
	QRCodeBase64 *string `json:"qr_code_base64"`
	TicketURL    *string `json:"ticket_url"`
	ReceiverName *string `json:"receiver_name"`
}

type ChargeStatus struct {
	Status     PaymentStatus `json:"status"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ApprovedAt *time.Time    `json:"approved_at"`
	Balance    *int64        `json:"balance,omitempty"`
}
