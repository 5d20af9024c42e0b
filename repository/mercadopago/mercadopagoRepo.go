package mercadopagorepo

import "context"

type CreatePaymentReq struct {
	TransactionAmount float64
	Description       string
	PayerEmail        string
	// ExternalReference is our purchase/donation id; it doubles as the
	// idempotency key sent to the gateway.
	ExternalReference string
	NotificationURL   string
	Metadata          map[string]any
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

type PointOfInteraction struct {
	TransactionData TransactionData `json:"transaction_data"`
}

// Payment is the gateway's authoritative payment resource.
type Payment struct {
	ID                 int64              `json:"id"`
	Status             string             `json:"status"`
	StatusDetail       string             `json:"status_detail"`
	ExternalReference  string             `json:"external_reference"`
	TransactionAmount  float64            `json:"transaction_amount"`
	CurrencyID         string             `json:"currency_id"`
	PointOfInteraction PointOfInteraction `json:"point_of_interaction"`
}

type Account struct {
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Client interface {
	CreatePayment(ctx context.Context, req CreatePaymentReq) (*Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	Me(ctx context.Context) (*Account, error)
}
