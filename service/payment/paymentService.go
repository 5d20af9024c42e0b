package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/K-i-Q/credit-chat-companion/config"
	"github.com/K-i-Q/credit-chat-companion/model"
	mercadopagorepo "github.com/K-i-Q/credit-chat-companion/repository/mercadopago"
	paymentrepo "github.com/K-i-Q/credit-chat-companion/repository/payment"
	referralrepo "github.com/K-i-Q/credit-chat-companion/repository/referral"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured  = errors.New("payment gateway not configured")
	ErrNotFound       = errors.New("payment not found")
	ErrForbidden      = errors.New("forbidden")
	ErrAmountMismatch = errors.New("payment amount mismatch")
	ErrUpstream       = errors.New("payment gateway request failed")
)

const (
	// centsPerCredit prices one credit at R$1.00.
	centsPerCredit = 100

	// A purchase of at least this many credits qualifies the buyer's
	// pending referral for the mutual reward.
	referralQualifyingCredits = 10
	referralRewardCredits     = 10
)

type Service interface {
	CreatePurchase(ctx context.Context, userID, email string, credits int64) (*model.ChargeCreated, error)
	CreateDonation(ctx context.Context, userID, email string, amount float64) (*model.ChargeCreated, error)
	PurchaseStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error)
	DonationStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error)

	// HandleNotification reconciles one gateway notification. A nil
	// NewBalance in the result means no credit was granted by this
	// delivery.
	HandleNotification(ctx context.Context, paymentID string) (*Result, error)
}

type Result struct {
	NewBalance *int64
}

type service struct {
	pRepo paymentrepo.Repo
	wRepo walletrepo.Repo
	rRepo referralrepo.Repo
	mp    mercadopagorepo.Client

	receiverName    string
	notificationURL string
}

func New(pr paymentrepo.Repo, wr walletrepo.Repo, rr referralrepo.Repo, mp mercadopagorepo.Client, cfg config.App) Service {
	notificationURL := ""
	if cfg.PublicBaseURL != "" {
		notificationURL = cfg.PublicBaseURL + "/v1/payments/webhook"
	}
	return &service{
		pRepo:           pr,
		wRepo:           wr,
		rRepo:           rr,
		mp:              mp,
		receiverName:    cfg.PixReceiverName,
		notificationURL: notificationURL,
	}
}

// ExtractPaymentID pulls the gateway payment id out of a notification, which
// arrives either as a push payload ({"data":{"id":...}} or {"id":...}) or as
// bare query parameters (?data.id= / ?id=). Empty means nothing to reconcile.
func ExtractPaymentID(body []byte, query url.Values) string {
	var payload struct {
		ID   json.Number `json:"id"`
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Data.ID.String() != "" {
				return payload.Data.ID.String()
			}
			if payload.ID.String() != "" {
				return payload.ID.String()
			}
		}
	}
	if v := query.Get("data.id"); v != "" {
		return v
	}
	return query.Get("id")
}

func (s *service) receiver(ctx context.Context) *string {
	if s.receiverName != "" {
		name := s.receiverName
		return &name
	}
	// Best effort; checkout works without a display name.
	acct, err := s.mp.Me(ctx)
	if err != nil {
		return nil
	}
	if name := acct.DisplayName(); name != "" {
		return &name
	}
	return nil
}

func (s *service) CreatePurchase(ctx context.Context, userID, email string, credits int64) (*model.ChargeCreated, error) {
	if s.mp == nil {
		return nil, ErrNotConfigured
	}

	paymentID := uuid.NewString()
	amountCents := credits * centsPerCredit
	receiverName := s.receiver(ctx)

	payment, err := s.mp.CreatePayment(ctx, mercadopagorepo.CreatePaymentReq{
		TransactionAmount: float64(amountCents) / 100,
		Description:       fmt.Sprintf("Créditos Mentorix (%d)", credits),
		PayerEmail:        email,
		ExternalReference: paymentID,
		NotificationURL:   s.notificationURL,
		Metadata:          map[string]any{"user_id": userID, "credits": credits},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	p := &model.Purchase{
		ID:                paymentID,
		UserID:            userID,
		Credits:           credits,
		AmountCents:       amountCents,
		Currency:          "BRL",
		Status:            paymentStatus(payment.Status),
		ProviderPaymentID: providerPaymentID(payment),
		QRCode:            optional(payment.PointOfInteraction.TransactionData.QRCode),
		QRCodeBase64:      optional(payment.PointOfInteraction.TransactionData.QRCodeBase64),
		Metadata: model.Meta{
			"mp_status_detail": payment.StatusDetail,
			"receiver_name":    receiverName,
		},
	}
	if err := s.pRepo.InsertPurchase(ctx, p); err != nil {
		return nil, err
	}

	return &model.ChargeCreated{
		PaymentID:    paymentID,
		Status:       string(p.Status),
		QRCode:       p.QRCode,
		QRCodeBase64: p.QRCodeBase64,
		TicketURL:    optional(payment.PointOfInteraction.TransactionData.TicketURL),
		ReceiverName: receiverName,
	}, nil
}

func (s *service) CreateDonation(ctx context.Context, userID, email string, amount float64) (*model.ChargeCreated, error) {
	if s.mp == nil {
		return nil, ErrNotConfigured
	}

	paymentID := uuid.NewString()
	amountCents := int64(math.Round(amount * 100))
	receiverName := s.receiver(ctx)

	payment, err := s.mp.CreatePayment(ctx, mercadopagorepo.CreatePaymentReq{
		TransactionAmount: float64(amountCents) / 100,
		Description:       "Doação para o projeto Mentorix",
		PayerEmail:        email,
		ExternalReference: paymentID,
		NotificationURL:   s.notificationURL,
		Metadata:          map[string]any{"user_id": userID, "amount_cents": amountCents, "type": "donation"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	d := &model.Donation{
		ID:                paymentID,
		UserID:            userID,
		AmountCents:       amountCents,
		Currency:          "BRL",
		Status:            paymentStatus(payment.Status),
		ProviderPaymentID: providerPaymentID(payment),
		QRCode:            optional(payment.PointOfInteraction.TransactionData.QRCode),
		QRCodeBase64:      optional(payment.PointOfInteraction.TransactionData.QRCodeBase64),
		Metadata: model.Meta{
			"mp_status_detail": payment.StatusDetail,
			"receiver_name":    receiverName,
		},
	}
	if err := s.pRepo.InsertDonation(ctx, d); err != nil {
		return nil, err
	}

	return &model.ChargeCreated{
		PaymentID:    paymentID,
		Status:       string(d.Status),
		QRCode:       d.QRCode,
		QRCodeBase64: d.QRCodeBase64,
		TicketURL:    optional(payment.PointOfInteraction.TransactionData.TicketURL),
		ReceiverName: receiverName,
	}, nil
}

func (s *service) PurchaseStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error) {
	p, err := s.pRepo.PurchaseByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}

	st := &model.ChargeStatus{Status: p.Status, UpdatedAt: p.UpdatedAt, ApprovedAt: p.ApprovedAt}
	if bal, err := s.wRepo.Balance(ctx, userID); err == nil {
		st.Balance = &bal
	}
	return st, nil
}

func (s *service) DonationStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error) {
	d, err := s.pRepo.DonationByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}
	return &model.ChargeStatus{Status: d.Status, UpdatedAt: d.UpdatedAt, ApprovedAt: d.ApprovedAt}, nil
}

func paymentStatus(s string) model.PaymentStatus {
	if s == "" {
		return model.StatusPending
	}
	return model.PaymentStatus(s)
}

func providerPaymentID(p *mercadopagorepo.Payment) *string {
	if p.ID == 0 {
		return nil
	}
	id := strconv.FormatInt(p.ID, 10)
	return &id
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
