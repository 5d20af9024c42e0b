package paymentsvc

import (
	"context"
	"fmt"
	"math"

	"github.com/K-i-Q/credit-chat-companion/model"
	mercadopagorepo "github.com/K-i-Q/credit-chat-companion/repository/mercadopago"
)

// HandleNotification drives a purchase or donation through its state
// machine from one gateway notification. It must converge under duplicate,
// out-of-order and concurrent deliveries; the only concurrency gates are
// the store's conditional updates, never an in-process lock.
func (s *service) HandleNotification(ctx context.Context, paymentID string) (*Result, error) {
	if s.mp == nil {
		return nil, ErrNotConfigured
	}

	// The notification body is untrusted noise; the fetched resource is
	// the authority on status and amount.
	payment, err := s.mp.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if payment.ExternalReference == "" {
		return &Result{}, nil
	}

	p, err := s.pRepo.PurchaseByID(ctx, payment.ExternalReference)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return s.reconcilePurchase(ctx, p, payment)
	}

	d, err := s.pRepo.DonationByID(ctx, payment.ExternalReference)
	if err != nil {
		return nil, err
	}
	if d == nil {
		// Foreign or stale reference; acknowledge so the gateway stops
		// redelivering.
		return &Result{}, nil
	}
	return s.reconcileDonation(ctx, d, payment)
}

func (s *service) reconcilePurchase(ctx context.Context, p *model.Purchase, payment *mercadopagorepo.Payment) (*Result, error) {
	// approved and failed are sinks: approved already granted, and failed
	// marks a grant that broke after its claim. Redelivery must not turn
	// either into a second grant; failed rows wait for an operator.
	if p.Status == model.StatusApproved || p.Status == model.StatusFailed {
		return &Result{}, nil
	}

	status := paymentStatus(payment.Status)
	providerID := providerPaymentID(payment)
	meta := model.Meta{"mp_status_detail": payment.StatusDetail}

	if status != model.StatusApproved {
		// Guarded on the observed status so a stale non-approved fetch
		// can never clobber a row another delivery has since claimed.
		if _, err := s.pRepo.UpdatePurchaseStatus(ctx, p.ID, p.Status, status, providerID, false, meta); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	if err := validateAmount(payment, p.AmountCents); err != nil {
		return nil, err
	}

	// A row observed in processing is mid-grant under a concurrent
	// delivery; claiming it again would double-grant.
	if p.Status == model.StatusProcessing {
		return &Result{}, nil
	}

	claimed, err := s.pRepo.ClaimPurchase(ctx, p.ID, p.Status)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Another delivery holds the row; it will finish the grant.
		return &Result{}, nil
	}

	newBal, err := s.grant(ctx, p.UserID, p.Credits, model.Meta{
		"source":     "pix",
		"provider":   "mercadopago",
		"payment_id": providerID,
	})
	if err != nil {
		// Leave the row in a terminal failed state rather than stuck in
		// processing; a retry must not re-claim and double-grant.
		failMeta := model.Meta{"mp_status_detail": payment.StatusDetail, "topup_error": err.Error()}
		_, _ = s.pRepo.UpdatePurchaseStatus(ctx, p.ID, model.StatusProcessing, model.StatusFailed, providerID, false, failMeta)
		return nil, err
	}

	if _, err := s.pRepo.UpdatePurchaseStatus(ctx, p.ID, model.StatusProcessing, model.StatusApproved, providerID, true, meta); err != nil {
		return nil, err
	}

	if p.Credits >= referralQualifyingCredits {
		if err := s.rewardReferral(ctx, p, providerID); err != nil {
			return nil, err
		}
	}

	return &Result{NewBalance: &newBal}, nil
}

func (s *service) reconcileDonation(ctx context.Context, d *model.Donation, payment *mercadopagorepo.Payment) (*Result, error) {
	if d.Status == model.StatusApproved || d.Status == model.StatusFailed {
		return &Result{}, nil
	}

	status := paymentStatus(payment.Status)
	providerID := providerPaymentID(payment)
	meta := model.Meta{"mp_status_detail": payment.StatusDetail}

	if status != model.StatusApproved {
		if _, err := s.pRepo.UpdateDonationStatus(ctx, d.ID, d.Status, status, providerID, false, meta); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	if err := validateAmount(payment, d.AmountCents); err != nil {
		return nil, err
	}

	if d.Status == model.StatusProcessing {
		return &Result{}, nil
	}

	claimed, err := s.pRepo.ClaimDonation(ctx, d.ID, d.Status)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &Result{}, nil
	}

	if _, err := s.pRepo.UpdateDonationStatus(ctx, d.ID, model.StatusProcessing, model.StatusApproved, providerID, true, meta); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

// grant bootstraps the wallet if needed and applies the idempotent topup
// primitive.
func (s *service) grant(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	if err := s.wRepo.Bootstrap(ctx, userID); err != nil {
		return 0, err
	}
	return s.wRepo.Topup(ctx, userID, amount, meta)
}

// rewardReferral grants the mutual bonus on the referred user's first
// qualifying purchase. The redemption row is claimed before either grant,
// so a grant failure here surfaces as an error without a retry path for
// the reward itself; the purchase stays approved.
func (s *service) rewardReferral(ctx context.Context, p *model.Purchase, providerID *string) error {
	red, err := s.rRepo.PendingRedemptionByReferred(ctx, p.UserID)
	if err != nil {
		return err
	}
	if red == nil {
		return nil
	}

	claimed, err := s.rRepo.ClaimReward(ctx, red.ID, p.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	rewardMeta := model.Meta{
		"source":      "referral",
		"purchase_id": p.ID,
		"payment_id":  providerID,
	}
	if _, err := s.grant(ctx, p.UserID, referralRewardCredits, withRole(rewardMeta, "referred")); err != nil {
		return err
	}
	if _, err := s.grant(ctx, red.ReferrerUserID, referralRewardCredits, withRole(rewardMeta, "referrer")); err != nil {
		return err
	}
	return nil
}

func withRole(meta model.Meta, role string) model.Meta {
	out := model.Meta{"role": role}
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func validateAmount(payment *mercadopagorepo.Payment, expectedCents int64) error {
	currency := payment.CurrencyID
	if currency == "" {
		currency = "BRL"
	}
	expected := float64(expectedCents) / 100
	if currency != "BRL" || math.Abs(payment.TransactionAmount-expected) > 0.01 {
		return ErrAmountMismatch
	}
	return nil
}
