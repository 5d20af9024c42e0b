package paymentsvc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/K-i-Q/credit-chat-companion/model"
	mercadopagorepo "github.com/K-i-Q/credit-chat-companion/repository/mercadopago"
	paymentrepo "github.com/K-i-Q/credit-chat-companion/repository/payment"
	referralrepo "github.com/K-i-Q/credit-chat-companion/repository/referral"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
)

// fakeWalletRepo holds balances in memory and records every topup so tests
// can assert exactly-once grants.
type fakeWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	topups   []fakeTopup
	failNext error
}

type fakeTopup struct {
	UserID string
	Amount int64
	Meta   model.Meta
}

var _ walletrepo.Repo = (*fakeWalletRepo)(nil)

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{balances: map[string]int64{}}
}

func (f *fakeWalletRepo) Bootstrap(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = 0
	}
	return nil
}

func (f *fakeWalletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[userID]
	if !ok {
		return 0, walletrepo.ErrWalletNotFound
	}
	return b, nil
}

func (f *fakeWalletRepo) Topup(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}
	b, ok := f.balances[userID]
	if !ok {
		return 0, walletrepo.ErrWalletNotFound
	}
	if b+amount < 0 {
		return 0, walletrepo.ErrInsufficientBalance
	}
	f.balances[userID] = b + amount
	f.topups = append(f.topups, fakeTopup{UserID: userID, Amount: amount, Meta: meta})
	return f.balances[userID], nil
}

func (f *fakeWalletRepo) Ledger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LedgerEntry
	for _, t := range f.topups {
		if t.UserID == userID {
			out = append(out, model.LedgerEntry{UserID: t.UserID, Amount: t.Amount, Meta: t.Meta})
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) topupsFor(userID string) []fakeTopup {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeTopup
	for _, t := range f.topups {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// fakePaymentRepo mimics the store's conditional updates under a mutex so
// concurrent deliveries race the same way they would against Postgres.
type fakePaymentRepo struct {
	mu        sync.Mutex
	purchases map[string]*model.Purchase
	donations map[string]*model.Donation
}

var _ paymentrepo.Repo = (*fakePaymentRepo)(nil)

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		purchases: map[string]*model.Purchase{},
		donations: map[string]*model.Donation{},
	}
}

func (f *fakePaymentRepo) InsertPurchase(ctx context.Context, p *model.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.purchases[p.ID] = &cp
	p.CreatedAt = cp.CreatedAt
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (f *fakePaymentRepo) PurchaseByID(ctx context.Context, id string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) ClaimPurchase(ctx context.Context, id string, observed model.PaymentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok || p.Status != observed {
		return false, nil
	}
	p.Status = model.StatusProcessing
	p.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakePaymentRepo) UpdatePurchaseStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return false, errors.New("purchase not found")
	}
	if p.Status != observed {
		return false, nil
	}
	p.Status = status
	if providerPaymentID != nil {
		p.ProviderPaymentID = providerPaymentID
	}
	if p.Metadata == nil {
		p.Metadata = model.Meta{}
	}
	for k, v := range meta {
		p.Metadata[k] = v
	}
	if approved {
		now := time.Now()
		p.ApprovedAt = &now
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakePaymentRepo) InsertDonation(ctx context.Context, d *model.Donation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.donations[d.ID] = &cp
	d.CreatedAt = cp.CreatedAt
	d.UpdatedAt = cp.UpdatedAt
	return nil
}

func (f *fakePaymentRepo) DonationByID(ctx context.Context, id string) (*model.Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakePaymentRepo) ClaimDonation(ctx context.Context, id string, observed model.PaymentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[id]
	if !ok || d.Status != observed {
		return false, nil
	}
	d.Status = model.StatusProcessing
	d.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakePaymentRepo) UpdateDonationStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[id]
	if !ok {
		return false, errors.New("donation not found")
	}
	if d.Status != observed {
		return false, nil
	}
	d.Status = status
	if providerPaymentID != nil {
		d.ProviderPaymentID = providerPaymentID
	}
	if d.Metadata == nil {
		d.Metadata = model.Meta{}
	}
	for k, v := range meta {
		d.Metadata[k] = v
	}
	if approved {
		now := time.Now()
		d.ApprovedAt = &now
	}
	d.UpdatedAt = time.Now()
	return true, nil
}

type fakeReferralRepo struct {
	mu          sync.Mutex
	codes       map[string]*model.ReferralCode // by code value
	redemptions []*model.ReferralRedemption
	nextID      int64
}

var _ referralrepo.Repo = (*fakeReferralRepo)(nil)

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{codes: map[string]*model.ReferralCode{}}
}

func (f *fakeReferralRepo) CodeByUser(ctx context.Context, userID string) (*model.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rc := range f.codes {
		if rc.UserID == userID {
			cp := *rc
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeReferralRepo) CodeByValue(ctx context.Context, code string) (*model.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *rc
	return &cp, nil
}

func (f *fakeReferralRepo) InsertCode(ctx context.Context, userID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = &model.ReferralCode{UserID: userID, Code: code, CreatedAt: time.Now()}
	return nil
}

func (f *fakeReferralRepo) InsertRedemption(ctx context.Context, referrerUserID, referredUserID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.redemptions {
		if r.ReferredUserID == referredUserID {
			return referralrepo.ErrAlreadyApplied
		}
	}
	f.nextID++
	f.redemptions = append(f.redemptions, &model.ReferralRedemption{
		ID:             f.nextID,
		ReferrerUserID: referrerUserID,
		ReferredUserID: referredUserID,
		Code:           code,
		CreatedAt:      time.Now(),
	})
	return nil
}

func (f *fakeReferralRepo) PendingRedemptionByReferred(ctx context.Context, referredUserID string) (*model.ReferralRedemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.redemptions {
		if r.ReferredUserID == referredUserID && r.RewardedAt == nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeReferralRepo) ClaimReward(ctx context.Context, redemptionID int64, purchaseID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.redemptions {
		if r.ID == redemptionID && r.RewardedAt == nil {
			now := time.Now()
			r.RewardedAt = &now
			r.PurchaseID = &purchaseID
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReferralRepo) redemptionByID(id int64) *model.ReferralRedemption {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.redemptions {
		if r.ID == id {
			cp := *r
			return &cp
		}
	}
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]*mercadopagorepo.Payment
	created  *mercadopagorepo.Payment
	account  *mercadopagorepo.Account
	fetchErr error
}

var _ mercadopagorepo.Client = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*mercadopagorepo.Payment{}}
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req mercadopagorepo.CreatePaymentReq) (*mercadopagorepo.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created != nil {
		cp := *f.created
		cp.ExternalReference = req.ExternalReference
		return &cp, nil
	}
	return &mercadopagorepo.Payment{
		ID:                1,
		Status:            "pending",
		ExternalReference: req.ExternalReference,
		TransactionAmount: req.TransactionAmount,
		CurrencyID:        "BRL",
	}, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*mercadopagorepo.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, errors.New("payment not found upstream")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeGateway) Me(ctx context.Context) (*mercadopagorepo.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == nil {
		return nil, errors.New("me unavailable")
	}
	cp := *f.account
	return &cp, nil
}
