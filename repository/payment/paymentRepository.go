package paymentrepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	"github.com/K-i-Q/credit-chat-companion/util/database"
	"github.com/jackc/pgx/v5"
)

type Repo interface {
	InsertPurchase(ctx context.Context, p *model.Purchase) error
	// PurchaseByID returns (nil, nil) when no purchase carries the id.
	PurchaseByID(ctx context.Context, id string) (*model.Purchase, error)
	// ClaimPurchase moves the row to processing only if its status still
	// matches the previously observed one. false means another delivery
	// won the claim.
	ClaimPurchase(ctx context.Context, id string, observed model.PaymentStatus) (bool, error)
	// UpdatePurchaseStatus writes the new status and diagnostic fields,
	// guarded by the observed status like the claim. false means the row
	// moved underneath us and nothing was written.
	UpdatePurchaseStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error)

	InsertDonation(ctx context.Context, d *model.Donation) error
	DonationByID(ctx context.Context, id string) (*model.Donation, error)
	ClaimDonation(ctx context.Context, id string, observed model.PaymentStatus) (bool, error)
	UpdateDonationStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) InsertPurchase(ctx context.Context, p *model.Purchase) error {
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO credit_purchases
			(id, user_id, credits, amount_cents, currency, status, provider_payment_id, qr_code, qr_code_base64, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Credits, p.AmountCents, p.Currency, p.Status,
		p.ProviderPaymentID, p.QRCode, p.QRCodeBase64, metaJSON,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repo) PurchaseByID(ctx context.Context, id string) (*model.Purchase, error) {
	p := &model.Purchase{}
	var metaJSON []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, credits, amount_cents, currency, status,
		       provider_payment_id, qr_code, qr_code_base64, metadata,
		       approved_at, updated_at, created_at
		FROM credit_purchases
		WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Credits, &p.AmountCents, &p.Currency, &p.Status,
		&p.ProviderPaymentID, &p.QRCode, &p.QRCodeBase64, &metaJSON,
		&p.ApprovedAt, &p.UpdatedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &p.Metadata); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *repo) ClaimPurchase(ctx context.Context, id string, observed model.PaymentStatus) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE credit_purchases
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = $2`, id, observed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) UpdatePurchaseStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	if approved {
		tag, err := r.db.Pool.Exec(ctx, `
			UPDATE credit_purchases
			SET status = $3, provider_payment_id = COALESCE($4, provider_payment_id),
			    metadata = metadata || $5, approved_at = now(), updated_at = now()
			WHERE id = $1 AND status = $2`, id, observed, status, providerPaymentID, metaJSON)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE credit_purchases
		SET status = $3, provider_payment_id = COALESCE($4, provider_payment_id),
		    metadata = metadata || $5, updated_at = now()
		WHERE id = $1 AND status = $2`, id, observed, status, providerPaymentID, metaJSON)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) InsertDonation(ctx context.Context, d *model.Donation) error {
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO donation_purchases
			(id, user_id, amount_cents, currency, status, provider_payment_id, qr_code, qr_code_base64, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.AmountCents, d.Currency, d.Status,
		d.ProviderPaymentID, d.QRCode, d.QRCodeBase64, metaJSON,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *repo) DonationByID(ctx context.Context, id string) (*model.Donation, error) {
	d := &model.Donation{}
	var metaJSON []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, amount_cents, currency, status,
		       provider_payment_id, qr_code, qr_code_base64, metadata,
		       approved_at, updated_at, created_at
		FROM donation_purchases
		WHERE id = $1`, id,
	).Scan(&d.ID, &d.UserID, &d.AmountCents, &d.Currency, &d.Status,
		&d.ProviderPaymentID, &d.QRCode, &d.QRCodeBase64, &metaJSON,
		&d.ApprovedAt, &d.UpdatedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &d.Metadata); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (r *repo) ClaimDonation(ctx context.Context, id string, observed model.PaymentStatus) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE donation_purchases
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = $2`, id, observed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) UpdateDonationStatus(ctx context.Context, id string, observed, status model.PaymentStatus, providerPaymentID *string, approved bool, meta model.Meta) (bool, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	if approved {
		tag, err := r.db.Pool.Exec(ctx, `
			UPDATE donation_purchases
			SET status = $3, provider_payment_id = COALESCE($4, provider_payment_id),
			    metadata = metadata || $5, approved_at = now(), updated_at = now()
			WHERE id = $1 AND status = $2`, id, observed, status, providerPaymentID, metaJSON)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE donation_purchases
		SET status = $3, provider_payment_id = COALESCE($4, provider_payment_id),
		    metadata = metadata || $5, updated_at = now()
		WHERE id = $1 AND status = $2`, id, observed, status, providerPaymentID, metaJSON)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
