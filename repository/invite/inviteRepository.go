package inviterepo

import (
	"context"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	"github.com/K-i-Q/credit-chat-companion/util/database"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAlreadyRedeemed maps the (invite_id, user_id) unique violation;
	// the constraint is the sole guard against double redemption.
	ErrAlreadyRedeemed = errors.New("invite already redeemed")
	ErrCodeTaken       = errors.New("invite code already exists")
)

type Repo interface {
	ByCode(ctx context.Context, code string) (*model.Invite, error)
	InsertRedemption(ctx context.Context, inviteID int64, userID string) error
	// DeleteRedemption is the compensation step when the credit grant
	// fails after the redemption row was inserted.
	DeleteRedemption(ctx context.Context, inviteID int64, userID string) error
	BumpUsage(ctx context.Context, inviteID int64) error

	Insert(ctx context.Context, inv *model.Invite) error
	List(ctx context.Context) ([]model.Invite, error)
	Delete(ctx context.Context, inviteID int64) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) ByCode(ctx context.Context, code string) (*model.Invite, error) {
	inv := &model.Invite{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, code, credits, active, uses_count, created_by, created_at, last_used_at
		FROM invite_links
		WHERE code = $1`, code,
	).Scan(&inv.ID, &inv.Code, &inv.Credits, &inv.Active, &inv.UsesCount,
		&inv.CreatedBy, &inv.CreatedAt, &inv.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repo) InsertRedemption(ctx context.Context, inviteID int64, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO invite_redemptions (invite_id, user_id)
		VALUES ($1, $2)`, inviteID, userID)
	if isUniqueViolation(err) {
		return ErrAlreadyRedeemed
	}
	return err
}

func (r *repo) DeleteRedemption(ctx context.Context, inviteID int64, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM invite_redemptions
		WHERE invite_id = $1 AND user_id = $2`, inviteID, userID)
	return err
}

func (r *repo) BumpUsage(ctx context.Context, inviteID int64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE invite_links
		SET uses_count = uses_count + 1, last_used_at = now()
		WHERE id = $1`, inviteID)
	return err
}

func (r *repo) Insert(ctx context.Context, inv *model.Invite) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO invite_links (code, credits, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, active, uses_count, created_at`,
		inv.Code, inv.Credits, inv.CreatedBy,
	).Scan(&inv.ID, &inv.Active, &inv.UsesCount, &inv.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

func (r *repo) List(ctx context.Context) ([]model.Invite, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, code, credits, active, uses_count, created_by, created_at, last_used_at
		FROM invite_links
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Invite
	for rows.Next() {
		var inv model.Invite
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.Credits, &inv.Active, &inv.UsesCount,
			&inv.CreatedBy, &inv.CreatedAt, &inv.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repo) Delete(ctx context.Context, inviteID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM invite_links WHERE id = $1`, inviteID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
