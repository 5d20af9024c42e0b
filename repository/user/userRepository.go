package userrepo

import (
	"context"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	"github.com/K-i-Q/credit-chat-companion/util/database"
	"github.com/jackc/pgx/v5"
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id string) (*model.User, error)
	TouchSignIn(ctx context.Context, id string) error
	SetRole(ctx context.Context, id, role string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ListWithWallets joins users with wallet balances and referral codes
	// for the admin listing.
	ListWithWallets(ctx context.Context) ([]model.AdminUserRow, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, full_name, role, password_hash)
		VALUES (lower($1), $2, $3, $4)
		RETURNING id, created_at`,
		u.Email, u.FullName, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, password_hash, created_at, last_sign_in_at
		FROM users
		WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.LastSignInAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) ByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, password_hash, created_at, last_sign_in_at
		FROM users
		WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.LastSignInAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) TouchSignIn(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET last_sign_in_at = now() WHERE id = $1`, id)
	return err
}

func (r *repo) SetRole(ctx context.Context, id, role string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) ListWithWallets(ctx context.Context) ([]model.AdminUserRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT u.id, u.email, u.full_name, u.role,
		       COALESCE(w.balance, 0), rc.code,
		       u.created_at, u.last_sign_in_at
		FROM users u
		LEFT JOIN credit_wallets w ON w.user_id = u.id
		LEFT JOIN referral_codes rc ON rc.user_id = u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AdminUserRow
	for rows.Next() {
		var row model.AdminUserRow
		if err := rows.Scan(&row.ID, &row.Email, &row.FullName, &row.Role,
			&row.Balance, &row.ReferralCode, &row.CreatedAt, &row.LastSignInAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
