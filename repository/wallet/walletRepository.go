package walletrepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/K-i-Q/credit-chat-companion/model"
	"github.com/K-i-Q/credit-chat-companion/util/database"
	"github.com/jackc/pgx/v5"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type Repo interface {
	// Bootstrap creates the wallet with a zero balance if it does not
	// exist yet. Safe to call concurrently.
	Bootstrap(ctx context.Context, userID string) error

	Balance(ctx context.Context, userID string) (int64, error)

	// Topup atomically applies a signed delta to the balance and appends a
	// ledger entry, returning the post-mutation balance. The only
	// sanctioned path to mutate a balance. A delta that would take the
	// balance negative returns ErrInsufficientBalance.
	Topup(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error)

	Ledger(ctx context.Context, userID string) ([]model.LedgerEntry, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) Bootstrap(ctx context.Context, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO credit_wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

func (r *repo) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT balance FROM credit_wallets WHERE user_id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return bal, err
}

func (r *repo) Topup(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Single-statement conditional update; the balance >= 0 invariant is
	// enforced in the same statement that applies the delta.
	var newBal int64
	err = tx.QueryRow(ctx, `
		UPDATE credit_wallets
		SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING balance`, userID, amount).Scan(&newBal)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qerr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM credit_wallets WHERE user_id = $1)`, userID).Scan(&exists); qerr != nil {
			return 0, qerr
		}
		if !exists {
			return 0, ErrWalletNotFound
		}
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, err
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO credit_ledger (user_id, amount, balance_after, meta)
		VALUES ($1, $2, $3, $4)`, userID, amount, newBal, metaJSON); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBal, nil
}

func (r *repo) Ledger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, amount, balance_after, meta, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.BalanceAfter, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
