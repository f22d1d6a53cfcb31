package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/domain"
)

type Pending struct{ db DB }

func NewPending(db DB) *Pending { return &Pending{db: db} }

// Create stores a proposal and fills in ID and CreatedAt.
func (r *Pending) Create(ctx context.Context, p domain.PendingTransaction) (domain.PendingTransaction, error) {
	if !p.Amount.IsPositive() {
		return p, errors.New("pending transaction amount must be positive")
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO pending_transactions(from_user_id, from_user_display_name, to_user_id, chat_id, amount)
		VALUES($1, $2, $3, $4, $5::numeric)
		RETURNING id, created_at
	`, p.FromUserID, p.FromUserDisplayName, p.ToUserID, p.ChatID, p.Amount.String()).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return p, storeErr("create pending", err)
	}
	return p, nil
}

// ListIncoming returns the proposals waiting on userID, oldest first.
func (r *Pending) ListIncoming(ctx context.Context, userID, chatID int64) ([]domain.PendingTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, from_user_id, from_user_display_name, to_user_id, chat_id, amount::text, created_at
		FROM pending_transactions
		WHERE to_user_id = $1 AND chat_id = $2
		ORDER BY created_at ASC, id ASC
	`, userID, chatID)
	if err != nil {
		return nil, storeErr("list pending", err)
	}
	defer rows.Close()

	var out []domain.PendingTransaction
	for rows.Next() {
		var p domain.PendingTransaction
		var raw string
		if err := rows.Scan(&p.ID, &p.FromUserID, &p.FromUserDisplayName, &p.ToUserID, &p.ChatID, &raw, &p.CreatedAt); err != nil {
			return nil, storeErr("list pending", err)
		}
		if p.Amount, err = parseAmount(raw); err != nil {
			return nil, storeErr("list pending", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list pending", err)
	}
	return out, nil
}

// SumsByRecipient aggregates pending amounts per recipient for the scoreboard.
func (r *Pending) SumsByRecipient(ctx context.Context, chatID int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_user_id, SUM(amount)::text
		FROM pending_transactions
		WHERE chat_id = $1
		GROUP BY to_user_id
	`, chatID)
	if err != nil {
		return nil, storeErr("pending sums", err)
	}
	defer rows.Close()

	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var uid int64
		var raw string
		if err := rows.Scan(&uid, &raw); err != nil {
			return nil, storeErr("pending sums", err)
		}
		sum, err := parseAmount(raw)
		if err != nil {
			return nil, storeErr("pending sums", err)
		}
		out[uid] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("pending sums", err)
	}
	return out, nil
}

const claimPendingSQL = `
	DELETE FROM pending_transactions
	WHERE id = $1 AND to_user_id = $2 AND chat_id = $3
	RETURNING id, from_user_id, from_user_display_name, to_user_id, chat_id, amount::text, created_at
`

func claim(ctx context.Context, q querier, txID, userID, chatID int64) (domain.PendingTransaction, error) {
	var p domain.PendingTransaction
	var raw string
	err := q.QueryRow(ctx, claimPendingSQL, txID, userID, chatID).
		Scan(&p.ID, &p.FromUserID, &p.FromUserDisplayName, &p.ToUserID, &p.ChatID, &raw, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Amount, err = parseAmount(raw)
	return p, err
}

// Accept removes the proposal and credits its amount to the recipient in one
// transaction. The DELETE doubles as the existence check: a second resolver
// finds no row and gets domain.ErrNotFound.
func (r *Pending) Accept(ctx context.Context, txID, userID, chatID int64, name string) (domain.PendingTransaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.PendingTransaction{}, storeErr("accept pending", err)
	}

	p, err := claim(ctx, tx, txID, userID, chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		return domain.PendingTransaction{}, domain.ErrNotFound
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return domain.PendingTransaction{}, storeErr("accept pending", err)
	}

	if _, err := upsertBalance(ctx, tx, userID, chatID, name, p.Amount, false); err != nil {
		_ = tx.Rollback(ctx)
		return domain.PendingTransaction{}, storeErr("accept pending", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PendingTransaction{}, storeErr("accept pending", err)
	}
	return p, nil
}

// Reject drops the proposal without touching any balance.
func (r *Pending) Reject(ctx context.Context, txID, userID, chatID int64) (domain.PendingTransaction, error) {
	p, err := claim(ctx, r.db, txID, userID, chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PendingTransaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PendingTransaction{}, storeErr("reject pending", err)
	}
	return p, nil
}
