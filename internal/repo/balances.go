package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/domain"
)

type Balances struct{ db DB }

func NewBalances(db DB) *Balances { return &Balances{db: db} }

const upsertBalanceSQL = `
	INSERT INTO balances(user_id, chat_id, display_name, amount)
	VALUES($1, $2, $3, GREATEST($4::numeric, 0))
	ON CONFLICT (user_id, chat_id) DO UPDATE
	SET display_name = EXCLUDED.display_name,
		amount = %s
	RETURNING amount::text
`

var (
	adjustSQL = fmt.Sprintf(upsertBalanceSQL, "GREATEST(balances.amount + $4::numeric, 0)")
	creditSQL = fmt.Sprintf(upsertBalanceSQL, "balances.amount + $4::numeric")
)

// upsertBalance creates the (user, chat) row if missing and applies delta in
// one statement, so concurrent callers serialize on the row lock. With clamp
// the result never goes below zero.
func upsertBalance(ctx context.Context, q querier, userID, chatID int64, name string, delta decimal.Decimal, clamp bool) (decimal.Decimal, error) {
	sql := creditSQL
	if clamp {
		sql = adjustSQL
	}
	var raw string
	if err := q.QueryRow(ctx, sql, userID, chatID, name, delta.String()).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

// Adjust sets amount = max(amount + delta, 0) and returns the new amount.
func (r *Balances) Adjust(ctx context.Context, userID, chatID int64, name string, delta decimal.Decimal) (decimal.Decimal, error) {
	amt, err := upsertBalance(ctx, r.db, userID, chatID, name, delta, true)
	if err != nil {
		return decimal.Zero, storeErr("adjust balance", err)
	}
	return amt, nil
}

// MergeCredit adds a non-negative amount outside of any transaction. Accept
// uses the same upsert inside its own transaction.
func (r *Balances) MergeCredit(ctx context.Context, userID, chatID int64, name string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.New("merge credit: negative amount")
	}
	amt, err := upsertBalance(ctx, r.db, userID, chatID, name, amount, false)
	if err != nil {
		return decimal.Zero, storeErr("merge credit", err)
	}
	return amt, nil
}

func (r *Balances) Reset(ctx context.Context, userID, chatID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE balances SET amount = 0
		WHERE user_id = $1 AND chat_id = $2
	`, userID, chatID)
	if err != nil {
		return storeErr("reset balance", err)
	}
	return nil
}

// Get returns zero for users that never touched the ledger in this chat.
func (r *Balances) Get(ctx context.Context, userID, chatID int64) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `
		SELECT amount::text FROM balances WHERE user_id = $1 AND chat_id = $2
	`, userID, chatID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, storeErr("get balance", err)
	}
	amt, err := parseAmount(raw)
	if err != nil {
		return decimal.Zero, storeErr("get balance", err)
	}
	return amt, nil
}

func (r *Balances) Scoreboard(ctx context.Context, chatID int64) ([]domain.Balance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, display_name, amount::text
		FROM balances
		WHERE chat_id = $1
		ORDER BY amount DESC, created_at ASC, display_name ASC, user_id ASC
	`, chatID)
	if err != nil {
		return nil, storeErr("scoreboard", err)
	}
	defer rows.Close()

	out := make([]domain.Balance, 0, 8)
	for rows.Next() {
		b := domain.Balance{ChatID: chatID}
		var raw string
		if err := rows.Scan(&b.UserID, &b.DisplayName, &raw); err != nil {
			return nil, storeErr("scoreboard", err)
		}
		if b.Amount, err = parseAmount(raw); err != nil {
			return nil, storeErr("scoreboard", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("scoreboard", err)
	}
	return out, nil
}

// Members lists everyone with a balance row in the chat except excludeUserID.
func (r *Balances) Members(ctx context.Context, chatID, excludeUserID int64) ([]domain.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, display_name
		FROM balances
		WHERE chat_id = $1 AND user_id <> $2
		ORDER BY display_name ASC, user_id ASC
	`, chatID, excludeUserID)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName); err != nil {
			return nil, storeErr("list members", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list members", err)
	}
	return out, nil
}
