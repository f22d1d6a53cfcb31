package jar

import (
	"context"

	"github.com/shopspring/decimal"
)

type BoardRow struct {
	UserID  int64
	Name    string
	Amount  decimal.Decimal
	Pending decimal.Decimal // incoming, not yet accepted
}

// Board is the read model behind the scoreboard. Rows keep the store order
// (amount descending).
type Board struct {
	ChatID int64
	Rows   []BoardRow
}

func (b Board) Empty() bool { return len(b.Rows) == 0 }

func (s *Service) Board(ctx context.Context, chatID int64) (Board, error) {
	balances, err := s.ledger.Scoreboard(ctx, chatID)
	if err != nil {
		return Board{}, err
	}
	b := Board{ChatID: chatID}
	if len(balances) == 0 {
		return b, nil
	}

	sums, err := s.pending.SumsByRecipient(ctx, chatID)
	if err != nil {
		return Board{}, err
	}

	b.Rows = make([]BoardRow, 0, len(balances))
	for _, bal := range balances {
		b.Rows = append(b.Rows, BoardRow{
			UserID:  bal.UserID,
			Name:    bal.DisplayName,
			Amount:  bal.Amount,
			Pending: sums[bal.UserID],
		})
	}
	return b, nil
}
