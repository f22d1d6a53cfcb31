package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is whoever triggered an update.
type User struct {
	ID          int64
	DisplayName string
}

type Balance struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	Amount      decimal.Decimal
}

type PendingTransaction struct {
	ID                  int64
	FromUserID          int64
	FromUserDisplayName string
	ToUserID            int64
	ChatID              int64
	Amount              decimal.Decimal
	CreatedAt           time.Time
}

// Member is a user that has a balance row in a chat and can therefore be
// picked as a proxy-add target.
type Member struct {
	UserID      int64
	DisplayName string
}
