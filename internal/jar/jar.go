// Package jar implements the swear jar ledger and the proxy-add workflow on
// top of the store interfaces. It knows nothing about Telegram.
package jar

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/config"
	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/session"
)

type Ledger interface {
	Adjust(ctx context.Context, userID, chatID int64, name string, delta decimal.Decimal) (decimal.Decimal, error)
	Reset(ctx context.Context, userID, chatID int64) error
	Get(ctx context.Context, userID, chatID int64) (decimal.Decimal, error)
	Scoreboard(ctx context.Context, chatID int64) ([]domain.Balance, error)
	Members(ctx context.Context, chatID, excludeUserID int64) ([]domain.Member, error)
}

type PendingStore interface {
	Create(ctx context.Context, p domain.PendingTransaction) (domain.PendingTransaction, error)
	ListIncoming(ctx context.Context, userID, chatID int64) ([]domain.PendingTransaction, error)
	SumsByRecipient(ctx context.Context, chatID int64) (map[int64]decimal.Decimal, error)
	Accept(ctx context.Context, txID, userID, chatID int64, name string) (domain.PendingTransaction, error)
	Reject(ctx context.Context, txID, userID, chatID int64) (domain.PendingTransaction, error)
}

type Service struct {
	cfg      config.Config
	ledger   Ledger
	pending  PendingStore
	sessions *session.Store
}

func New(cfg config.Config, l Ledger, p PendingStore, s *session.Store) *Service {
	return &Service{cfg: cfg, ledger: l, pending: p, sessions: s}
}

func (s *Service) Unit() decimal.Decimal { return s.cfg.UnitValue }

func (s *Service) Authorize(userID int64) error {
	if !s.cfg.Allowed(userID) {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (s *Service) Increment(ctx context.Context, u domain.User, chatID int64) (decimal.Decimal, error) {
	return s.ledger.Adjust(ctx, u.ID, chatID, u.DisplayName, s.cfg.UnitValue)
}

func (s *Service) Decrement(ctx context.Context, u domain.User, chatID int64) (decimal.Decimal, error) {
	return s.ledger.Adjust(ctx, u.ID, chatID, u.DisplayName, s.cfg.UnitValue.Neg())
}

func (s *Service) Balance(ctx context.Context, u domain.User, chatID int64) (decimal.Decimal, error) {
	return s.ledger.Get(ctx, u.ID, chatID)
}

func (s *Service) Settle(ctx context.Context, u domain.User, chatID int64) error {
	return s.ledger.Reset(ctx, u.ID, chatID)
}
