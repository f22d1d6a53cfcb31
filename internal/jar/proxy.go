package jar

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/session"
)

// MaxUnits caps a single proposal.
const MaxUnits = 1000

// Proposal is the outcome of a completed proxy-add.
type Proposal struct {
	Tx         domain.PendingTransaction
	Units      int64
	TargetName string
	MessageID  int // workflow message to redraw
}

func key(u domain.User, chatID int64) session.Key {
	return session.Key{UserID: u.ID, ChatID: chatID}
}

// StartProxy moves the proposer to SelectingTarget and returns who can be
// picked. With nobody to pick it returns domain.ErrNoTargets and leaves the
// proposer Idle.
func (s *Service) StartProxy(ctx context.Context, u domain.User, chatID int64, messageID int) ([]domain.Member, error) {
	members, err := s.ledger.Members(ctx, chatID, u.ID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		s.sessions.Clear(key(u, chatID))
		return nil, domain.ErrNoTargets
	}
	s.sessions.Put(key(u, chatID), session.State{
		Stage:     session.SelectingTarget,
		MessageID: messageID,
	})
	return members, nil
}

// SelectTarget records the chosen target and moves to AwaitingAmount.
func (s *Service) SelectTarget(ctx context.Context, u domain.User, chatID, targetID int64, messageID int) (domain.Member, error) {
	k := key(u, chatID)
	st, ok := s.sessions.Get(k)
	if !ok || st.Stage != session.SelectingTarget {
		return domain.Member{}, domain.ErrNoSession
	}

	members, err := s.ledger.Members(ctx, chatID, u.ID)
	if err != nil {
		return domain.Member{}, err
	}
	for _, m := range members {
		if m.UserID == targetID {
			s.sessions.Put(k, session.State{
				Stage:      session.AwaitingAmount,
				TargetID:   m.UserID,
				TargetName: m.DisplayName,
				MessageID:  messageID,
			})
			return m, nil
		}
	}
	// stale keyboard or a self-pick
	s.sessions.Clear(k)
	return domain.Member{}, domain.ErrNoTargets
}

// CancelProxy drops the proposer's session, returning what it was.
func (s *Service) CancelProxy(u domain.User, chatID int64) (session.State, bool) {
	k := key(u, chatID)
	st, ok := s.sessions.Get(k)
	s.sessions.Clear(k)
	return st, ok
}

// Awaiting reports whether u has a live AwaitingAmount session in chatID.
func (s *Service) Awaiting(u domain.User, chatID int64) (session.State, bool) {
	st, ok := s.sessions.Get(key(u, chatID))
	if !ok || st.Stage != session.AwaitingAmount {
		return session.State{}, false
	}
	return st, true
}

// ParseUnits reads a positive whole number of swears.
func ParseUnits(raw string) (int64, error) {
	text := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Input: text, Reason: "send a whole number, e.g. 5"}
	}
	if n <= 0 {
		return 0, &domain.ValidationError{Input: text, Reason: "the number must be positive"}
	}
	if n > MaxUnits {
		return 0, &domain.ValidationError{Input: text, Reason: "at most " + strconv.Itoa(MaxUnits) + " at a time"}
	}
	return n, nil
}

// SubmitAmount completes a proxy-add. Without an AwaitingAmount session it
// returns domain.ErrNoSession and callers should ignore the text. Invalid
// input and store failures keep the session so the proposer can retry.
// The session is consumed before the row is written, so one session yields
// at most one pending transaction.
func (s *Service) SubmitAmount(ctx context.Context, u domain.User, chatID int64, raw string) (Proposal, error) {
	if _, ok := s.Awaiting(u, chatID); !ok {
		return Proposal{}, domain.ErrNoSession
	}

	units, err := ParseUnits(raw)
	if err != nil {
		return Proposal{}, err
	}

	st, ok := s.sessions.Take(key(u, chatID), session.AwaitingAmount)
	if !ok {
		return Proposal{}, domain.ErrNoSession
	}

	tx, err := s.pending.Create(ctx, domain.PendingTransaction{
		FromUserID:          u.ID,
		FromUserDisplayName: u.DisplayName,
		ToUserID:            st.TargetID,
		ChatID:              chatID,
		Amount:              s.cfg.UnitValue.Mul(decimal.NewFromInt(units)),
	})
	if err != nil {
		s.sessions.Put(key(u, chatID), st)
		return Proposal{}, err
	}

	return Proposal{Tx: tx, Units: units, TargetName: st.TargetName, MessageID: st.MessageID}, nil
}

func (s *Service) Incoming(ctx context.Context, u domain.User, chatID int64) ([]domain.PendingTransaction, error) {
	return s.pending.ListIncoming(ctx, u.ID, chatID)
}

// Accept merges one pending transaction into u's balance. A transaction that
// is gone, or was never addressed to u, yields domain.ErrNotFound.
func (s *Service) Accept(ctx context.Context, u domain.User, chatID, txID int64) (domain.PendingTransaction, error) {
	return s.pending.Accept(ctx, txID, u.ID, chatID, u.DisplayName)
}

func (s *Service) Reject(ctx context.Context, u domain.User, chatID, txID int64) (domain.PendingTransaction, error) {
	return s.pending.Reject(ctx, txID, u.ID, chatID)
}

// SweepSessions drops expired proxy-add sessions.
func (s *Service) SweepSessions() int {
	return s.sessions.Sweep()
}
