// Package jartest provides an in-memory store for tests of code built on
// the jar service.
package jartest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/domain"
)

type bkey struct{ user, chat int64 }

// MemStore mirrors the SQL semantics of repo.Balances and repo.Pending. It
// satisfies both jar.Ledger and jar.PendingStore.
type MemStore struct {
	mu       sync.Mutex
	balances map[bkey]*domain.Balance
	order    []bkey
	pending  map[int64]domain.PendingTransaction
	nextID   int64
	fail     error
}

func NewMemStore() *MemStore {
	return &MemStore{
		balances: make(map[bkey]*domain.Balance),
		pending:  make(map[int64]domain.PendingTransaction),
	}
}

func (m *MemStore) upsert(userID, chatID int64, name string, delta decimal.Decimal, clamp bool) decimal.Decimal {
	k := bkey{userID, chatID}
	b, ok := m.balances[k]
	if !ok {
		b = &domain.Balance{UserID: userID, ChatID: chatID}
		m.balances[k] = b
		m.order = append(m.order, k)
		if delta.IsNegative() {
			delta = decimal.Zero
		}
	}
	b.DisplayName = name
	b.Amount = b.Amount.Add(delta)
	if clamp && b.Amount.IsNegative() {
		b.Amount = decimal.Zero
	}
	return b.Amount
}

func (m *MemStore) Adjust(_ context.Context, userID, chatID int64, name string, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return decimal.Zero, m.fail
	}
	return m.upsert(userID, chatID, name, delta, true), nil
}

func (m *MemStore) Reset(_ context.Context, userID, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if b, ok := m.balances[bkey{userID, chatID}]; ok {
		b.Amount = decimal.Zero
	}
	return nil
}

func (m *MemStore) Get(_ context.Context, userID, chatID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return decimal.Zero, m.fail
	}
	if b, ok := m.balances[bkey{userID, chatID}]; ok {
		return b.Amount, nil
	}
	return decimal.Zero, nil
}

func (m *MemStore) Scoreboard(_ context.Context, chatID int64) ([]domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []domain.Balance
	for _, k := range m.order {
		if k.chat == chatID {
			out = append(out, *m.balances[k])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	return out, nil
}

func (m *MemStore) Members(_ context.Context, chatID, excludeUserID int64) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []domain.Member
	for _, k := range m.order {
		if k.chat == chatID && k.user != excludeUserID {
			out = append(out, domain.Member{UserID: k.user, DisplayName: m.balances[k].DisplayName})
		}
	}
	return out, nil
}

func (m *MemStore) Create(_ context.Context, p domain.PendingTransaction) (domain.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return p, m.fail
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Unix(m.nextID, 0)
	m.pending[p.ID] = p
	return p, nil
}

func (m *MemStore) ListIncoming(_ context.Context, userID, chatID int64) ([]domain.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []domain.PendingTransaction
	for _, p := range m.pending {
		if p.ToUserID == userID && p.ChatID == chatID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) SumsByRecipient(_ context.Context, chatID int64) (map[int64]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make(map[int64]decimal.Decimal)
	for _, p := range m.pending {
		if p.ChatID == chatID {
			out[p.ToUserID] = out[p.ToUserID].Add(p.Amount)
		}
	}
	return out, nil
}

func (m *MemStore) claim(txID, userID, chatID int64) (domain.PendingTransaction, error) {
	p, ok := m.pending[txID]
	if !ok || p.ToUserID != userID || p.ChatID != chatID {
		return domain.PendingTransaction{}, domain.ErrNotFound
	}
	delete(m.pending, txID)
	return p, nil
}

func (m *MemStore) Accept(_ context.Context, txID, userID, chatID int64, name string) (domain.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return domain.PendingTransaction{}, m.fail
	}
	p, err := m.claim(txID, userID, chatID)
	if err != nil {
		return p, err
	}
	m.upsert(userID, chatID, name, p.Amount, false)
	return p, nil
}

func (m *MemStore) Reject(_ context.Context, txID, userID, chatID int64) (domain.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return domain.PendingTransaction{}, m.fail
	}
	return m.claim(txID, userID, chatID)
}

// Amount reads a balance directly, zero if the row does not exist.
func (m *MemStore) Amount(userID, chatID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[bkey{userID, chatID}]; ok {
		return b.Amount
	}
	return decimal.Zero
}

// Fail makes every later call return err until it is called with nil.
func (m *MemStore) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// PendingCount is the number of unresolved proposals across all chats.
func (m *MemStore) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
