// Package session keeps the short-lived proxy-add cursor of each proposer.
//
// Entries are keyed by (user, chat) and expire after a TTL. Nothing here is
// authoritative; losing an entry only means the proposer has to start over.
package session

import (
	"sync"
	"time"
)

type Stage int

const (
	Idle Stage = iota
	SelectingTarget
	AwaitingAmount
)

func (s Stage) String() string {
	switch s {
	case SelectingTarget:
		return "selecting_target"
	case AwaitingAmount:
		return "awaiting_amount"
	default:
		return "idle"
	}
}

type Key struct {
	UserID int64
	ChatID int64
}

type State struct {
	Stage      Stage
	TargetID   int64
	TargetName string
	MessageID  int // message carrying the workflow keyboard
	ExpiresAt  time.Time
}

type Store struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[Key]State
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, data: make(map[Key]State)}
}

// Get returns the live state for k. Expired entries are dropped and
// reported as Idle.
func (s *Store) Get(k Key) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data[k]
	if !ok {
		return State{}, false
	}
	if !s.now().Before(st.ExpiresAt) {
		delete(s.data, k)
		return State{}, false
	}
	return st, true
}

// Put replaces the state for k and restarts its TTL.
func (s *Store) Put(k Key, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Stage == Idle {
		delete(s.data, k)
		return
	}
	st.ExpiresAt = s.now().Add(s.ttl)
	s.data[k] = st
}

// Take removes and returns the live state for k if it is at stage. Of two
// concurrent callers only one gets ok.
func (s *Store) Take(k Key, stage Stage) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data[k]
	if !ok || st.Stage != stage {
		return State{}, false
	}
	delete(s.data, k)
	if !s.now().Before(st.ExpiresAt) {
		return State{}, false
	}
	return st, true
}

func (s *Store) Clear(k Key) {
	s.mu.Lock()
	delete(s.data, k)
	s.mu.Unlock()
}

// Sweep drops every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, st := range s.data {
		if !now.Before(st.ExpiresAt) {
			delete(s.data, k)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
