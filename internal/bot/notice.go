package bot

import (
	"sync"
	"time"
)

type noticeKey struct {
	chatID    int64
	messageID int
}

// Expirer deletes transient messages after a delay. Deletions run on their
// own timers and never block the update loop.
type Expirer struct {
	mu      sync.Mutex
	timers  map[noticeKey]*time.Timer
	del     func(chatID int64, messageID int)
	stopped bool
}

func NewExpirer(del func(chatID int64, messageID int)) *Expirer {
	return &Expirer{timers: make(map[noticeKey]*time.Timer), del: del}
}

// Schedule arranges for the message to be deleted after d. Rescheduling the
// same message replaces the earlier timer.
func (e *Expirer) Schedule(chatID int64, messageID int, d time.Duration) {
	k := noticeKey{chatID, messageID}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if t, ok := e.timers[k]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.mu.Lock()
		cur, ok := e.timers[k]
		live := ok && cur == t
		if live {
			delete(e.timers, k)
		}
		e.mu.Unlock()
		if live {
			e.del(chatID, messageID)
		}
	})
	e.timers[k] = t
}

// Cancel reports whether a pending deletion was called off.
func (e *Expirer) Cancel(chatID int64, messageID int) bool {
	k := noticeKey{chatID, messageID}

	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.timers[k]
	if !ok {
		return false
	}
	t.Stop()
	delete(e.timers, k)
	return true
}

// Stop cancels everything still scheduled; later Schedule calls are no-ops.
func (e *Expirer) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for k, t := range e.timers {
		t.Stop()
		delete(e.timers, k)
	}
}

func (e *Expirer) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}
