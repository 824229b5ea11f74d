package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/orderpush/internal/domain"
)

type entry struct {
	state   string
	expires time.Time
}

// MemoryLedger is an in-process Ledger with the same semantics as
// RedisLedger. It backs unit tests and single-instance deployments without
// Redis; its state does not survive a restart.
type MemoryLedger struct {
	mu        sync.Mutex
	entries   map[string]entry
	lease     time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewMemoryLedger(lease, retention time.Duration) *MemoryLedger {
	return &MemoryLedger{
		entries:   make(map[string]entry),
		lease:     lease,
		retention: retention,
		now:       time.Now,
	}
}

func (l *MemoryLedger) Acquire(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expires) {
		if e.state == stateCompleted {
			return domain.ErrBatchCompleted
		}
		return domain.ErrBatchInFlight
	}
	l.entries[key] = entry{state: stateInProgress, expires: now.Add(l.lease)}
	return nil
}

func (l *MemoryLedger) Complete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = entry{state: stateCompleted, expires: l.now().Add(l.retention)}
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok && e.state == stateInProgress {
		delete(l.entries, key)
	}
	return nil
}

// State returns the recorded state for key, or "" if none. Used in tests.
func (l *MemoryLedger) State(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok && l.now().Before(e.expires) {
		return e.state
	}
	return ""
}

// compile-time check that MemoryLedger implements Ledger
var _ Ledger = (*MemoryLedger)(nil)
