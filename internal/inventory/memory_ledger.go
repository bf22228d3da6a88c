package inventory

import (
	"context"
	"sync"
)

// MemoryLedger keeps counts in process memory with one mutex per
// (event, tier).  Events never share a lock.
type MemoryLedger struct {
	events sync.Map // eventID -> *memoryEvent
}

type memoryEvent struct {
	mu    sync.RWMutex // guards the tiers map itself, not the counts
	tiers map[string]*memoryCounter
}

type memoryCounter struct {
	mu sync.Mutex
	n  int
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{} }

func (l *MemoryLedger) event(eventID string) *memoryEvent {
	v, _ := l.events.LoadOrStore(eventID, &memoryEvent{tiers: map[string]*memoryCounter{}})
	return v.(*memoryEvent)
}

func (l *MemoryLedger) Load(_ context.Context, eventID string, seats map[string]int) error {
	ev := l.event(eventID)
	tiers := make(map[string]*memoryCounter, len(seats))
	for tier, n := range seats {
		if n < 0 {
			n = 0
		}
		tiers[tier] = &memoryCounter{n: n}
	}
	ev.mu.Lock()
	ev.tiers = tiers
	ev.mu.Unlock()
	return nil
}

func (l *MemoryLedger) Decrement(_ context.Context, eventID, tier string, qty int) (int, error) {
	ev := l.event(eventID)
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	c, ok := ev.tiers[tier]
	if !ok {
		return 0, ErrUnknownCategory
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n < qty {
		return c.n, ErrInsufficient
	}
	c.n -= qty
	return c.n, nil
}

func (l *MemoryLedger) Increment(_ context.Context, eventID, tier string, qty int) error {
	ev := l.event(eventID)
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	c, ok := ev.tiers[tier]
	if !ok {
		return ErrUnknownCategory
	}
	c.mu.Lock()
	c.n += qty
	c.mu.Unlock()
	return nil
}

func (l *MemoryLedger) ZeroOut(_ context.Context, eventID string) (map[string]int, error) {
	ev := l.event(eventID)
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	out := make(map[string]int, len(ev.tiers))
	for tier, c := range ev.tiers {
		c.mu.Lock()
		c.n = 0
		c.mu.Unlock()
		out[tier] = 0
	}
	return out, nil
}

func (l *MemoryLedger) Snapshot(_ context.Context, eventID string) (map[string]int, error) {
	ev := l.event(eventID)
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	out := make(map[string]int, len(ev.tiers))
	for tier, c := range ev.tiers {
		c.mu.Lock()
		out[tier] = c.n
		c.mu.Unlock()
	}
	return out, nil
}
