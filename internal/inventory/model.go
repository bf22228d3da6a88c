package inventory

import (
	"context"
	"sync"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// Model is the seat inventory of every event.  It pairs a Ledger with
// a per-event sale gate: purchases hold the gate shared for as long as
// their reservation is pending, while ZeroOut and ResetToCapacity hold
// it exclusively and close it.  A purchase can therefore never commit
// after a forced sell-out or reset, and neither of those can discard a
// purchase that got its seats first.
type Model struct {
	ledger Ledger
	gates  sync.Map // eventID -> *gate
}

type gate struct {
	mu     sync.RWMutex
	open   bool
	prices map[string]int64
}

// NewModel wraps a ledger.
func NewModel(ledger Ledger) *Model {
	return &Model{ledger: ledger}
}

func (m *Model) gate(eventID string) *gate {
	v, _ := m.gates.LoadOrStore(eventID, &gate{})
	return v.(*gate)
}

// Open loads the event's persisted seat counts and prices and starts
// accepting reservations.
func (m *Model) Open(ctx context.Context, ev model.Event) error {
	g := m.gate(ev.ID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := m.ledger.Load(ctx, ev.ID, ev.AvailableSeats()); err != nil {
		return err
	}
	g.prices = ev.Prices()
	g.open = true
	return nil
}

// Close stops accepting reservations without touching counts.  It
// waits for pending reservations to finish.
func (m *Model) Close(eventID string) {
	g := m.gate(eventID)
	g.mu.Lock()
	g.open = false
	g.mu.Unlock()
}

// IsOpen reports whether reservations are accepted for the event.
func (m *Model) IsOpen(eventID string) bool {
	g := m.gate(eventID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.open
}

// Reserve takes qty seats of tier.  On success the caller must finish
// the reservation with Commit or Rollback; until then the event's gate
// stays held and sell-out or reset wait for it.
func (m *Model) Reserve(ctx context.Context, eventID, tier string, qty int) (*Reservation, error) {
	g := m.gate(eventID)
	g.mu.RLock()
	if !g.open {
		g.mu.RUnlock()
		return nil, ErrSaleClosed
	}
	price, ok := g.prices[tier]
	if !ok {
		g.mu.RUnlock()
		return nil, ErrUnknownCategory
	}
	remaining, err := m.ledger.Decrement(ctx, eventID, tier, qty)
	if err != nil {
		g.mu.RUnlock()
		return nil, err
	}
	return &Reservation{
		EventID:        eventID,
		Tier:           tier,
		Quantity:       qty,
		UnitPriceCents: price,
		Remaining:      remaining,
		ledger:         m.ledger,
		gate:           g,
	}, nil
}

// ZeroOut closes the sale and sets every tier to 0.
func (m *Model) ZeroOut(ctx context.Context, eventID string) (map[string]int, error) {
	g := m.gate(eventID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	return m.ledger.ZeroOut(ctx, eventID)
}

// ResetToCapacity closes the sale and restores every tier the event
// sells to its scheduled capacity.
func (m *Model) ResetToCapacity(ctx context.Context, ev model.Event) (map[string]int, error) {
	g := m.gate(ev.ID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	seats := capacitiesOf(ev)
	if err := m.ledger.Load(ctx, ev.ID, seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// Available returns the live counts of an event.
func (m *Model) Available(ctx context.Context, eventID string) (map[string]int, error) {
	return m.ledger.Snapshot(ctx, eventID)
}

// Exhausted reports whether every tier of the event is at 0.  An event
// with no loaded tiers is not exhausted.
func (m *Model) Exhausted(ctx context.Context, eventID string) (bool, error) {
	seats, err := m.ledger.Snapshot(ctx, eventID)
	if err != nil {
		return false, err
	}
	if len(seats) == 0 {
		return false, nil
	}
	for _, n := range seats {
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Reservation is a pending seat decrement.
type Reservation struct {
	EventID        string
	Tier           string
	Quantity       int
	UnitPriceCents int64
	Remaining      int

	ledger Ledger
	gate   *gate
	once   sync.Once
}

// Commit keeps the decrement and releases the gate.
func (r *Reservation) Commit() {
	r.once.Do(r.gate.mu.RUnlock)
}

// Rollback returns the seats to the ledger and releases the gate.
func (r *Reservation) Rollback(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		err = r.ledger.Increment(ctx, r.EventID, r.Tier, r.Quantity)
		r.gate.mu.RUnlock()
	})
	return err
}
