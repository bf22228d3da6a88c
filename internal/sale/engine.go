// Package sale coordinates ticket sales: the timed lifecycle of each
// event, purchases against its seat inventory and the read models the
// HTTP layer displays.
package sale

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/clock"
	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/model"
)

// Options configures an Engine.  Zero values select the defaults.
type Options struct {
	Clock     clock.Clock
	Publisher Publisher
	Logger    *zap.Logger
	Timing    Timing
	Retry     RetryPolicy
}

// Engine is the entry point used by the presentation layer.
type Engine struct {
	store      Store
	inv        *inventory.Model
	registry   *Registry
	transactor *Transactor
	log        *zap.Logger
}

// EventView is an event with its live sale view.  While the sale is
// open the seat counts are read from the inventory, not the store.
type EventView struct {
	model.Event
	Sale View `json:"sale"`
}

// Ticket is a purchase decorated with its event for "my tickets".
type Ticket struct {
	model.Purchase
	EventTitle string `json:"event_title"`
	Venue      string `json:"venue"`
}

// NewEngine wires the registry and transactor around store and inv.
func NewEngine(store Store, inv *inventory.Model, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timing.Interval <= 0 {
		opts.Timing = DefaultTiming
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetry
	}
	deps := &lifecycleDeps{
		store:  store,
		inv:    inv,
		clock:  opts.Clock,
		pub:    opts.Publisher,
		log:    opts.Logger.With(zap.String("component", "lifecycle")),
		timing: opts.Timing,
		retry:  opts.Retry,
	}
	reg := newRegistry(deps)
	return &Engine{
		store:      store,
		inv:        inv,
		registry:   reg,
		transactor: NewTransactor(store, inv, opts.Clock, opts.Publisher, opts.Logger, reg.NotifyExhausted),
		log:        opts.Logger,
	}
}

func (e *Engine) StartSale(ctx context.Context, eventID string) (View, error) {
	return e.registry.Start(ctx, eventID)
}

func (e *Engine) ResetSale(ctx context.Context, eventID string) (View, error) {
	return e.registry.Reset(ctx, eventID)
}

func (e *Engine) ViewState(ctx context.Context, eventID string) (View, error) {
	return e.registry.View(ctx, eventID)
}

func (e *Engine) Purchase(ctx context.Context, eventID, userID, category string, quantity int) (model.Purchase, error) {
	return e.transactor.Purchase(ctx, PurchaseRequest{
		EventID:  eventID,
		UserID:   userID,
		Category: category,
		Quantity: quantity,
	})
}

// Recover normalizes sales interrupted by a restart.
func (e *Engine) Recover(ctx context.Context) error {
	return e.registry.Recover(ctx)
}

// Close stops every lifecycle timer.
func (e *Engine) Close() {
	e.registry.Close()
}

// ListEvents returns all events, or those of one category, ordered by
// date.
func (e *Engine) ListEvents(ctx context.Context, category model.EventCategory) ([]EventView, error) {
	events, err := e.store.ListEvents(ctx)
	if err != nil {
		return nil, fail("list events", "", "", ErrPersistenceFailure, err)
	}
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		if category != "" && ev.Category != category {
			continue
		}
		v, err := e.decorate(ctx, ev)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (e *Engine) GetEvent(ctx context.Context, id string) (EventView, error) {
	ev, err := e.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return EventView{}, fail("get event", id, "", ErrEventNotFound, err)
		}
		return EventView{}, fail("get event", id, "", ErrPersistenceFailure, err)
	}
	return e.decorate(ctx, ev)
}

func (e *Engine) decorate(ctx context.Context, ev model.Event) (EventView, error) {
	view, err := e.registry.View(ctx, ev.ID)
	if err != nil {
		return EventView{}, err
	}
	ev = ev.Clone()
	if e.inv.IsOpen(ev.ID) {
		live, err := e.inv.Available(ctx, ev.ID)
		if err != nil {
			e.log.Warn("live seat counts unavailable", zap.String("event_id", ev.ID), zap.Error(err))
		}
		for tier, n := range live {
			if sc, ok := ev.SeatCategories[tier]; ok {
				sc.Available = n
				ev.SeatCategories[tier] = sc
			}
		}
	}
	return EventView{Event: ev, Sale: view}, nil
}

// ListUserPurchases returns a buyer's tickets, newest first.
func (e *Engine) ListUserPurchases(ctx context.Context, userID string) ([]Ticket, error) {
	purchases, err := e.store.ListPurchasesByUser(ctx, userID)
	if err != nil {
		return nil, fail("list purchases", "", "", ErrPersistenceFailure, err)
	}
	events := make(map[string]model.Event)
	out := make([]Ticket, 0, len(purchases))
	for _, p := range purchases {
		ev, ok := events[p.EventID]
		if !ok {
			ev, err = e.store.GetEvent(ctx, p.EventID)
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				return nil, fail("list purchases", p.EventID, "", ErrPersistenceFailure, err)
			}
			events[p.EventID] = ev
		}
		out = append(out, Ticket{Purchase: p, EventTitle: ev.Title, Venue: ev.Venue})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}
