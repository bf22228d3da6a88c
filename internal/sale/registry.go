package sale

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// Registry owns at most one live controller per event.  Controllers
// are created on the first start or reset of an event and live until
// Close.
type Registry struct {
	deps        *lifecycleDeps
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	controllers sync.Map // eventID -> *controller
}

func newRegistry(deps *lifecycleDeps) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		deps:   deps,
		log:    deps.log.With(zap.String("component", "registry")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// controllerFor returns the event's controller, creating and starting
// it if needed.  A persisted Countdown or OnSale without a live
// controller has no running timer, so the new controller begins from
// NotStarted.
func (r *Registry) controllerFor(ctx context.Context, eventID string) (*controller, error) {
	if v, ok := r.controllers.Load(eventID); ok {
		return v.(*controller), nil
	}
	ev, err := r.deps.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fail("lookup", eventID, "", ErrEventNotFound, err)
		}
		return nil, fail("lookup", eventID, "", ErrPersistenceFailure, err)
	}
	initial := ev.SaleState
	if initial == model.SaleCountdown || initial == model.SaleOnSale {
		initial = model.SaleNotStarted
	}

	c := newController(eventID, initial, r.deps)
	v, loaded := r.controllers.LoadOrStore(eventID, c)
	if loaded {
		return v.(*controller), nil
	}
	if r.ctx.Err() != nil {
		close(c.done)
		return nil, fail("lookup", eventID, "", ErrTransitionConflict, r.ctx.Err())
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		c.run(r.ctx)
	}()
	return c, nil
}

// Start begins the countdown of a NotStarted event.  In any other
// state it returns the current view unchanged.
func (r *Registry) Start(ctx context.Context, eventID string) (View, error) {
	c, err := r.controllerFor(ctx, eventID)
	if err != nil {
		return View{}, err
	}
	return c.submit(ctx, cmdStart)
}

// Reset returns the event to NotStarted at full capacity with no
// purchases.
func (r *Registry) Reset(ctx context.Context, eventID string) (View, error) {
	c, err := r.controllerFor(ctx, eventID)
	if err != nil {
		return View{}, err
	}
	return c.submit(ctx, cmdReset)
}

// View returns the lifecycle snapshot.  Events without a controller
// report their persisted state.
func (r *Registry) View(ctx context.Context, eventID string) (View, error) {
	if v, ok := r.controllers.Load(eventID); ok {
		return v.(*controller).submit(ctx, cmdView)
	}
	ev, err := r.deps.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return View{}, fail("view", eventID, "", ErrEventNotFound, err)
		}
		return View{}, fail("view", eventID, "", ErrPersistenceFailure, err)
	}
	return View{EventID: eventID, SaleState: ev.SaleState}, nil
}

// NotifyExhausted tells the event's controller that a category ran
// out.  It never blocks.
func (r *Registry) NotifyExhausted(eventID string) {
	if v, ok := r.controllers.Load(eventID); ok {
		v.(*controller).notifyExhausted()
	}
}

// Recover normalizes events left in Countdown or OnSale by a previous
// process back to NotStarted.  It must run before the first command.
func (r *Registry) Recover(ctx context.Context) error {
	events, err := r.deps.store.ListEvents(ctx)
	if err != nil {
		return fail("recover", "", "", ErrPersistenceFailure, err)
	}
	var errs []error
	for _, ev := range events {
		if ev.SaleState != model.SaleCountdown && ev.SaleState != model.SaleOnSale {
			continue
		}
		if _, live := r.controllers.Load(ev.ID); live {
			continue
		}
		_, err := retry(ctx, r.deps.retry, r.log, func() error {
			return r.deps.store.UpdateEvent(ctx, ev.ID, model.StatePatch(model.SaleNotStarted))
		})
		if err != nil {
			errs = append(errs, fail("recover", ev.ID, "", ErrPersistenceFailure, err))
			continue
		}
		r.log.Info("interrupted sale normalized",
			zap.String("event_id", ev.ID),
			zap.String("from", string(ev.SaleState)),
			zap.String("to", string(model.SaleNotStarted)))
	}
	return errors.Join(errs...)
}

// Close stops every controller and waits for their loops to exit.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}
