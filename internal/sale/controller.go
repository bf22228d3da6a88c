package sale

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/clock"
	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/model"
)

// View is the display snapshot of an event's sale.  The remaining
// counters are only present while the matching timer runs.
type View struct {
	EventID            string          `json:"event_id"`
	SaleState          model.SaleState `json:"sale_state"`
	CountdownRemaining *int            `json:"countdown_remaining,omitempty"`
	SellOutRemaining   *int            `json:"sell_out_remaining,omitempty"`
	LastError          string          `json:"last_error,omitempty"`
}

type lifecycleDeps struct {
	store  Store
	inv    *inventory.Model
	clock  clock.Clock
	pub    Publisher
	log    *zap.Logger
	timing Timing
	retry  RetryPolicy
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdReset
	cmdView
)

type command struct {
	kind  commandKind
	reply chan commandResult
}

type commandResult struct {
	view View
	err  error
}

// controller owns the sale lifecycle of one event.  A single goroutine
// (run) applies commands, timer ticks and exhaustion notices in the
// order it receives them, so no two transitions of an event overlap.
// Every field below done is owned by that goroutine.
type controller struct {
	eventID   string
	deps      *lifecycleDeps
	log       *zap.Logger
	cmds      chan command
	exhausted chan struct{}
	done      chan struct{}

	state     model.SaleState
	countdown int
	sellOut   int
	ticker    clock.Ticker
	lastErr   error
}

func newController(eventID string, initial model.SaleState, deps *lifecycleDeps) *controller {
	return &controller{
		eventID:   eventID,
		deps:      deps,
		log:       deps.log.With(zap.String("event_id", eventID)),
		cmds:      make(chan command),
		exhausted: make(chan struct{}, 1),
		done:      make(chan struct{}),
		state:     initial,
	}
}

// submit hands a command to the loop and waits for its result.  ctx
// only bounds the wait; the transition itself runs on the loop's
// context so an abandoned request cannot leave it half applied.
func (c *controller) submit(ctx context.Context, kind commandKind) (View, error) {
	cmd := command{kind: kind, reply: make(chan commandResult, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return View{}, fail("submit", c.eventID, "", ErrTransitionConflict, nil)
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.view, res.err
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// notifyExhausted never blocks; one pending notice is enough.
func (c *controller) notifyExhausted() {
	select {
	case c.exhausted <- struct{}{}:
	default:
	}
}

func (c *controller) run(ctx context.Context) {
	defer close(c.done)
	defer c.stopTicker()
	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmds:
			var res commandResult
			switch cmd.kind {
			case cmdStart:
				res.err = c.start(ctx)
			case cmdReset:
				res.err = c.reset(ctx)
			}
			res.view = c.view()
			cmd.reply <- res
		case <-tick:
			c.tick(ctx)
		case <-c.exhausted:
			c.checkExhausted(ctx)
		}
	}
}

func (c *controller) view() View {
	v := View{EventID: c.eventID, SaleState: c.state}
	if c.ticker != nil {
		switch c.state {
		case model.SaleCountdown:
			n := c.countdown
			v.CountdownRemaining = &n
		case model.SaleOnSale:
			n := c.sellOut
			v.SellOutRemaining = &n
		}
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}

func (c *controller) arm() {
	c.stopTicker()
	c.ticker = c.deps.clock.NewTicker(c.deps.timing.Interval)
}

func (c *controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// start is a no-op unless the sale is NotStarted.
func (c *controller) start(ctx context.Context) error {
	if c.state != model.SaleNotStarted {
		c.log.Debug("start ignored", zap.String("state", string(c.state)))
		return nil
	}
	ctx, span := c.span(ctx, "sale.Start")
	defer span.End()

	if err := c.persist(ctx, "start", model.StatePatch(model.SaleCountdown)); err != nil {
		c.lastErr = err
		return err
	}
	c.lastErr = nil
	c.countdown = c.deps.timing.CountdownTicks
	c.arm()
	c.transitioned(ctx, model.SaleNotStarted, model.SaleCountdown)
	return nil
}

func (c *controller) tick(ctx context.Context) {
	switch c.state {
	case model.SaleCountdown:
		if c.countdown > 0 {
			c.countdown--
		}
		if c.countdown <= 0 {
			c.openSale(ctx)
		}
	case model.SaleOnSale:
		if c.sellOut > 0 {
			c.sellOut--
		}
		if c.sellOut <= 0 {
			c.sellOutNow(ctx, "timer")
			return
		}
		c.flushSeats(ctx)
	default:
		c.stopTicker()
	}
}

// openSale loads the persisted seats into the inventory, persists
// OnSale and only then considers the sale open.  Buyers are gated on
// the persisted flag, so the inventory gate may open first.
func (c *controller) openSale(ctx context.Context) {
	ctx, span := c.span(ctx, "sale.Open")
	defer span.End()

	var ev model.Event
	err := c.retryOp(ctx, "load event", func() (err error) {
		ev, err = c.deps.store.GetEvent(ctx, c.eventID)
		return err
	})
	if err == nil {
		if err = c.deps.inv.Open(ctx, ev); err != nil {
			err = fail("open sale", c.eventID, "", ErrPersistenceFailure, err)
		}
	}
	if err == nil {
		if err = c.persist(ctx, "open sale", model.StatePatch(model.SaleOnSale)); err != nil {
			c.deps.inv.Close(c.eventID)
		}
	}
	if err != nil {
		c.lastErr = err
		c.log.Error("sale not opened; retrying next tick", zap.Error(err))
		return
	}

	c.lastErr = nil
	c.sellOut = c.deps.timing.SellOutTicks
	c.arm()
	c.transitioned(ctx, model.SaleCountdown, model.SaleOnSale)
}

// sellOutNow zeroes every category and persists SoldOut.  Zeroing
// closes the inventory gate first, so no purchase commits afterwards
// even if the store write fails and is retried on the next tick.
func (c *controller) sellOutNow(ctx context.Context, trigger string) {
	ctx, span := c.span(ctx, "sale.SellOut")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", trigger))

	seats, err := c.deps.inv.ZeroOut(ctx, c.eventID)
	if err != nil {
		err = fail("sell out", c.eventID, "", ErrPersistenceFailure, err)
	} else {
		err = c.persist(ctx, "sell out", model.EventPatch{
			SaleState:      statePtr(model.SaleSoldOut),
			AvailableSeats: seats,
		})
	}
	if err != nil {
		c.lastErr = err
		c.sellOut = 0
		c.log.Error("sold out not persisted; store still advertises ON_SALE", zap.String("trigger", trigger), zap.Error(err))
		return
	}

	c.lastErr = nil
	c.sellOut = 0
	c.stopTicker()
	c.transitioned(ctx, model.SaleOnSale, model.SaleSoldOut, zap.String("trigger", trigger))
}

// checkExhausted handles a notice from the transactor.  Notices that
// arrive outside a running sale are stale.
func (c *controller) checkExhausted(ctx context.Context) {
	if c.state != model.SaleOnSale || c.ticker == nil {
		return
	}
	done, err := c.deps.inv.Exhausted(ctx, c.eventID)
	if err != nil {
		c.log.Warn("inventory check failed", zap.Error(err))
		return
	}
	if done {
		c.sellOutNow(ctx, "inventory exhausted")
	}
}

// flushSeats writes the live counts to the store.  It is best effort;
// the next tick writes again.
func (c *controller) flushSeats(ctx context.Context) {
	seats, err := c.deps.inv.Available(ctx, c.eventID)
	if err == nil {
		err = c.deps.store.UpdateEvent(ctx, c.eventID, model.EventPatch{AvailableSeats: seats})
	}
	if err != nil {
		c.log.Warn("seat snapshot not flushed", zap.Error(err))
	}
}

// reset stops the timers, closes the sale gate, restores capacity,
// deletes the event's purchases and persists NotStarted.  It runs in full from any state,
// so repeating it converges to the same result.
func (c *controller) reset(ctx context.Context) error {
	ctx, span := c.span(ctx, "sale.Reset")
	defer span.End()

	c.stopTicker()
	c.deps.inv.Close(c.eventID)
	from := c.state
	err := c.resetStore(ctx)
	if err != nil {
		c.lastErr = err
		c.log.Error("reset failed; timers stopped and purchases refused until reset succeeds",
			zap.String("state", string(from)), zap.Error(err))
		return err
	}
	c.state = model.SaleNotStarted
	c.countdown, c.sellOut = 0, 0
	c.lastErr = nil
	if from != model.SaleNotStarted {
		c.transitioned(ctx, from, model.SaleNotStarted)
	}
	return nil
}

func (c *controller) resetStore(ctx context.Context) error {
	var ev model.Event
	err := c.retryOp(ctx, "load event", func() (err error) {
		ev, err = c.deps.store.GetEvent(ctx, c.eventID)
		return err
	})
	if err != nil {
		return err
	}
	seats, err := c.deps.inv.ResetToCapacity(ctx, ev)
	if err != nil {
		return fail("reset", c.eventID, "", ErrPersistenceFailure, err)
	}

	var purchases []model.Purchase
	err = c.retryOp(ctx, "list purchases", func() (err error) {
		purchases, err = c.deps.store.ListPurchases(ctx, c.eventID)
		return err
	})
	if err != nil {
		return err
	}
	for _, p := range purchases {
		id := p.ID
		err := c.retryOp(ctx, "delete purchase", func() error {
			if err := c.deps.store.DeletePurchase(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return c.persist(ctx, "reset", model.EventPatch{
		SaleState:      statePtr(model.SaleNotStarted),
		AvailableSeats: seats,
	})
}

// transitioned records a persisted state change.
func (c *controller) transitioned(ctx context.Context, from, to model.SaleState, fields ...zap.Field) {
	c.state = to
	c.log.Info("sale state changed",
		append([]zap.Field{zap.String("from", string(from)), zap.String("to", string(to))}, fields...)...)
	if err := c.deps.pub.SaleStateChanged(ctx, c.eventID, from, to, c.deps.clock.Now()); err != nil {
		c.log.Warn("publish sale.state_changed failed", zap.Error(err))
	}
}

func (c *controller) persist(ctx context.Context, op string, patch model.EventPatch) error {
	return c.retryOp(ctx, op, func() error {
		return c.deps.store.UpdateEvent(ctx, c.eventID, patch)
	})
}

// retryOp runs fn with bounded exponential backoff.  A missing event is
// permanent.  The result is always an *Error.
func (c *controller) retryOp(ctx context.Context, op string, fn func() error) error {
	_, err := retry(ctx, c.deps.retry, c.log.With(zap.String("op", op)), fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return fail(op, c.eventID, "", ErrEventNotFound, err)
	}
	return fail(op, c.eventID, "", ErrPersistenceFailure, err)
}

func retry(ctx context.Context, policy RetryPolicy, log *zap.Logger, fn func() error) (struct{}, error) {
	b := backoff.NewExponentialBackOff()
	if policy.Initial > 0 {
		b.InitialInterval = policy.Initial
	}
	if policy.Max > 0 {
		b.MaxInterval = policy.Max
	}
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if errors.Is(err, model.ErrNotFound) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("store write failed; retrying", zap.Duration("backoff", next), zap.Error(err))
		}),
	)
}

func (c *controller) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("event.id", c.eventID),
		attribute.String("sale.state", string(c.state)),
	))
}

func statePtr(s model.SaleState) *model.SaleState { return &s }
