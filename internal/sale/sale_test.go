package sale

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/ticket-sale/internal/clock"
	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/model"
	"github.com/iliyamo/ticket-sale/internal/queue"
	"github.com/iliyamo/ticket-sale/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// flakyStore fails selected operations on demand.
type flakyStore struct {
	*repository.MemoryStore
	failGet     atomic.Bool
	failUpdates atomic.Bool
	failCreate  atomic.Bool
	failList    atomic.Bool
}

func (s *flakyStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	if s.failGet.Load() {
		return model.Event{}, errStoreDown
	}
	return s.MemoryStore.GetEvent(ctx, id)
}

func (s *flakyStore) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error {
	if s.failUpdates.Load() {
		return errStoreDown
	}
	return s.MemoryStore.UpdateEvent(ctx, id, patch)
}

func (s *flakyStore) CreatePurchase(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	if s.failCreate.Load() {
		return model.Purchase{}, errStoreDown
	}
	return s.MemoryStore.CreatePurchase(ctx, p)
}

func (s *flakyStore) ListPurchases(ctx context.Context, eventID string) ([]model.Purchase, error) {
	if s.failList.Load() {
		return nil, errStoreDown
	}
	return s.MemoryStore.ListPurchases(ctx, eventID)
}

type recordingPublisher struct {
	mu          sync.Mutex
	purchases   []model.Purchase
	transitions []model.SaleState
}

func (p *recordingPublisher) PurchaseConfirmed(_ context.Context, pur model.Purchase) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, pur)
	return nil
}

func (p *recordingPublisher) SaleStateChanged(_ context.Context, _ string, _, to model.SaleState, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, to)
	return nil
}

func (p *recordingPublisher) states() []model.SaleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SaleState(nil), p.transitions...)
}

type harness struct {
	engine *Engine
	store  *flakyStore
	inv    *inventory.Model
	clock  *clock.Fake
	pub    *recordingPublisher
}

func sportsEvent(id string, vip, cat1 int) model.Event {
	return model.Event{
		ID:        id,
		Title:     "Derby " + id,
		Venue:     "Azadi Stadium",
		Date:      time.Date(2026, 11, 20, 19, 30, 0, 0, time.UTC),
		Category:  model.CategorySports,
		SaleState: model.SaleNotStarted,
		SeatCategories: map[string]model.SeatCategory{
			"VIP":  {PriceCents: 50000, Available: vip},
			"CAT1": {PriceCents: 20000, Available: cat1},
		},
	}
}

func newHarness(t *testing.T, events ...model.Event) *harness {
	t.Helper()
	pub := &recordingPublisher{}
	h := newHarnessWith(t, pub, events...)
	h.pub = pub
	return h
}

func newHarnessWith(t *testing.T, pub Publisher, events ...model.Event) *harness {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	for _, ev := range events {
		_, err := store.CreateEventIfMissing(context.Background(), ev)
		require.NoError(t, err)
	}
	inv := inventory.NewModel(inventory.NewMemoryLedger())
	fc := clock.NewFake(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	e := NewEngine(store, inv, Options{
		Clock:     fc,
		Publisher: pub,
		Logger:    zaptest.NewLogger(t),
		Timing:    DefaultTiming,
		Retry:     RetryPolicy{MaxAttempts: 2, Initial: time.Millisecond, Max: 2 * time.Millisecond},
	})
	t.Cleanup(e.Close)
	return &harness{engine: e, store: store, inv: inv, clock: fc}
}

// tick delivers one tick and waits until the event's controller has
// applied it.
func (h *harness) tick(t *testing.T, eventID string) View {
	t.Helper()
	h.clock.Tick()
	v, err := h.engine.ViewState(context.Background(), eventID)
	require.NoError(t, err)
	return v
}

func (h *harness) persisted(t *testing.T, eventID string) model.Event {
	t.Helper()
	ev, err := h.store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	return ev
}

func (h *harness) openSale(t *testing.T, eventID string) {
	t.Helper()
	_, err := h.engine.StartSale(context.Background(), eventID)
	require.NoError(t, err)
	for i := 0; i < DefaultTiming.CountdownTicks; i++ {
		h.tick(t, eventID)
	}
	v, err := h.engine.ViewState(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, model.SaleOnSale, v.SaleState)
}

func TestCountdownReachesOnSaleAfterFiveTicks(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()

	v, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleCountdown, v.SaleState)
	require.NotNil(t, v.CountdownRemaining)
	assert.Equal(t, 5, *v.CountdownRemaining)
	assert.Equal(t, model.SaleCountdown, h.persisted(t, "E1").SaleState)

	for i := 1; i < 5; i++ {
		v = h.tick(t, "E1")
		assert.Equal(t, model.SaleCountdown, v.SaleState, "tick %d", i)
		assert.Equal(t, 5-i, *v.CountdownRemaining)
		assert.Equal(t, model.SaleCountdown, h.persisted(t, "E1").SaleState, "persisted early at tick %d", i)
	}

	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.Nil(t, v.CountdownRemaining)
	require.NotNil(t, v.SellOutRemaining)
	assert.Equal(t, 3, *v.SellOutRemaining)
	assert.Equal(t, model.SaleOnSale, h.persisted(t, "E1").SaleState)
	assert.True(t, h.inv.IsOpen("E1"))
	assert.Equal(t, []model.SaleState{model.SaleCountdown, model.SaleOnSale}, h.pub.states())
}

func TestStartDuringCountdownIsNoop(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()

	_, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	h.tick(t, "E1")
	h.tick(t, "E1")

	v, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleCountdown, v.SaleState)
	assert.Equal(t, 3, *v.CountdownRemaining)
	assert.Equal(t, 1, h.clock.Tickers(), "only one countdown timeline")

	h.tick(t, "E1")
	h.tick(t, "E1")
	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
}

func TestStartIsNoopWhileOnSaleOrSoldOut(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")

	v, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleOnSale, v.SaleState)

	for i := 0; i < 3; i++ {
		h.tick(t, "E1")
	}
	v, err = h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleSoldOut, v.SaleState)
	assert.Equal(t, 0, h.clock.Tickers())
}

func TestForcedSellOutAfterThreeTicks(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	h.openSale(t, "E1")

	v := h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.Equal(t, 2, *v.SellOutRemaining)
	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.Equal(t, 1, *v.SellOutRemaining)

	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleSoldOut, v.SaleState)
	assert.Nil(t, v.SellOutRemaining)
	assert.Equal(t, 0, h.clock.Tickers())

	ev := h.persisted(t, "E1")
	assert.Equal(t, model.SaleSoldOut, ev.SaleState)
	assert.Equal(t, map[string]int{"VIP": 0, "CAT1": 0}, ev.AvailableSeats())

	_, err := h.engine.Purchase(context.Background(), "E1", "u-1", "VIP", 1)
	assert.ErrorIs(t, err, ErrSaleNotActive)
}

func TestNaturalSellOut(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")

	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 2)
	require.NoError(t, err)
	_, err = h.engine.Purchase(ctx, "E1", "u-2", "CAT1", 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := h.engine.ViewState(ctx, "E1")
		return err == nil && v.SaleState == model.SaleSoldOut
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, model.SaleSoldOut, h.persisted(t, "E1").SaleState)
	assert.Equal(t, 0, h.clock.Tickers())
}

func TestConcurrentPurchasesOfLastSeats(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 10))
	ctx := context.Background()
	h.openSale(t, "E1")

	var wg sync.WaitGroup
	results := make([]error, 2)
	purchases := make([]model.Purchase, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			purchases[i], results[i] = h.engine.Purchase(ctx, "E1", "u-1", "VIP", 2)
		}(i)
	}
	wg.Wait()

	var ok, soldOut int
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			assert.Equal(t, 2, purchases[i].Quantity)
			assert.Equal(t, int64(100000), purchases[i].TotalPriceCents)
			assert.Equal(t, model.PurchaseConfirmed, purchases[i].Status)
		case errors.Is(err, ErrInsufficientInventory):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, soldOut)

	seats, err := h.inv.Available(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 0, seats["VIP"])
}

func TestNoOversellUnderContention(t *testing.T) {
	const capacity = 50
	h := newHarness(t, sportsEvent("E1", capacity, 1000))
	ctx := context.Background()
	h.openSale(t, "E1")

	var wg sync.WaitGroup
	var sold atomic.Int64
	for i := 0; i < 120; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qty := i%4 + 1
			p, err := h.engine.Purchase(ctx, "E1", "buyer", "VIP", qty)
			if err == nil {
				sold.Add(int64(p.Quantity))
				return
			}
			if !errors.Is(err, ErrInsufficientInventory) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	seats, err := h.inv.Available(ctx, "E1")
	require.NoError(t, err)
	assert.LessOrEqual(t, sold.Load(), int64(capacity))
	assert.Equal(t, int64(capacity), sold.Load()+int64(seats["VIP"]))

	stored, err := h.store.ListPurchases(ctx, "E1")
	require.NoError(t, err)
	var total int
	for _, p := range stored {
		total += p.Quantity
	}
	assert.Equal(t, int(sold.Load()), total)
}

func TestPurchaseValidation(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()

	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	assert.ErrorIs(t, err, ErrSaleNotActive, "before the sale opens")

	h.openSale(t, "E1")
	tests := []struct {
		name     string
		eventID  string
		category string
		qty      int
		want     error
	}{
		{"zero quantity", "E1", "VIP", 0, ErrInvalidQuantity},
		{"five tickets", "E1", "VIP", 5, ErrInvalidQuantity},
		{"unknown category", "E1", "BALCONY", 1, ErrUnknownCategory},
		{"missing event", "E404", "VIP", 1, ErrEventNotFound},
		{"more than left", "E1", "CAT1", 2, ErrInsufficientInventory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.Purchase(ctx, tc.eventID, "u-1", tc.category, tc.qty)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.eventID, se.EventID)
		})
	}

	seats, err := h.inv.Available(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"VIP": 2, "CAT1": 1}, seats, "rejections have no side effects")
}

func TestFailedPurchaseWriteReturnsSeats(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")

	h.store.failCreate.Store(true)
	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 2)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, errStoreDown)

	seats, err := h.inv.Available(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 2, seats["VIP"])

	h.store.failCreate.Store(false)
	p, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), p.UnitPriceCents)
	assert.Len(t, h.pub.purchases, 1)
}

func TestResetIsIdempotent(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")
	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	require.NoError(t, err)

	want := map[string]int{"VIP": 500, "CAT1": 1000}
	for i := 0; i < 2; i++ {
		v, err := h.engine.ResetSale(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, model.SaleNotStarted, v.SaleState)
		assert.Nil(t, v.SellOutRemaining)
		assert.Empty(t, v.LastError)

		ev := h.persisted(t, "E1")
		assert.Equal(t, model.SaleNotStarted, ev.SaleState)
		assert.Equal(t, want, ev.AvailableSeats())
		purchases, err := h.store.ListPurchases(ctx, "E1")
		require.NoError(t, err)
		assert.Empty(t, purchases)
		assert.False(t, h.inv.IsOpen("E1"))
		assert.Equal(t, 0, h.clock.Tickers())
	}
	assert.Equal(t, []model.SaleState{model.SaleCountdown, model.SaleOnSale, model.SaleNotStarted}, h.pub.states())
}

func TestResetCancelsCountdown(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()

	_, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	h.tick(t, "E1")
	h.tick(t, "E1")

	v, err := h.engine.ResetSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleNotStarted, v.SaleState)
	assert.Equal(t, 0, h.clock.Tickers())

	for i := 0; i < 5; i++ {
		v = h.tick(t, "E1")
		assert.Equal(t, model.SaleNotStarted, v.SaleState)
	}
	assert.Equal(t, model.SaleNotStarted, h.persisted(t, "E1").SaleState)

	v, err = h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 5, *v.CountdownRemaining)
}

func TestFailedOpenKeepsCountdownAndRetries(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()

	_, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		h.tick(t, "E1")
	}

	h.store.failUpdates.Store(true)
	v := h.tick(t, "E1")
	assert.Equal(t, model.SaleCountdown, v.SaleState)
	assert.NotEmpty(t, v.LastError)
	assert.Equal(t, model.SaleCountdown, h.persisted(t, "E1").SaleState)
	assert.False(t, h.inv.IsOpen("E1"))

	_, err = h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	assert.ErrorIs(t, err, ErrSaleNotActive)

	h.store.failUpdates.Store(false)
	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.Empty(t, v.LastError)
	assert.Equal(t, model.SaleOnSale, h.persisted(t, "E1").SaleState)
}

func TestFailedSellOutClosesSaleAndRetries(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")
	h.tick(t, "E1")
	h.tick(t, "E1")

	h.store.failUpdates.Store(true)
	v := h.tick(t, "E1")
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.NotEmpty(t, v.LastError)
	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	assert.ErrorIs(t, err, ErrSaleNotActive)

	h.store.failUpdates.Store(false)
	v = h.tick(t, "E1")
	assert.Equal(t, model.SaleSoldOut, v.SaleState)
	assert.Equal(t, model.SaleSoldOut, h.persisted(t, "E1").SaleState)
}

func TestFailedResetReportsAndCanBeRepeated(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")

	h.store.failList.Store(true)
	v, err := h.engine.ResetSale(ctx, "E1")
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.NotEmpty(t, v.LastError)
	assert.Equal(t, 0, h.clock.Tickers())
	assert.False(t, h.inv.IsOpen("E1"))

	h.store.failList.Store(false)
	v, err = h.engine.ResetSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleNotStarted, v.SaleState)
}

func TestResetFailingToLoadEventClosesSale(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1))
	ctx := context.Background()
	h.openSale(t, "E1")

	h.store.failGet.Store(true)
	v, err := h.engine.ResetSale(ctx, "E1")
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, model.SaleOnSale, v.SaleState)
	assert.NotEmpty(t, v.LastError)
	assert.Equal(t, 0, h.clock.Tickers())
	assert.False(t, h.inv.IsOpen("E1"))
	h.store.failGet.Store(false)

	// The store still says ON_SALE but the gate refuses buyers.
	for i := 0; i < 10; i++ {
		h.tick(t, "E1")
	}
	_, err = h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	assert.ErrorIs(t, err, ErrSaleNotActive)
	assert.False(t, h.inv.IsOpen("E1"))

	v, err = h.engine.ResetSale(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, model.SaleNotStarted, v.SaleState)
	assert.Empty(t, v.LastError)
}

func TestUnreachableBrokerDoesNotStallSales(t *testing.T) {
	release := make(chan struct{})
	pub := queue.NewPublisher("amqp://blackhole/", zaptest.NewLogger(t), queue.WithBuffer(1),
		queue.WithDialer(func(string) (*amqp.Connection, error) {
			<-release
			return nil, errors.New("dial timeout")
		}))
	t.Cleanup(pub.Close)
	t.Cleanup(func() { close(release) })

	h := newHarnessWith(t, pub, sportsEvent("E1", 2, 4), sportsEvent("E2", 2, 4))
	ctx := context.Background()
	for _, id := range []string{"E1", "E2"} {
		_, err := h.engine.StartSale(ctx, id)
		require.NoError(t, err)
	}
	for i := 0; i < DefaultTiming.CountdownTicks; i++ {
		h.clock.Tick()
		for _, id := range []string{"E1", "E2"} {
			_, err := h.engine.ViewState(ctx, id)
			require.NoError(t, err)
		}
	}
	for _, id := range []string{"E1", "E2"} {
		v, err := h.engine.ViewState(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.SaleOnSale, v.SaleState, id)
	}

	errs := make(chan error, 4)
	for _, id := range []string{"E1", "E2"} {
		for _, tier := range []string{"VIP", "CAT1"} {
			go func(id, tier string) {
				_, err := h.engine.Purchase(ctx, id, "u-"+tier, tier, 1)
				errs <- err
			}(id, tier)
		}
	}
	for i := 0; i < 4; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("purchase blocked behind the broker")
		}
	}
}

func TestEventsAreIndependent(t *testing.T) {
	h := newHarness(t, sportsEvent("E1", 2, 1), sportsEvent("E2", 2, 1))
	ctx := context.Background()

	_, err := h.engine.StartSale(ctx, "E1")
	require.NoError(t, err)
	v, err := h.engine.ViewState(ctx, "E2")
	require.NoError(t, err)
	assert.Equal(t, model.SaleNotStarted, v.SaleState)

	_, err = h.engine.StartSale(ctx, "E404")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRecoverNormalizesInterruptedSales(t *testing.T) {
	onSale := sportsEvent("E1", 2, 1)
	onSale.SaleState = model.SaleOnSale
	soldOut := sportsEvent("E2", 0, 0)
	soldOut.SaleState = model.SaleSoldOut
	h := newHarness(t, onSale, soldOut)
	ctx := context.Background()

	require.NoError(t, h.engine.Recover(ctx))
	assert.Equal(t, model.SaleNotStarted, h.persisted(t, "E1").SaleState)
	assert.Equal(t, model.SaleSoldOut, h.persisted(t, "E2").SaleState)
}

func TestReadModels(t *testing.T) {
	theatre := sportsEvent("T1", 4, 4)
	theatre.Category = model.CategoryTheatre
	theatre.Date = theatre.Date.Add(24 * time.Hour)
	h := newHarness(t, sportsEvent("E1", 2, 1), theatre)
	ctx := context.Background()
	h.openSale(t, "E1")

	_, err := h.engine.Purchase(ctx, "E1", "u-1", "VIP", 1)
	require.NoError(t, err)

	all, err := h.engine.ListEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "E1", all[0].ID)
	assert.Equal(t, 1, all[0].SeatCategories["VIP"].Available, "live count while open")
	assert.Equal(t, model.SaleOnSale, all[0].Sale.SaleState)

	theatres, err := h.engine.ListEvents(ctx, model.CategoryTheatre)
	require.NoError(t, err)
	require.Len(t, theatres, 1)
	assert.Equal(t, "T1", theatres[0].ID)

	_, err = h.engine.GetEvent(ctx, "E404")
	assert.ErrorIs(t, err, ErrEventNotFound)

	tickets, err := h.engine.ListUserPurchases(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Derby E1", tickets[0].EventTitle)
	assert.Equal(t, "Azadi Stadium", tickets[0].Venue)
}

func TestErrorFormatting(t *testing.T) {
	err := fail("purchase", "E1", "VIP", ErrPersistenceFailure, errStoreDown)
	assert.Equal(t, "sale: purchase event=E1 category=VIP: persistence failure: store unavailable", err.Error())
	assert.Equal(t, ErrPersistenceFailure, Kind(err))
	assert.Nil(t, Kind(errStoreDown))
	assert.False(t, errors.Is(err, ErrSaleNotActive))
}
