package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven clock.  Tickers created from it never fire
// on their own; Tick delivers one tick to every live ticker.
//
// Tick channels are unbuffered, so Tick returns only after each
// receiver has taken its tick.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*fakeTicker]struct{}
}

// NewFake returns a fake clock positioned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t.UTC(), tickers: make(map[*fakeTicker]struct{})}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	t := &fakeTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
		period:  d,
		owner:   f,
	}
	f.mu.Lock()
	f.tickers[t] = struct{}{}
	f.mu.Unlock()
	return t
}

// Tick advances the clock by each ticker's period and delivers one tick
// to every live ticker.  It blocks until every ticker has either
// received its tick or been stopped.
func (f *Fake) Tick() {
	f.mu.Lock()
	live := make([]*fakeTicker, 0, len(f.tickers))
	var step time.Duration
	for t := range f.tickers {
		live = append(live, t)
		if step == 0 || t.period < step {
			step = t.period
		}
	}
	f.now = f.now.Add(step)
	now := f.now
	f.mu.Unlock()

	for _, t := range live {
		select {
		case t.c <- now:
		case <-t.stopped:
		}
	}
}

// Tickers returns the number of live tickers.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

type fakeTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
	period  time.Duration
	owner   *Fake
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.once.Do(func() {
		t.owner.mu.Lock()
		delete(t.owner.tickers, t)
		t.owner.mu.Unlock()
		close(t.stopped)
	})
}
