package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_TickDeliversToLiveTickers(t *testing.T) {
	start := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	clk := NewFake(start)
	tk := clk.NewTicker(time.Second)

	got := make(chan time.Time, 1)
	go func() { got <- <-tk.C() }()

	clk.Tick()
	select {
	case ts := <-got:
		assert.Equal(t, start.Add(time.Second), ts)
	case <-time.After(time.Second):
		t.Fatal("tick not delivered")
	}
	assert.Equal(t, start.Add(time.Second), clk.Now())
}

func TestFake_TickSkipsStoppedTickers(t *testing.T) {
	clk := NewFake(time.Now())
	tk := clk.NewTicker(time.Second)
	require.Equal(t, 1, clk.Tickers())

	tk.Stop()
	tk.Stop()
	assert.Equal(t, 0, clk.Tickers())

	done := make(chan struct{})
	go func() {
		clk.Tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Tick blocked on a stopped ticker")
	}
}

func TestSystemClock_NowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
