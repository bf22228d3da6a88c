package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/ticket-sale/internal/model"
	"github.com/iliyamo/ticket-sale/internal/repository"
)

func TestLoadDefault(t *testing.T) {
	events, err := Load("")
	require.NoError(t, err)
	require.Len(t, events, 3)

	byID := map[string]model.Event{}
	for _, ev := range events {
		assert.Equal(t, model.SaleNotStarted, ev.SaleState)
		byID[ev.ID] = ev
	}
	sports := byID["evt-jdt-sel"]
	assert.Equal(t, model.CategorySports, sports.Category)
	assert.Equal(t, model.SeatCategory{PriceCents: 15000, Available: 500}, sports.SeatCategories["VIP"])
	assert.Equal(t, 4000, byID["evt-coldplay-kl"].SeatCategories["CAT3"].Available)
	assert.Len(t, byID["evt-phantom-kl"].SeatCategories, 3)
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := map[string]string{
		"missing id":   "- title: x\n  category: concert\n  prices: {VIP: 1}\n",
		"bad category": "- id: a\n  category: opera\n  prices: {VIP: 1}\n",
		"no prices":    "- id: a\n  category: concert\n",
		"unknown tier": "- id: a\n  category: concert\n  prices: {GOLD: 10}\n",
		"zero price":   "- id: a\n  category: concert\n  prices: {VIP: 0}\n",
		"duplicate":    "- id: a\n  category: concert\n  prices: {VIP: 1}\n- id: a\n  category: sports\n  prices: {VIP: 1}\n",
		"not a list":   "id: a\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	doc := "- id: e1\n  title: Quiz Night\n  category: Theatre\n  date: 2026-11-01T18:00:00Z\n  prices:\n    vip: 9.99\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	events, err := Load(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.CategoryTheatre, events[0].Category)
	assert.Equal(t, int64(999), events[0].SeatCategories["VIP"].PriceCents)
	assert.Equal(t, 1000, events[0].SeatCategories["VIP"].Available)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	events, err := Load("")
	require.NoError(t, err)

	n, err := Apply(ctx, store, events, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	state := model.SaleSoldOut
	require.NoError(t, store.UpdateEvent(ctx, "evt-jdt-sel", model.EventPatch{SaleState: &state}))

	n, err = Apply(ctx, store, events, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	ev, err := store.GetEvent(ctx, "evt-jdt-sel")
	require.NoError(t, err)
	assert.Equal(t, model.SaleSoldOut, ev.SaleState)
}
