// Package seed loads the initial event catalogue from YAML and inserts
// the events a store does not have yet.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/model"
)

//go:embed events.yaml
var defaultEvents []byte

// entry is one event as written in the seed file.
type entry struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Category    string             `yaml:"category"`
	Date        time.Time          `yaml:"date"`
	Venue       string             `yaml:"venue"`
	ImageURL    string             `yaml:"image_url"`
	Prices      map[string]float64 `yaml:"prices"`
}

// Creator inserts an event unless one with the same id exists.
type Creator interface {
	CreateEventIfMissing(ctx context.Context, ev model.Event) (bool, error)
}

// Load reads the seed file at path, or the embedded catalogue when path
// is empty.
func Load(path string) ([]model.Event, error) {
	if path == "" {
		return Parse(defaultEvents)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML event list.  Every event starts NotStarted with
// each tier at the capacity its category schedules.
func Parse(data []byte) ([]model.Event, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	out := make([]model.Event, 0, len(entries))
	for i, e := range entries {
		ev, err := e.event()
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if seen[ev.ID] {
			return nil, fmt.Errorf("seed entry %d: duplicate id %q", i, ev.ID)
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out, nil
}

func (e entry) event() (model.Event, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return model.Event{}, errors.New("id is required")
	}
	category := model.EventCategory(strings.ToLower(e.Category))
	if !category.Valid() {
		return model.Event{}, fmt.Errorf("event %s: invalid category %q", id, e.Category)
	}
	if len(e.Prices) == 0 {
		return model.Event{}, fmt.Errorf("event %s: no prices", id)
	}
	seats := make(map[string]model.SeatCategory, len(e.Prices))
	for tier, price := range e.Prices {
		tier = strings.ToUpper(tier)
		capacity := inventory.CapacityFor(category, tier)
		if capacity == 0 {
			return model.Event{}, fmt.Errorf("event %s: tier %s has no capacity", id, tier)
		}
		cents := int64(math.Round(price * 100))
		if cents <= 0 {
			return model.Event{}, fmt.Errorf("event %s: tier %s price must be positive", id, tier)
		}
		seats[tier] = model.SeatCategory{PriceCents: cents, Available: capacity}
	}
	return model.Event{
		ID:             id,
		Title:          e.Title,
		Description:    e.Description,
		Venue:          e.Venue,
		ImageURL:       e.ImageURL,
		Date:           e.Date.UTC(),
		Category:       category,
		SeatCategories: seats,
		SaleState:      model.SaleNotStarted,
	}, nil
}

// Apply inserts the events c does not already have and returns how many
// were created.  Existing events keep their state and seats.
func Apply(ctx context.Context, c Creator, events []model.Event, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	created := 0
	for _, ev := range events {
		ok, err := c.CreateEventIfMissing(ctx, ev)
		if err != nil {
			return created, fmt.Errorf("seed event %s: %w", ev.ID, err)
		}
		if ok {
			created++
			log.Info("seeded event", zap.String("event_id", ev.ID), zap.String("category", string(ev.Category)))
		}
	}
	return created, nil
}
