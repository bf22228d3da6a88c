// Package inventory holds per-event seat counts and the atomic
// operations the sale engine performs on them.
package inventory

import "github.com/iliyamo/ticket-sale/internal/model"

// baseSchedule is the sports capacity per tier; every other event
// category doubles it.
var baseSchedule = map[string]int{
	"VIP":  500,
	"CAT1": 1000,
	"CAT2": 1500,
	"CAT3": 2000,
}

// Capacities returns the fixed seat schedule for an event category.
func Capacities(category model.EventCategory) map[string]int {
	mult := 2
	if category == model.CategorySports {
		mult = 1
	}
	out := make(map[string]int, len(baseSchedule))
	for tier, n := range baseSchedule {
		out[tier] = n * mult
	}
	return out
}

// CapacityFor returns the capacity of one tier.  Tiers outside the
// schedule have no capacity.
func CapacityFor(category model.EventCategory, tier string) int {
	return Capacities(category)[tier]
}

// capacitiesOf restores the schedule for the tiers an event actually
// sells.
func capacitiesOf(ev model.Event) map[string]int {
	out := make(map[string]int, len(ev.SeatCategories))
	for tier := range ev.SeatCategories {
		out[tier] = CapacityFor(ev.Category, tier)
	}
	return out
}
