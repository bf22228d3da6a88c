package model

import "time"

// SaleState is the lifecycle position of an event's ticket sale.
type SaleState string

const (
	SaleNotStarted SaleState = "NOT_STARTED"
	SaleCountdown  SaleState = "COUNTDOWN"
	SaleOnSale     SaleState = "ON_SALE"
	SaleSoldOut    SaleState = "SOLD_OUT"
)

// Valid reports whether s is one of the known sale states.
func (s SaleState) Valid() bool {
	switch s {
	case SaleNotStarted, SaleCountdown, SaleOnSale, SaleSoldOut:
		return true
	}
	return false
}

// EventCategory classifies an event.  The category drives the seat
// capacity schedule.
type EventCategory string

const (
	CategoryConcert EventCategory = "concert"
	CategorySports  EventCategory = "sports"
	CategoryTheatre EventCategory = "theatre"
)

// Valid reports whether c is one of the known event categories.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryConcert, CategorySports, CategoryTheatre:
		return true
	}
	return false
}

// SeatCategory is a ticket tier (VIP, CAT1, ...) of an event.
//
// Fields:
//  PriceCents – unit price in cents; always positive.
//  Available  – seats left for sale; never negative.
type SeatCategory struct {
	PriceCents int64 `json:"price_cents" yaml:"price_cents"`
	Available  int   `json:"available_seats" yaml:"available_seats"`
}

// Event represents a ticketed event together with its seat inventory
// and sale state.  Title, description, venue, image and date are
// descriptive only; the sale engine never interprets them.
//
// Fields:
//  ID             – unique identifier (events.id).
//  Category       – concert, sports or theatre.
//  SeatCategories – tier label to price and remaining seats.
//  SaleState      – persisted sale flag buyers are gated on.
type Event struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description"`
	Venue          string                  `json:"venue"`
	ImageURL       string                  `json:"image_url"`
	Date           time.Time               `json:"date"`
	Category       EventCategory           `json:"category"`
	SeatCategories map[string]SeatCategory `json:"seat_categories"`
	SaleState      SaleState               `json:"sale_state"`
}

// Clone returns a deep copy of the event so callers can mutate seat
// maps without touching shared state.
func (e Event) Clone() Event {
	out := e
	out.SeatCategories = make(map[string]SeatCategory, len(e.SeatCategories))
	for k, v := range e.SeatCategories {
		out.SeatCategories[k] = v
	}
	return out
}

// Prices returns the price schedule in cents keyed by tier label.
func (e Event) Prices() map[string]int64 {
	out := make(map[string]int64, len(e.SeatCategories))
	for k, v := range e.SeatCategories {
		out[k] = v.PriceCents
	}
	return out
}

// AvailableSeats returns remaining seats keyed by tier label.
func (e Event) AvailableSeats() map[string]int {
	out := make(map[string]int, len(e.SeatCategories))
	for k, v := range e.SeatCategories {
		out[k] = v.Available
	}
	return out
}

// EventPatch is a partial update of an event.  Nil fields are left
// unchanged.  AvailableSeats only updates tiers already present on the
// event.
type EventPatch struct {
	SaleState      *SaleState
	AvailableSeats map[string]int
}

// StatePatch builds a patch that only changes the sale state.
func StatePatch(s SaleState) EventPatch { return EventPatch{SaleState: &s} }
