package model

import "time"

// PurchaseStatus is the state of a purchase.  The engine only ever
// produces CONFIRMED purchases.
type PurchaseStatus string

const PurchaseConfirmed PurchaseStatus = "CONFIRMED"

// Purchase records a buyer's tickets for one seat tier of an event.
// It is immutable once created; the only deletion path is an event
// reset, which removes every purchase of that event.
//
// Fields:
//  ID              – primary key (purchases.id, UUID).
//  EventID         – owning event.
//  UserID          – buyer identity from the session provider.
//  Category        – seat tier label.
//  Quantity        – number of seats, 1..4.
//  UnitPriceCents  – price captured when the seats were taken.
//  TotalPriceCents – UnitPriceCents * Quantity.
//  PurchasedAt     – UTC creation time.
type Purchase struct {
	ID              string         `json:"id"`
	EventID         string         `json:"event_id"`
	UserID          string         `json:"user_id"`
	Category        string         `json:"category"`
	Quantity        int            `json:"quantity"`
	UnitPriceCents  int64          `json:"unit_price_cents"`
	TotalPriceCents int64          `json:"total_price_cents"`
	PurchasedAt     time.Time      `json:"purchased_at"`
	Status          PurchaseStatus `json:"status"`
}
