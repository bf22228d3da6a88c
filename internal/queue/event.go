// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// Queue names.  Each is a durable queue on the default exchange.
const (
	PurchaseConfirmedQueue = "purchase.confirmed"
	SaleStateChangedQueue  = "sale.state_changed"
)

// PurchaseConfirmedEvent is published after a purchase commits.  It
// carries enough for downstream consumers to log, notify or feed
// analytics without querying the primary store.
type PurchaseConfirmedEvent struct {
	PurchaseID      string `json:"purchase_id"`
	EventID         string `json:"event_id"`
	UserID          string `json:"user_id"`
	Category        string `json:"category"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
	PurchasedAt     string `json:"purchased_at"`
}

// SaleStateChangedEvent is published after a lifecycle transition has
// been persisted.
type SaleStateChangedEvent struct {
	EventID   string `json:"event_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedAt string `json:"changed_at"`
}

func newPurchaseConfirmed(p model.Purchase) PurchaseConfirmedEvent {
	return PurchaseConfirmedEvent{
		PurchaseID:      p.ID,
		EventID:         p.EventID,
		UserID:          p.UserID,
		Category:        p.Category,
		Quantity:        p.Quantity,
		UnitPriceCents:  p.UnitPriceCents,
		TotalPriceCents: p.TotalPriceCents,
		PurchasedAt:     p.PurchasedAt.UTC().Format(time.RFC3339),
	}
}

func newSaleStateChanged(eventID string, from, to model.SaleState, at time.Time) SaleStateChangedEvent {
	return SaleStateChangedEvent{
		EventID:   eventID,
		From:      string(from),
		To:        string(to),
		ChangedAt: at.UTC().Format(time.RFC3339),
	}
}
