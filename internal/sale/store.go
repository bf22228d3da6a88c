package sale

import (
	"context"
	"time"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// Store is the persistence collaborator.  Missing events and purchases
// are reported with model.ErrNotFound.
type Store interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error
	CreatePurchase(ctx context.Context, p model.Purchase) (model.Purchase, error)
	ListPurchases(ctx context.Context, eventID string) ([]model.Purchase, error)
	ListPurchasesByUser(ctx context.Context, userID string) ([]model.Purchase, error)
	DeletePurchase(ctx context.Context, id string) error
}

// Publisher announces committed purchases and persisted transitions.
// Failures are logged by the caller and never fail the operation.
type Publisher interface {
	PurchaseConfirmed(ctx context.Context, p model.Purchase) error
	SaleStateChanged(ctx context.Context, eventID string, from, to model.SaleState, at time.Time) error
}

type nopPublisher struct{}

func (nopPublisher) PurchaseConfirmed(context.Context, model.Purchase) error { return nil }
func (nopPublisher) SaleStateChanged(context.Context, string, model.SaleState, model.SaleState, time.Time) error {
	return nil
}

// Timing configures the lifecycle timers.
type Timing struct {
	Interval       time.Duration
	CountdownTicks int
	SellOutTicks   int
}

// DefaultTiming is a 5 second countdown followed by a 3 second sale
// window, ticking once per second.
var DefaultTiming = Timing{Interval: time.Second, CountdownTicks: 5, SellOutTicks: 3}

// RetryPolicy bounds the retries of lifecycle persistence writes.
type RetryPolicy struct {
	MaxAttempts uint
	Initial     time.Duration
	Max         time.Duration
}

// DefaultRetry tries four times with 100ms..1s exponential backoff.
var DefaultRetry = RetryPolicy{MaxAttempts: 4, Initial: 100 * time.Millisecond, Max: time.Second}
