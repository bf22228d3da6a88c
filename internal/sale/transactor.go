package sale

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/clock"
	"github.com/iliyamo/ticket-sale/internal/inventory"
	"github.com/iliyamo/ticket-sale/internal/model"
)

const (
	minQuantity = 1
	maxQuantity = 4
)

var tracer = otel.Tracer("github.com/iliyamo/ticket-sale/internal/sale")

// PurchaseRequest is a buyer's order for seats of one category.
type PurchaseRequest struct {
	EventID  string
	UserID   string
	Category string
	Quantity int
}

// Transactor turns purchase requests into confirmed purchases.  The
// seat decrement and the purchase record form one unit: if the record
// cannot be stored the seats are returned.
type Transactor struct {
	store     Store
	inv       *inventory.Model
	clock     clock.Clock
	pub       Publisher
	log       *zap.Logger
	exhausted func(eventID string)
}

// NewTransactor wires a transactor.  exhausted is called, without
// blocking, whenever a purchase takes the last seat of a category.
func NewTransactor(store Store, inv *inventory.Model, clk clock.Clock, pub Publisher, log *zap.Logger, exhausted func(string)) *Transactor {
	if pub == nil {
		pub = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if exhausted == nil {
		exhausted = func(string) {}
	}
	return &Transactor{
		store:     store,
		inv:       inv,
		clock:     clk,
		pub:       pub,
		log:       log.With(zap.String("component", "transactor")),
		exhausted: exhausted,
	}
}

// Purchase validates req and, if seats are available, commits a
// purchase at the price captured together with the seats.
func (t *Transactor) Purchase(ctx context.Context, req PurchaseRequest) (p model.Purchase, err error) {
	ctx, span := tracer.Start(ctx, "sale.Purchase", trace.WithAttributes(
		attribute.String("event.id", req.EventID),
		attribute.String("seat.category", req.Category),
		attribute.Int("quantity", req.Quantity),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	const op = "purchase"
	if req.Quantity < minQuantity || req.Quantity > maxQuantity {
		return model.Purchase{}, fail(op, req.EventID, req.Category, ErrInvalidQuantity, nil)
	}

	ev, err := t.store.GetEvent(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Purchase{}, fail(op, req.EventID, "", ErrEventNotFound, err)
		}
		return model.Purchase{}, fail(op, req.EventID, "", ErrPersistenceFailure, err)
	}
	if ev.SaleState != model.SaleOnSale {
		return model.Purchase{}, fail(op, req.EventID, "", ErrSaleNotActive, nil)
	}
	if _, ok := ev.SeatCategories[req.Category]; !ok {
		return model.Purchase{}, fail(op, req.EventID, req.Category, ErrUnknownCategory, nil)
	}

	res, err := t.inv.Reserve(ctx, req.EventID, req.Category, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrSaleClosed):
			return model.Purchase{}, fail(op, req.EventID, req.Category, ErrSaleNotActive, nil)
		case errors.Is(err, inventory.ErrUnknownCategory):
			return model.Purchase{}, fail(op, req.EventID, req.Category, ErrUnknownCategory, nil)
		case errors.Is(err, inventory.ErrInsufficient):
			return model.Purchase{}, fail(op, req.EventID, req.Category, ErrInsufficientInventory, nil)
		}
		return model.Purchase{}, fail(op, req.EventID, req.Category, ErrPersistenceFailure, err)
	}

	p = model.Purchase{
		ID:              uuid.NewString(),
		EventID:         req.EventID,
		UserID:          req.UserID,
		Category:        req.Category,
		Quantity:        req.Quantity,
		UnitPriceCents:  res.UnitPriceCents,
		TotalPriceCents: res.UnitPriceCents * int64(req.Quantity),
		PurchasedAt:     t.clock.Now(),
		Status:          model.PurchaseConfirmed,
	}
	created, err := t.store.CreatePurchase(ctx, p)
	if err != nil {
		if rbErr := res.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			t.log.Error("seat rollback failed; inventory understated",
				zap.String("event_id", req.EventID),
				zap.String("category", req.Category),
				zap.Int("quantity", req.Quantity),
				zap.Error(rbErr))
		}
		return model.Purchase{}, fail(op, req.EventID, req.Category, ErrPersistenceFailure, err)
	}
	res.Commit()

	if res.Remaining == 0 {
		t.exhausted(req.EventID)
	}
	t.log.Info("purchase confirmed",
		zap.String("event_id", created.EventID),
		zap.String("purchase_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("category", created.Category),
		zap.Int("quantity", created.Quantity),
		zap.Int("remaining", res.Remaining))
	if err := t.pub.PurchaseConfirmed(ctx, created); err != nil {
		t.log.Warn("publish purchase.confirmed failed", zap.String("purchase_id", created.ID), zap.Error(err))
	}
	return created, nil
}
