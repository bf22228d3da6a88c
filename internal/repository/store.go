package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// MySQLStore is the sale engine's persistence store backed by MySQL.
type MySQLStore struct {
	Events    *EventRepo
	Purchases *PurchaseRepo
}

// NewMySQLStore builds the store on db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{Events: NewEventRepo(db), Purchases: NewPurchaseRepo(db)}
}

func (s *MySQLStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return s.Events.GetByID(ctx, id)
}

func (s *MySQLStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.Events.List(ctx)
}

func (s *MySQLStore) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error {
	return s.Events.Update(ctx, id, patch)
}

func (s *MySQLStore) CreateEventIfMissing(ctx context.Context, ev model.Event) (bool, error) {
	return s.Events.CreateIfMissing(ctx, ev)
}

func (s *MySQLStore) CreatePurchase(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	return s.Purchases.Create(ctx, p)
}

func (s *MySQLStore) ListPurchases(ctx context.Context, eventID string) ([]model.Purchase, error) {
	return s.Purchases.ListByEvent(ctx, eventID)
}

func (s *MySQLStore) ListPurchasesByUser(ctx context.Context, userID string) ([]model.Purchase, error) {
	return s.Purchases.ListByUser(ctx, userID)
}

func (s *MySQLStore) DeletePurchase(ctx context.Context, id string) error {
	return s.Purchases.Delete(ctx, id)
}
