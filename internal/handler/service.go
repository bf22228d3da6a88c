package handler

import (
	"context"

	"github.com/iliyamo/ticket-sale/internal/model"
	"github.com/iliyamo/ticket-sale/internal/sale"
)

// SaleService is the part of the sale engine the HTTP layer uses.
type SaleService interface {
	StartSale(ctx context.Context, eventID string) (sale.View, error)
	ResetSale(ctx context.Context, eventID string) (sale.View, error)
	ViewState(ctx context.Context, eventID string) (sale.View, error)
	Purchase(ctx context.Context, eventID, userID, category string, quantity int) (model.Purchase, error)
	ListEvents(ctx context.Context, category model.EventCategory) ([]sale.EventView, error)
	GetEvent(ctx context.Context, id string) (sale.EventView, error)
	ListUserPurchases(ctx context.Context, userID string) ([]sale.Ticket, error)
}
