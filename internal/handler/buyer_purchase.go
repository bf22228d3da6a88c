package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sale/internal/session"
)

// BuyerHandler places purchases and lists a buyer's tickets.  The
// acting user comes from the session provider; the handler never reads
// tokens itself.
type BuyerHandler struct {
	Sales    SaleService
	Sessions session.Provider
}

// NewBuyerHandler panics if a dependency is nil.
func NewBuyerHandler(svc SaleService, sessions session.Provider) *BuyerHandler {
	if svc == nil || sessions == nil {
		panic("nil dependency passed to NewBuyerHandler")
	}
	return &BuyerHandler{Sales: svc, Sessions: sessions}
}

type purchaseRequest struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// Purchase handles POST /v1/events/:id/purchases with a JSON body
// {"category": "VIP", "quantity": 2}.  It answers 201 with the
// confirmed purchase.
func (h *BuyerHandler) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := h.Sessions.CurrentUserID(ctx)
	if err != nil {
		return writeError(c, err)
	}
	var body purchaseRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	category := strings.ToUpper(strings.TrimSpace(body.Category))
	if category == "" {
		return badRequest(c, "category is required")
	}
	p, err := h.Sales.Purchase(ctx, c.Param("id"), userID, category, body.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// MyPurchases handles GET /v1/my-purchases.
func (h *BuyerHandler) MyPurchases(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := h.Sessions.CurrentUserID(ctx)
	if err != nil {
		return writeError(c, err)
	}
	tickets, err := h.Sales.ListUserPurchases(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": tickets})
}
