package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sale/internal/handler"
	"github.com/iliyamo/ticket-sale/internal/middleware"
	"github.com/iliyamo/ticket-sale/internal/session"
)

// RegisterBuyer registers buyer-scoped endpoints under /v1.  All routes
// require a valid JWT and the BUYER role.  limit guards the purchase
// endpoint only; pass nil to leave it unthrottled.
func RegisterBuyer(e *echo.Echo, h *handler.BuyerHandler, v middleware.Verifier, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(v),
		middleware.RequireRole(session.RoleBuyer),
	)
	var mw []echo.MiddlewareFunc
	if limit != nil {
		mw = append(mw, limit)
	}
	g.POST("/events/:id/purchases", h.Purchase, mw...)
	g.GET("/my-purchases", h.MyPurchases)
}
