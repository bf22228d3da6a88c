package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sale/internal/handler"
	"github.com/iliyamo/ticket-sale/internal/middleware"
	"github.com/iliyamo/ticket-sale/internal/session"
)

// RegisterOperator registers the sale lifecycle endpoints under /v1.  All
// routes require a valid JWT and the OPERATOR role.
func RegisterOperator(e *echo.Echo, h *handler.OperatorHandler, v middleware.Verifier) {
	g := e.Group(
		"/v1/events/:id/sale",
		middleware.JWTAuth(v),
		middleware.RequireRole(session.RoleOperator),
	)
	g.POST("/start", h.StartSale)
	g.POST("/reset", h.ResetSale)
}
