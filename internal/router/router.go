package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/ticket-sale/internal/handler" // handlers that translate HTTP to engine calls
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map GET /healthz to the Health handler for load balancers and monitors.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  Guests
// can list events, inspect one event with its seat tiers and poll the
// sale state while a countdown runs.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler) {
	e.GET("/v1/events", h.ListEvents)
	e.GET("/v1/events/:id", h.GetEvent)
	e.GET("/v1/events/:id/sale", h.GetSale)
}
