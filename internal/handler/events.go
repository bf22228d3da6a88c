package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// EventHandler serves the public browse endpoints.  No authentication
// is required.
type EventHandler struct {
	Sales SaleService
}

// NewEventHandler panics if svc is nil.
func NewEventHandler(svc SaleService) *EventHandler {
	if svc == nil {
		panic("nil sale service passed to NewEventHandler")
	}
	return &EventHandler{Sales: svc}
}

// ListEvents handles GET /v1/events.  The optional ?category= filter
// accepts concert, sports or theatre.
func (h *EventHandler) ListEvents(c echo.Context) error {
	category := model.EventCategory(strings.ToLower(strings.TrimSpace(c.QueryParam("category"))))
	if category != "" && !category.Valid() {
		return badRequest(c, "category must be one of concert, sports, theatre")
	}
	events, err := h.Sales.ListEvents(c.Request().Context(), category)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	ev, err := h.Sales.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// GetSale handles GET /v1/events/:id/sale and returns the lifecycle
// snapshot with any running countdown.
func (h *EventHandler) GetSale(c echo.Context) error {
	v, err := h.Sales.ViewState(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
