package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OperatorHandler drives sale lifecycles.  Routes are protected by the
// OPERATOR role.
type OperatorHandler struct {
	Sales SaleService
}

// NewOperatorHandler panics if svc is nil.
func NewOperatorHandler(svc SaleService) *OperatorHandler {
	if svc == nil {
		panic("nil sale service passed to NewOperatorHandler")
	}
	return &OperatorHandler{Sales: svc}
}

// StartSale handles POST /v1/events/:id/sale/start.  Starting a sale
// that is already counting down, open or sold out is a no-op and still
// answers 200 with the current view.
func (h *OperatorHandler) StartSale(c echo.Context) error {
	v, err := h.Sales.StartSale(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// ResetSale handles POST /v1/events/:id/sale/reset.
func (h *OperatorHandler) ResetSale(c echo.Context) error {
	v, err := h.Sales.ResetSale(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
