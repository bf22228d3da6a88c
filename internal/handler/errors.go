package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sale/internal/sale"
	"github.com/iliyamo/ticket-sale/internal/session"
)

// errorStatus maps an error to its HTTP status and machine-readable
// code.  Anything unrecognized is a 500.
func errorStatus(err error) (int, string) {
	if k := sale.Kind(err); k != nil {
		err = k
	}
	switch {
	case errors.Is(err, sale.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, sale.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown_category"
	case errors.Is(err, sale.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, sale.ErrSaleNotActive):
		return http.StatusConflict, "sale_not_active"
	case errors.Is(err, sale.ErrInsufficientInventory):
		return http.StatusConflict, "sold_out"
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, sale.ErrPersistenceFailure),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "persistence_failure"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err as {"error", "code"}.  Server-side failures get
// a generic message; the details go to the request log.
func writeError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if k := sale.Kind(err); k != nil {
		msg = k.Error()
	}
	if status >= http.StatusInternalServerError {
		c.Set("error", err.Error())
		msg = http.StatusText(status)
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}
