package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/ticket-sale/internal/session"
)

// Verifier turns a raw bearer token into a session identity.
type Verifier interface {
	Verify(raw string) (session.Identity, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer token and
// attaches the resulting identity to the request context, where the
// session provider finds it.  user_id and role are also set on the echo
// context for the rate limiter and role checks.
func JWTAuth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthenticated"})
			}
			id, err := v.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthenticated"})
			}

			req := c.Request()
			c.SetRequest(req.WithContext(session.WithIdentity(req.Context(), id)))
			c.Set("user_id", id.UserID)
			c.Set("role", id.Role)
			return next(c)
		}
	}
}
