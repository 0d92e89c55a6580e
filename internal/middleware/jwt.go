// Package middleware provides shared request processing: bearer token
// authentication, role enforcement and API usage tracking.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/auth"
)

const identityKey = "identity"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// through the token validator and stores the resulting identity in the
// request context.  Handlers read it back with IdentityFrom.
func JWTAuth(v *auth.Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Authentication credentials were not provided."})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, reason, err := v.Validate(c.Request().Context(), raw, auth.TypeAccess)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "A server error occurred."})
			}
			if reason != auth.ReasonNone {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Token is invalid or expired"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Token is invalid or expired"})
			}

			c.Set(identityKey, auth.Identity{UserID: uid, Role: claims.Role})
			return next(c)
		}
	}
}

// IdentityFrom extracts the authenticated identity stored by JWTAuth.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}
