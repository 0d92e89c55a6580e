package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated
// user holds one of the given roles.  It assumes JWTAuth ran earlier in the
// chain; a missing identity is treated like a missing role.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"detail": "You do not have permission to perform this action."})
			}
			return next(c)
		}
	}
}
