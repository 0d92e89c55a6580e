// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/handler"
	"github.com/barberbook/barbershop-api/internal/middleware"
	"github.com/barberbook/barbershop-api/internal/model"
)

// RegisterRoutes registers routes that do not belong to the API surface.
// Currently it exposes only a health check for load balancers and
// monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the full /api/v1 surface.  Token endpoints and
// browsing are public; everything else sits behind the JWT middleware built
// from the token validator.  tokenLimit throttles the token endpoints and
// browseCache fronts the public catalogue; pass the disabled variants to
// turn either off.
func RegisterAPI(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler,
	b *handler.BarbershopHandler, ap *handler.AppointmentHandler, v *auth.Validator,
	tokenLimit, browseCache echo.MiddlewareFunc) {

	// Token lifecycle. The blacklist route keeps its historical /logout/
	// alias.
	tok := e.Group("/api/v1/auth/token", tokenLimit)
	tok.POST("/", a.Obtain)
	tok.POST("/refresh/", a.Refresh)
	tok.POST("/verify/", a.Verify)
	tok.POST("/blacklist/", a.Logout)
	tok.POST("/logout/", a.Logout)

	// Public: registration and barbershop browsing.
	e.POST("/api/v1/users", u.Create)
	e.GET("/api/v1/barbershops", b.List, browseCache)
	e.GET("/api/v1/barbershops/:id", b.Retrieve, browseCache)
	e.GET("/api/v1/barbershops/:id/services", b.ListServices, browseCache)

	// Authenticated surface.
	g := e.Group("/api/v1", middleware.JWTAuth(v))

	g.GET("/users", u.List)
	g.POST("/users/bulk_delete", u.BulkDelete, middleware.RequireRole(model.RoleAdmin))
	g.GET("/users/:id", u.Retrieve)
	g.PUT("/users/:id", u.Update)
	g.PATCH("/users/:id", u.Update)
	g.DELETE("/users/:id", u.Destroy)
	g.POST("/users/:id/change_password", u.ChangePassword)

	g.POST("/barbershops", b.Create)
	g.PUT("/barbershops/:id", b.Update)
	g.DELETE("/barbershops/:id", b.Delete)
	g.POST("/barbershops/:id/services", b.CreateService)
	g.PUT("/services/:id", b.UpdateService)
	g.DELETE("/services/:id", b.DeleteService)

	g.GET("/appointments", ap.List)
	g.POST("/appointments", ap.Create)
	g.GET("/appointments/:id", ap.Retrieve)
	g.PATCH("/appointments/:id", ap.UpdateStatus)
	g.DELETE("/appointments/:id", ap.Delete)
}
