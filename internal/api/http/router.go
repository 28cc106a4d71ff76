package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexus-vita/session-service/internal/api/http/handlers"
	"github.com/nexus-vita/session-service/internal/api/http/session"
	"github.com/nexus-vita/session-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Accounts *handlers.AccountsHandler
	Session  *session.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/accounts", cfg.Accounts.Register)
	app.Post("/sessions", cfg.Accounts.Login)
	app.Delete("/sessions", cfg.Accounts.Logout)

	app.Get("/sessions/me", cfg.Session.Authenticated(), cfg.Accounts.Me)

	app.Get("/accounts/:id",
		cfg.Session.RequireSelfOrRole("id", domain.RoleAdmin),
		cfg.Accounts.Get)

	admin := app.Group("/admin", cfg.Session.RequireRole(domain.RoleAdmin))
	admin.Get("/accounts", cfg.Accounts.ListByRole)
}
