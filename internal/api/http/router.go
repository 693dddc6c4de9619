package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Admins         *handlers.AdminsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Every protected route runs the token
// middleware and then its guard chain; services re-check the same guards.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/login/user", cfg.Auth.LoginUser)
	authGroup.Post("/login/admin", cfg.Auth.LoginAdmin)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.Require(), cfg.Auth.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", auth.Require(auth.UserOnly), cfg.Tickets.Create)
	tickets.Get("/", auth.Require(), cfg.Tickets.List)
	tickets.Get("/:id", auth.Require(), cfg.Tickets.Get)
	tickets.Put("/:id", auth.Require(auth.RoleIn(auth.SeniorOrSub...)), cfg.Tickets.Update)
	tickets.Get("/:id/history", auth.Require(auth.AdminOnly), cfg.Tickets.History)
	tickets.Get("/:id/attachments/:attachmentID", auth.Require(), cfg.Tickets.Download)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Post("/", auth.Require(auth.AdminOnly), cfg.Users.Create)

	admins := app.Group("/admins", cfg.AuthMiddleware.Handle)
	admins.Get("/dashboard/stats", auth.Require(auth.AdminOnly), cfg.Admins.Dashboard)
	admins.Get("/users", auth.Require(auth.AdminOnly), cfg.Admins.ListUsers)
	admins.Put("/users/:id/approve", auth.Require(auth.RoleIn(auth.SeniorOnly...)), cfg.Admins.ApproveUser)
	admins.Post("/", auth.Require(auth.RoleIn(auth.SeniorOnly...)), cfg.Admins.Create)
	admins.Get("/", auth.Require(auth.AdminOnly), cfg.Admins.List)
	admins.Put("/:id/approve", auth.Require(auth.RoleIn(auth.SeniorOnly...)), cfg.Admins.ApproveAdmin)
}
