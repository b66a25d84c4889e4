package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ispdesk/routing-service/internal/api/http/handlers"
	"github.com/ispdesk/routing-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Transfers      *handlers.TransfersHandler
	Inbox          *handlers.InboxHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protected.Post("/auth/password/change", cfg.Staff.ChangePassword)

	protected.Get("/inbox", cfg.Inbox.List)
	protected.Get("/inbox/unread-count", cfg.Inbox.UnreadCount)
	protected.Post("/inbox/:id/read", cfg.Inbox.MarkRead)

	protected.Post("/transfers", cfg.Transfers.Execute)
	protected.Post("/transfers/:id/rollback", cfg.Transfers.Rollback)
	protected.Get("/transfers/options", cfg.Transfers.Options)
	protected.Post("/assignments", cfg.Transfers.Assign)
	protected.Get("/tickets/:kind/:id/history", cfg.Transfers.History)
}
