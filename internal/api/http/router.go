package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// Intake works without a token; a valid token attaches ownership.
	api.Post("/requests", cfg.AuthMiddleware.Optional, cfg.Requests.Create)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/my-requests", cfg.Requests.ListMine)
	protected.Get("/requests", cfg.Requests.ListAll)
	protected.Get("/requests/:id", cfg.Requests.Get)
	protected.Patch("/requests/:id/status", cfg.Requests.UpdateStatus)
	protected.Delete("/requests/:id", cfg.Requests.Delete)

	admin := protected.Group("/admin")
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/role", cfg.Admin.ChangeRole)
	admin.Get("/stats", cfg.Admin.Stats)
}
