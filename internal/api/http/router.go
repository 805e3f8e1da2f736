package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Complaints     *handlers.ComplaintsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(cfg.Metrics.Snapshot())
	})

	authenticate := cfg.AuthMiddleware.Handle

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", authenticate, cfg.Auth.Logout)

	admin := app.Group("/admin", authenticate, auth.RequireAdmin())
	admin.Put("/promote/:id", cfg.Admin.Promote)
	admin.Put("/demote/:id", cfg.Admin.Demote)

	complaints := app.Group("/complaint", authenticate)
	complaints.Post("/create", cfg.Complaints.Create)
	complaints.Put("/update/:id", cfg.Complaints.Update)
	complaints.Delete("/delete/:id", cfg.Complaints.Delete)
	complaints.Get("/user", cfg.Complaints.ListMine)
	complaints.Get("/all", auth.RequireAdmin(), cfg.Complaints.ListAll)
	complaints.Get("/:id", cfg.Complaints.Get)

	users := app.Group("/users", authenticate)
	users.Get("/", auth.RequireAdmin(), cfg.Users.List)
	users.Get("/me", cfg.Users.Me)
	users.Get("/:id", auth.RequireAdmin(), cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
}
