package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/guard"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Profile        *handlers.ProfileHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/verify", cfg.Auth.Verify)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, guard.Require(guard.Authenticated), cfg.Auth.Logout)

	profile := app.Group("/profile", cfg.AuthMiddleware.Handle, guard.Require(guard.Authenticated))
	profile.Get("/", cfg.Profile.Get)
	profile.Put("/", cfg.Profile.Save)

	complaints := app.Group("/complaints", cfg.AuthMiddleware.Handle)
	complaints.Post("/", guard.Require(guard.AuthenticatedCitizen), cfg.Complaints.Create)
	complaints.Get("/", guard.Require(guard.AuthenticatedCitizen), cfg.Complaints.List)
	// registered before /:id so the literal segment wins
	complaints.Get("/track/:reference", guard.Require(guard.Authenticated), cfg.Complaints.Track)
	complaints.Get("/:id", guard.Require(guard.Authenticated), cfg.Complaints.Get)
	complaints.Patch("/:id", guard.Require(guard.AuthenticatedCitizen), cfg.Complaints.Update)
	complaints.Delete("/:id", guard.Require(guard.AuthenticatedCitizen), cfg.Complaints.Delete)
	complaints.Post("/:id/response/read", guard.Require(guard.AuthenticatedCitizen), cfg.Complaints.MarkResponseRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, guard.Require(guard.AuthenticatedAdmin))
	admin.Get("/complaints", cfg.Admin.ListComplaints)
	admin.Get("/complaints/:id", cfg.Admin.GetComplaint)
	admin.Patch("/complaints/:id/status", cfg.Admin.UpdateStatus)
	admin.Patch("/complaints/:id/response", cfg.Admin.AttachResponse)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Put("/users/:id/status", cfg.Admin.UpdateUserStatus)
}
