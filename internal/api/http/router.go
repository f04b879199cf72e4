package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-requests/internal/api/http/handlers"
	"github.com/spec-kit/municipal-requests/internal/auth"
	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Public         *handlers.PublicHandler
	Admin          *handlers.AdminHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	PublicLimiter  *ratelimit.Limiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	public := app.Group("/public")
	public.Get("/districts", cfg.Public.ListDistricts)
	public.Get("/requests/:code", cfg.Public.TrackRequest)
	public.Post("/requests", cfg.PublicLimiter.Middleware("submit"), cfg.Public.SubmitRequest)
	public.Post("/requests/:code/message", cfg.PublicLimiter.Middleware("message"), cfg.Public.AddMessage)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRoles(auth.AdminRoles...))
	admin.Get("/requests", cfg.Admin.ListRequests)
	admin.Get("/requests/:id", cfg.Admin.GetRequest)
	admin.Post("/requests/:id/status", cfg.Admin.UpdateStatus)
	admin.Post("/requests/:id/notes", cfg.Admin.AddNote)
	admin.Get("/reports/sla", cfg.Reports.SLACompliance)

	// Assignment and manual priority overrides stay with admins.
	adminOnly := auth.RequireRoles(domain.RoleDistrictAdmin, domain.RoleMunicipalAdmin)
	admin.Post("/requests/:id/assign", adminOnly, cfg.Admin.AssignStaff)
	admin.Post("/requests/:id/priority", adminOnly, cfg.Admin.UpdatePriority)
}
