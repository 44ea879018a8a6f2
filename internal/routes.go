package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"inkwell/internal/http"
	"inkwell/internal/http/middleware"
	"inkwell/internal/users"
)

// publicCORSConfig is the CORS configuration for public endpoints.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountAppRoutes mounts all application routes.
func MountAppRoutes(app *fiber.App, h *http.Handlers, deps Dependencies) {
	adminOnly := middleware.RequireRole(deps.Provider, deps.Logger, users.RoleAdmin)

	// === ROOT ROUTES ===
	app.Get("/_health", h.HealthIndexAction)
	app.Head("/_health", h.HealthIndexAction)

	// === PUBLIC CONTENT API ===
	public := app.Group("/api", cors.New(publicCORSConfig))
	public.Get("/posts", h.PostsIndexAction)
	public.Get("/posts/:slug", h.PostShowAction)
	public.Post("/posts/:slug/view", h.PostViewAction)
	public.Get("/categories", h.CategoriesIndexAction)

	// === IDENTITY WEBHOOK ===
	// Signature verification happens upstream; the payload arrives trusted.
	app.Post("/api/webhooks/identity", h.IdentityWebhookAction)

	// === ADMIN DASHBOARD ===
	dashboard := app.Group("/api/dashboard", adminOnly)
	dashboard.Get("/posts", h.DashboardPostsAction)
	dashboard.Get("/total-views", h.DashboardTotalViewsAction)
	dashboard.Get("/ratings", h.DashboardRatingsAction)
	dashboard.Get("/comments", h.DashboardCommentsAction)
	dashboard.Get("/users", h.DashboardUsersAction)
	dashboard.Get("/efficiency", h.DashboardEfficiencyAction)
	dashboard.Get("/popular-categories", h.DashboardPopularCategoriesAction)
	dashboard.Get("/popular-posts", h.DashboardPopularPostsAction)
	dashboard.Get("/views-by-country", h.DashboardViewsByCountryAction)

	// === ADMIN USER MANAGEMENT ===
	admin := app.Group("/api/admin", adminOnly)
	admin.Get("/users", h.UsersIndexAction)
	admin.Post("/users", h.UserCreateAction)
	admin.Patch("/users/:id/role", h.UserRoleUpdateAction)
	admin.Delete("/users/:id", h.UserDeleteAction)
}
