package routes

import (
	"loan-console/internal/adapters/http/handlers"
	"loan-console/internal/adapters/http/middleware"
	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/config"
	"loan-console/internal/core/guard"
	"loan-console/internal/core/services"
	"loan-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Dependencies are the services the routes are wired to
type Dependencies struct {
	Config   *config.Config
	Storage  repositories.StorageRepository
	Registry *services.Registry
	Auth     *services.AuthService
	LoanForm *services.LoanFormService
}

// Setup configures all routes for the console
func Setup(app *fiber.App, deps Dependencies) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.Storage, deps.Registry, deps.Config)
	authHandler := handlers.NewAuthHandler(deps.Auth)
	loanFormHandler := handlers.NewLoanFormHandler(deps.LoanForm)
	dashboardHandler := handlers.NewDashboardHandler()

	// Health check (no device, no guard)
	app.Get("/health", healthHandler.HealthCheck)

	// Every page below belongs to a device workspace
	app.Use(middleware.NoCacheHeaders(), middleware.Device(deps.Registry, deps.Config.Cookie))

	// Logout is allowed in any session state
	app.Post("/logout", authHandler.Logout)

	// Route guard runs before every page
	app.Use(middleware.RouteGuard())

	setupAuthRoutes(app, authHandler)
	setupLoanFormRoutes(app, loanFormHandler)
	setupDashboardRoutes(app, dashboardHandler)

	// Guarded paths with no page
	app.Use(func(c *fiber.Ctx) error {
		return response.NotFound(c, "Page not found")
	})
}

// setupAuthRoutes configures the login and signup forms
func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler) {
	authLimiter := middleware.AuthRateLimiter()

	router.Get(guard.RouteLogin, h.LoginPage)
	router.Post(guard.RouteLogin, authLimiter, h.Login)
	router.Get(guard.RouteSignup, h.SignupPage)
	router.Post(guard.RouteSignup, authLimiter, h.Signup)
}

// setupLoanFormRoutes configures the loan application form
func setupLoanFormRoutes(router fiber.Router, h *handlers.LoanFormHandler) {
	router.Get(guard.RouteUserForm, h.Show)
	router.Post(guard.RouteUserForm, middleware.SubmitRateLimiter(), h.Submit)
}

// setupDashboardRoutes configures the dashboards. The guard has already
// checked the role against the dashboard segment.
func setupDashboardRoutes(router fiber.Router, h *handlers.DashboardHandler) {
	router.Get("/:dashboard", h.Show)
	router.Post("/:dashboard/sort", h.Sort)
	router.Post("/:dashboard/filter", h.Filter)
	router.Post("/:dashboard/search", h.Search)
	router.Post("/:dashboard/refresh", h.Refresh)
	router.Post("/:dashboard/loans/:id/actions", h.Action)
	router.Post("/:dashboard/confirm", h.Confirm)
	router.Post("/:dashboard/cancel", h.Cancel)
}
