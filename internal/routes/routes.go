package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/handlers"
	"github.com/roadwatch/backend/internal/middleware"
	"github.com/roadwatch/backend/internal/services"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authService *services.AuthService,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	companyHandler *handlers.CompanyHandler,
	syncHandler *handlers.SyncHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth is public, with a stricter rate limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Report reads are public for the map view, writes need a token
	api.Get("/reports", reportHandler.List)
	api.Get("/reports/:id", reportHandler.Get)
	api.Get("/reports/user/:id", middleware.JWTProtected(cfg), reportHandler.ListByUser)
	api.Post("/reports", middleware.JWTProtected(cfg), reportHandler.Create)

	api.Get("/companies", companyHandler.List)

	// Admin surface: status/detail updates, deletion, lockout management,
	// company registry and on-demand reconciliation.
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(authService, cfg))
	admin.Put("/reports/:id", reportHandler.Update)
	admin.Delete("/reports/:id", reportHandler.Delete)
	admin.Get("/users/blocked", authHandler.ListBlocked)
	admin.Post("/users/:id/unblock", authHandler.Unblock)
	admin.Post("/companies", companyHandler.Create)
	admin.Post("/sync/reconcile", syncHandler.ReconcileAll)
	admin.Post("/sync/reconcile/users", syncHandler.ReconcileUsers)
	admin.Post("/sync/reconcile/reports", syncHandler.ReconcileReports)
}
