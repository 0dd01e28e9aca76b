package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/database"
	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/handlers"
	"github.com/roadwatch/backend/internal/logging"
	"github.com/roadwatch/backend/internal/middleware"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/routes"
	"github.com/roadwatch/backend/internal/security"
	"github.com/roadwatch/backend/internal/services"
	"github.com/roadwatch/backend/internal/version"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	// Relational store
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Document store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	docs := docstore.NewRedisStore(rdb)

	// Repositories and version store
	users := repository.NewUsers(database.DB)
	reports := repository.NewReports(database.DB)
	attempts := repository.NewAttempts(database.DB)
	companies := repository.NewCompanies(database.DB)
	versions := version.NewGormStore(database.DB)

	// Outbound sync worker and inbound reconciliation
	projector := docsync.NewProjector(users, reports, companies, versions)
	dispatcher := docsync.NewDispatcher(projector, docs, cfg.SyncQueueSize)
	dispatcher.Start()
	resolver := docsync.NewIdentityResolver(users)
	reconciler := docsync.NewReconciler(docs, users, reports, resolver)

	// Services
	authService := services.NewAuthService(users, attempts, versions, security.NewBcrypt(), dispatcher, cfg)
	reportService := services.NewReportService(reports, companies, versions, dispatcher)
	companyService := services.NewCompanyService(companies, dispatcher)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	reportHandler := handlers.NewReportHandler(reportService)
	companyHandler := handlers.NewCompanyHandler(companyService)
	syncHandler := handlers.NewSyncHandler(reconciler)
	healthHandler := handlers.NewHealthHandler(docs)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, authService, authHandler, reportHandler, companyHandler, syncHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Flush queued document pushes before the stores go away.
	dispatcher.Stop()

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := rdb.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
