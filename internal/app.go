// Package internal contains core application functionality
package internal

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/http"
	"inkwell/internal/identity"
	"inkwell/internal/jobs"
	"inkwell/internal/logging"
	"inkwell/internal/pkg/geoip"
	"inkwell/internal/timerange"
)

// Dependencies carries the cross-cutting collaborators handlers and
// middleware need.
type Dependencies struct {
	Provider identity.Provider
	Logger   *slog.Logger
}

// Application wires the HTTP server, database, and background jobs.
type Application struct {
	App       *fiber.App
	DBManager *database.DBManager
	Provider  identity.Provider
	Logger    *slog.Logger

	cfg       *config.Config
	scheduler *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)
	geoip.InitLogger(logger)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	provider := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey)

	scheduler, err := jobs.NewScheduler(dbManager, provider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(recover.New())

	handlers := http.NewHandlers(dbManager, provider, logger, cfg, timerange.NewResolver())
	MountAppRoutes(app, handlers, Dependencies{Provider: provider, Logger: logger})

	return &Application{
		App:       app,
		DBManager: dbManager,
		Provider:  provider,
		Logger:    logger,
		cfg:       cfg,
		scheduler: scheduler,
	}, nil
}

// StartAsync starts the background jobs and the HTTP listener. The listener
// runs in its own goroutine; startup errors are logged there.
func (a *Application) StartAsync() error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	go func() {
		addr := ":" + a.cfg.GetPort()
		if err := a.App.Listen(addr); err != nil {
			a.Logger.Error("HTTP listener stopped", slog.Any("error", err))
		}
	}()

	a.Logger.Info("Application started",
		slog.String("port", a.cfg.GetPort()),
		slog.String("environment", a.cfg.Environment))
	return nil
}

// Shutdown stops the jobs and drains the HTTP server within the context's
// deadline.
func (a *Application) Shutdown(ctx context.Context) error {
	a.scheduler.Stop()

	if deadline, ok := ctx.Deadline(); ok {
		return a.App.ShutdownWithTimeout(time.Until(deadline))
	}
	return a.App.Shutdown()
}
