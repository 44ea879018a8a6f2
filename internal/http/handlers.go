// Package http contains the Fiber handlers for inkwell's JSON API.
package http

import (
	"context"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"inkwell/internal/config"
	"inkwell/internal/identity"
	"inkwell/internal/stats"
	"inkwell/internal/timerange"
)

// Handlers bundles the dependencies every handler needs.
type Handlers struct {
	dbManager  cartridge.DBManager
	provider   identity.Provider
	logger     *slog.Logger
	cfg        *config.Config
	resolver   *timerange.Resolver
	comparator *stats.Comparator
}

// NewHandlers wires the handler set. Passing a nil resolver uses the system
// clock.
func NewHandlers(dbManager cartridge.DBManager, provider identity.Provider, logger *slog.Logger, cfg *config.Config, resolver *timerange.Resolver) *Handlers {
	if resolver == nil {
		resolver = timerange.NewResolver()
	}
	return &Handlers{
		dbManager:  dbManager,
		provider:   provider,
		logger:     logger,
		cfg:        cfg,
		resolver:   resolver,
		comparator: stats.NewComparator(resolver),
	}
}

func (h *Handlers) db() *gorm.DB {
	return h.dbManager.GetConnection()
}

// statsContext derives the per-request deadline for dashboard queries. One
// slow metric fails the whole response rather than degrading it.
func (h *Handlers) statsContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(h.cfg.StatsQueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// rangeLabel reads the timeRange query parameter. Unrecognized values pass
// through; the resolver treats them as "no filter".
func rangeLabel(c *fiber.Ctx) timerange.RangeLabel {
	return timerange.RangeLabel(c.Query("timeRange"))
}

func (h *Handlers) internalError(c *fiber.Ctx, err error, what string) error {
	h.logger.Error(what, slog.Any("error", err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func validationError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "Validation failed",
		"message": message,
	})
}
