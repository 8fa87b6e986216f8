package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/pkg/logger"
)

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Health(ctx context.Context) executor.Health
}

// Pinger runs the trivial round-trip query shown on /db-status.
type Pinger interface {
	Ping(ctx context.Context) (int64, error)
}

type SystemHandler struct {
	db      HealthChecker
	pinger  Pinger
	started time.Time
}

func NewSystemHandler(db HealthChecker, pinger Pinger) *SystemHandler {
	return &SystemHandler{db: db, pinger: pinger, started: time.Now()}
}

func (h *SystemHandler) Root(c *fiber.Ctx) error {
	return c.SendString("Server is up and running!")
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *SystemHandler) DBStatus(c *fiber.Ctx) error {
	health := h.db.Health(c.UserContext())
	if !health.Healthy {
		logger.Warn("Database health check failed", zap.String("reason", health.Reason), zap.String("state", health.State))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":  "Database query failed",
			"health": health,
		})
	}

	solution, err := h.pinger.Ping(c.UserContext())
	if err != nil {
		logger.Error("Database query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database query failed"})
	}

	return c.JSON(fiber.Map{"solution": solution, "health": health})
}
