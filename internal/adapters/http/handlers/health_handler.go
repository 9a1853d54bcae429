package handlers

import (
	"context"
	"time"

	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/config"
	"loan-console/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// HealthHandler handles health check endpoints
type HealthHandler struct {
	storage  repositories.StorageRepository
	registry *services.Registry
	cfg      *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storage repositories.StorageRepository, registry *services.Registry, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		registry: registry,
		cfg:      cfg,
	}
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check console and session storage health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "ok"
	storageStatus := "healthy"
	if err := h.storage.Ping(ctx); err != nil {
		status = "degraded"
		storageStatus = "unhealthy"
		c.Status(fiber.StatusServiceUnavailable)
	}

	return c.JSON(fiber.Map{
		"status": status,
		"mode":   h.cfg.AppMode,
		"checks": fiber.Map{
			"console": "healthy",
			"storage": fiber.Map{
				"backend": h.cfg.Storage.Backend,
				"status":  storageStatus,
			},
		},
		"workspaces": h.registry.Len(),
	})
}
