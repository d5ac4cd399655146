package status

import (
	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for agent status.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/status", h.HandleStatus)
	app.Get("/health", h.HandleHealth)
}

// HandleStatus returns the last reconcile cycle, backend reachability and the ledger contents.
// @Summary Agent Status
// @Description Last submitted reconcile cycle, backend reachability, tracked features and active bookings.
// @Tags status
// @Produce json
// @Success 200 {object} Status "Status"
// @Router /status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status(c.UserContext()))
}

// HandleHealth reports whether reconciliation is keeping up.
// @Summary Agent Health
// @Description 200 while cycles are submitted on time, 503 once they are stale.
// @Tags status
// @Produce json
// @Success 200 {object} Health "Healthy or starting"
// @Failure 503 {object} Health "Stale"
// @Router /health [get]
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	health := h.service.Health()
	if health.Status == HealthStale {
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}
	return c.JSON(health)
}
