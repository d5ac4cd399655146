package bookings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"license-agent/core/backend"
	"license-agent/core/booking"
	"license-agent/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for bookings.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the booking routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/bookings")
	group.Get("/", h.HandleListBookings)
	group.Post("/", h.HandleCreateBooking)
	group.Delete("/:job_id", h.HandleReleaseBooking)
}

// HandleListBookings returns every job holding bookings.
// @Summary List Bookings
// @Description List the jobs that currently hold license bookings.
// @Tags bookings
// @Produce json
// @Success 200 {array} models.Job "Jobs"
// @Router /bookings [get]
func (h *Handler) HandleListBookings(c *fiber.Ctx) error {
	return c.JSON(h.service.Jobs())
}

// HandleCreateBooking books licenses for a starting job.
// @Summary Create Booking
// @Description Reserve license capacity for a job. Untracked features are ignored.
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body BookRequest true "Job and requested licenses"
// @Success 201 {object} BookResult "Booked"
// @Success 200 {object} BookResult "Nothing to book"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]any "Insufficient capacity or duplicate job"
// @Failure 408 {object} map[string]string "Hook deadline passed"
// @Failure 502 {object} map[string]string "Backend unavailable"
// @Router /bookings [post]
func (h *Handler) HandleCreateBooking(c *fiber.Ctx) error {
	var req BookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	l := logger.WithJob(logger.WithRayID(h.service.logger, c), req.JobID)

	ctx, cancel, err := hookContext(c)
	if err != nil {
		l.Warn("Booking dropped", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	defer cancel()

	result, err := h.service.Book(ctx, req)
	if err != nil {
		status := statusFor(err)
		body := fiber.Map{"error": err.Error()}

		var capErr *booking.CapacityError
		if errors.As(err, &capErr) {
			body["feature"] = capErr.Feature
			body["requested"] = capErr.Requested
			body["available"] = capErr.Available
		}
		if status >= fiber.StatusInternalServerError {
			l.Error("Booking failed", zap.Error(err))
		} else {
			l.Warn("Booking rejected", zap.Error(err))
		}
		return c.Status(status).JSON(body)
	}

	if result.Job == nil {
		return c.JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleReleaseBooking releases all bookings of a finished job.
// @Summary Release Booking
// @Description Release every booking held by a job. Unknown jobs are a no-op.
// @Tags bookings
// @Produce json
// @Param job_id path string true "Slurm job id"
// @Success 200 {object} ReleaseResult "Released"
// @Failure 502 {object} map[string]string "Backend unavailable"
// @Router /bookings/{job_id} [delete]
func (h *Handler) HandleReleaseBooking(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	l := logger.WithJob(logger.WithRayID(h.service.logger, c), jobID)

	ctx, cancel, err := hookContext(c)
	if err != nil {
		l.Warn("Release dropped", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	defer cancel()

	result, err := h.service.Release(ctx, jobID)
	if err != nil {
		l.Error("Release failed", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// hookContext bounds the request by the deadline the hook sent, if any.
func hookContext(c *fiber.Ctx) (context.Context, context.CancelFunc, error) {
	raw := c.Get(DeadlineHeader)
	if raw == "" {
		ctx, cancel := context.WithCancel(c.UserContext())
		return ctx, cancel, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad %s header", booking.ErrInvalidRequest, DeadlineHeader)
	}
	deadline := time.UnixMilli(ms)
	if !time.Now().Before(deadline) {
		return nil, nil, fmt.Errorf("hook deadline passed: %w", context.DeadlineExceeded)
	}
	ctx, cancel := context.WithDeadline(c.UserContext(), deadline)
	return ctx, cancel, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusRequestTimeout
	case errors.Is(err, booking.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, booking.ErrCapacityExceeded),
		errors.Is(err, booking.ErrDuplicateJob),
		errors.Is(err, booking.ErrUnknownFeature):
		return fiber.StatusConflict
	case errors.Is(err, backend.ErrUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
