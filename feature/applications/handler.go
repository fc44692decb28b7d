package applications

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"apptrack/core/logger"
)

// Handler handles HTTP requests for application records.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the application routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/applications")
	group.Get("/", h.HandleList)
	group.Put("/:eventKey/status", h.HandleUpdateStatus)
	group.Put("/:eventKey/location", h.HandleUpdateLocation)

	app.Get("/statistics", h.HandleStatistics)
	app.Get("/funnel", h.HandleFunnel)
	app.Get("/export", h.HandleExport)
}

// HandleList returns tracked applications, newest first.
// @Summary List Applications
// @Description List all tracked applications, optionally filtered by status and company substring.
// @Tags applications
// @Accept json
// @Produce json
// @Param status query string false "Exact status filter (e.g. 'Interview')"
// @Param company query string false "Case-insensitive company substring filter"
// @Success 200 {array} reconcile.Application "Applications"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /applications [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	apps, err := h.service.List(c.Context(), c.Query("status"), c.Query("company"))
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		l.Error("Listing applications failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(apps)
}

// HandleStatistics returns aggregate counts over all applications.
// @Summary Application Statistics
// @Description Total count plus per-status, top-company and top-location breakdowns.
// @Tags applications
// @Accept json
// @Produce json
// @Success 200 {object} Statistics "Statistics"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /statistics [get]
func (h *Handler) HandleStatistics(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	stats, err := h.service.Statistics(c.Context())
	if err != nil {
		l.Error("Computing statistics failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(stats)
}

// HandleFunnel returns the pipeline funnel.
// @Summary Pipeline Funnel
// @Description Per-stage application counts and percentages over the seven pipeline stages.
// @Tags applications
// @Accept json
// @Produce json
// @Success 200 {array} FunnelStage "Funnel"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /funnel [get]
func (h *Handler) HandleFunnel(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	funnel, err := h.service.Funnel(c.Context())
	if err != nil {
		l.Error("Computing funnel failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(funnel)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus overwrites the status of one application.
// @Summary Update Application Status
// @Description Operator correction of a record's status. Must be a known status label.
// @Tags applications
// @Accept json
// @Produce json
// @Param eventKey path string true "Event key of the application"
// @Param body body updateStatusRequest true "New status"
// @Success 200 {object} map[string]string "Updated"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /applications/{eventKey}/status [put]
func (h *Handler) HandleUpdateStatus(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	eventKey := c.Params("eventKey")

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	err := h.service.UpdateStatus(c.Context(), eventKey, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		l.Error("Updating status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"event_key": eventKey, "status": req.Status})
}

type updateLocationRequest struct {
	Location string `json:"location"`
}

// HandleUpdateLocation overwrites the location of one application.
// @Summary Update Application Location
// @Description Operator correction of a record's location.
// @Tags applications
// @Accept json
// @Produce json
// @Param eventKey path string true "Event key of the application"
// @Param body body updateLocationRequest true "New location"
// @Success 200 {object} map[string]string "Updated"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /applications/{eventKey}/location [put]
func (h *Handler) HandleUpdateLocation(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	eventKey := c.Params("eventKey")

	var req updateLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	err := h.service.UpdateLocation(c.Context(), eventKey, req.Location)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		l.Error("Updating location failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"event_key": eventKey, "location": req.Location})
}

// HandleExport streams all applications as a CSV attachment.
// @Summary Export Applications
// @Description Download every tracked application as CSV.
// @Tags applications
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /export [get]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var buf bytes.Buffer
	if err := h.service.ExportCSV(c.Context(), &buf); err != nil {
		l.Error("CSV export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	filename := fmt.Sprintf("job_applications_%s.csv", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
