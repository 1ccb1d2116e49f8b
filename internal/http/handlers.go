package http

import (
	"errors"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/domain"
	"github.com/predictmaint/predictmaint/internal/service"
)

// predictBody uses pointers so a missing number is told apart from zero.
type predictBody struct {
	MachineID   string   `json:"machineId" validate:"required,max=50"`
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required"`
}

type handler struct {
	svcs     *service.Services
	validate *validator.Validate
}

// Register mounts the prediction API on router. The same routes are served
// at the root and under a prefix group, depending on what the caller passes.
func Register(router fiber.Router, svcs *service.Services) {
	h := &handler{svcs: svcs, validate: validator.New()}

	router.Post("/predict", h.predict)
	router.Get("/history", h.history)
	router.Get("/stats", h.stats)
	router.Get("/machines", h.machines)
	router.Get("/machine/:id", h.machine)
	router.Get("/health", h.health)
	router.Get("/metrics", h.metrics)
	router.Post("/reports/history", h.archiveHistory)
}

func (h *handler) predict(c *fiber.Ctx) error {
	var body predictBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid request body")
	}
	if err := h.validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	resp, err := h.svcs.Predictions.Predict(c.UserContext(), domain.PredictRequest{
		MachineID:   body.MachineID,
		Temperature: *body.Temperature,
		Humidity:    *body.Humidity,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save prediction")
	}
	return c.JSON(resp)
}

func (h *handler) history(c *fiber.Ctx) error {
	items, err := h.svcs.Predictions.History(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("history")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch history")
	}
	return c.JSON(items)
}

func (h *handler) stats(c *fiber.Ctx) error {
	st, err := h.svcs.Predictions.Stats(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("stats")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stats")
	}
	return c.JSON(st)
}

func (h *handler) machines(c *fiber.Ctx) error {
	items, err := h.svcs.Predictions.Machines(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("machines")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch machines")
	}
	return c.JSON(items)
}

func (h *handler) machine(c *fiber.Ctx) error {
	// fiber leaves params escaped; the dashboard escapes ids containing '/'
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid machine id")
	}
	items, err := h.svcs.Predictions.MachinePredictions(c.UserContext(), id)
	if err != nil {
		log.Error().Err(err).Str("machine_id", id).Msg("machine predictions")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch machine predictions")
	}
	return c.JSON(items)
}

func (h *handler) health(c *fiber.Ctx) error {
	if err := h.svcs.Store.Ping(c.UserContext()); err != nil {
		log.Warn().Err(err).Msg("store ping failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *handler) metrics(c *fiber.Ctx) error {
	return c.JSON(h.svcs.Telemetry.Snapshot())
}

func (h *handler) archiveHistory(c *fiber.Ctx) error {
	out, err := h.svcs.Predictions.ArchiveHistory(c.UserContext())
	switch {
	case errors.Is(err, service.ErrArchiveDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("archive history")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to archive history")
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ErrorHandler renders every error as {"detail": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := status(err)
	return c.Status(code).JSON(fiber.Map{"detail": message})
}

// RequestLogger logs one line per request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			code, _ = status(err)
		}
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

func status(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}
