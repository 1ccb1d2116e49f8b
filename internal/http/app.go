package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/predictmaint/predictmaint/internal/service"
)

const APIPrefix = "/api"

// NewApp builds the fiber app with middleware and both route trees: the
// bare paths for direct clients and APIPrefix for the dashboard proxy setup.
func NewApp(svcs *service.Services, corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Maintenance Prediction API",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to the Maintenance Prediction API!"})
	})

	Register(app, svcs)
	Register(app.Group(APIPrefix), svcs)
	return app
}
