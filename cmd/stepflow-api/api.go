// Package main provides the Stepflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/calvora/stepflow/pkg/persistence"
	"github.com/calvora/stepflow/pkg/services"
	"github.com/calvora/stepflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	validate    *validator.Validate
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	orchestrator := services.NewOrchestrator(a.persistence, a.logger)
	processQuery := services.NewProcessQuery(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(orchestrator, processQuery, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Stepflow API")
	})

	p := app.Group("/processes")
	p.Get("/", handlers.GetProcesses)
	p.Post("/", handlers.CreateProcess)
	p.Get("/:id", handlers.GetProcess)
	p.Delete("/:id", handlers.DeleteProcess)
	p.Post("/:id/steps", handlers.AddStep)
	p.Delete("/:id/steps/:stepId", handlers.RemoveStep)
	p.Get("/:id/executions", handlers.GetExecutions)
	p.Post("/:id/executions", handlers.StartExecution)

	e := app.Group("/executions")
	e.Post("/:id/complete", handlers.CompleteExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)
	e.Post("/:id/advance", handlers.AdvanceExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
