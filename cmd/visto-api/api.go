// Package main provides the Visto approval API server.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/vistolabs/visto/pkg/directory"
	"github.com/vistolabs/visto/pkg/engine"
	"github.com/vistolabs/visto/pkg/eventbus"
	"github.com/vistolabs/visto/pkg/persistence"
	"github.com/vistolabs/visto/pkg/services"
	"github.com/vistolabs/visto/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	slaThreshold time.Duration
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	slaThreshold time.Duration,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		eventBus:     eventBus,
		slaThreshold: slaThreshold,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	schemaService := services.NewSchema(a.persistence)

	// TODO: swap directory.Open for the HR organization service client
	// once its gRPC surface stabilizes.
	routingEngine := engine.New(directory.Open{})

	documentService := services.NewDocument(
		a.persistence,
		schemaService,
		routingEngine,
		a.eventBus,
		a.logger,
		a.slaThreshold,
	)

	handlers := web.NewAPIHandlers(schemaService, documentService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Visto Approval API")
	})

	s := app.Group("/schemas")
	s.Get("/", handlers.ListSchemas)
	s.Post("/", handlers.CreateSchema)
	s.Get("/:id", handlers.GetSchema)

	d := app.Group("/documents")
	d.Post("/", handlers.CreateDocument)
	d.Get("/:id", handlers.GetDocument)
	d.Delete("/:id", handlers.DeleteDocument)
	d.Post("/:id/submit", handlers.SubmitDocument)
	d.Post("/:id/decisions", handlers.RecordDecision)
	d.Post("/:id/recall", handlers.RecallDocument)
	d.Post("/:id/acknowledgements", handlers.AcknowledgeDocument)

	v := app.Group("/views")
	v.Get("/outbox", handlers.GetOutbox)
	v.Get("/inbox", handlers.GetInbox)
	v.Get("/pending", handlers.GetPending)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
