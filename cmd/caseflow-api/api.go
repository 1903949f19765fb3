// Package main provides the caseflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/engine"
	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/fields"
	"github.com/dukex/caseflow/pkg/notify"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/recipients"
	"github.com/dukex/caseflow/pkg/services"
	"github.com/dukex/caseflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) handlers() *web.APIHandlers {
	orgs := a.persistence.Organizations()
	recipientResolver := recipients.NewResolver(orgs, a.logger)
	engineClient := engine.NewEventBusClient(a.eventBus, a.logger)
	audit := services.NewAuditTrail(a.persistence.Audit(), a.eventBus, a.logger)
	notifier := notify.NewNotifier(a.eventBus, recipientResolver, a.logger)
	senders := notify.NewSenderPolicy(orgs, a.logger)

	return web.NewAPIHandlers(web.Services{
		Definitions: services.NewDefinitions(a.persistence, a.tracer, a.logger),
		Executions:  services.NewExecutions(a.persistence, engineClient, senders, audit, a.tracer, a.logger),
		Tasks:       services.NewTasks(a.persistence, engineClient, notifier, audit, a.tracer, a.logger),
		Contacts:    services.NewContacts(a.persistence, fields.NewResolver(orgs), audit, a.logger),
		Recipients:  recipientResolver,
		Access:      access.NewResolver(orgs, a.logger),
	}, a.persistence, a.validate)
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.persistence.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Caseflow API")
	})

	a.handlers().Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
