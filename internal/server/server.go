// Package server exposes leadflow over a JSON HTTP API.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/documents"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/pipeline"
	"github.com/baiirun/leadflow/internal/reminder"
	"github.com/baiirun/leadflow/internal/users"
)

// Deps are the services the API serves.
type Deps struct {
	Engine    *pipeline.Engine
	Documents *documents.Service
	Resolver  *documents.Resolver
	Reminders *reminder.Service
	Users     *users.Service
	Clock     clock.Clock

	// AccessLog receives one line per request; nil disables it.
	AccessLog io.Writer
}

// Server is the HTTP API.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the app and registers every route.
func New(deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	app := fiber.New(fiber.Config{
		AppName:               "leadflow",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	app.Use(recover.New())
	if deps.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: deps.AccessLog}))
	}

	s := &Server{app: app, deps: deps}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")

	api.Get("/processes", s.listProcesses)
	api.Post("/processes", s.createProcess)
	api.Post("/processes/bootstrap", s.bootstrap)
	api.Put("/processes/order", s.reorderProcesses)
	api.Get("/processes/:id", s.getProcess)
	api.Patch("/processes/:id", s.updateProcess)
	api.Delete("/processes/:id", s.deleteProcess)

	api.Get("/processes/:id/stages", s.listStages)
	api.Post("/processes/:id/stages", s.createStage)
	api.Put("/processes/:id/stages/order", s.reorderStages)
	api.Get("/stages/:id", s.getStage)
	api.Patch("/stages/:id", s.updateStage)
	api.Delete("/stages/:id", s.deleteStage)

	api.Get("/leads/:id/stage", s.getPlacement)
	api.Put("/leads/:id/stage", s.moveLead)
	api.Get("/leads/:id/documents", s.resolveDocuments)
	api.Post("/leads/:id/documents", s.submitDocument)
	api.Put("/documents/:id/review", s.reviewDocument)

	api.Get("/requirements", s.listRequirements)
	api.Post("/requirements", s.createRequirement)
	api.Patch("/requirements/:id", s.updateRequirement)
	api.Delete("/requirements/:id", s.deleteRequirement)

	api.Get("/reminders", s.listReminders)
	api.Post("/reminders", s.createReminder)
	api.Get("/reminders/:id", s.getReminder)
	api.Patch("/reminders/:id", s.updateReminder)
	api.Delete("/reminders/:id", s.deleteReminder)
	api.Post("/reminders/:id/complete", s.completeReminder)
	api.Post("/reminders/:id/reopen", s.reopenReminder)

	api.Get("/users", s.listUsers)
	api.Post("/users", s.createUser)
	api.Get("/users/:id", s.getUser)
	api.Patch("/users/:id", s.updateUser)
	api.Get("/users/:id/badge", s.badge)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrInconsistentState):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrTransientStore):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func bind(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}
