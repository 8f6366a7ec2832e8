// Package server exposes the demo cycle and the demo library as a JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/metrics"
)

// Server is the API Fiber application.
type Server struct {
	app      *fiber.App
	pipeline *cycle.Pipeline
	logger   zerolog.Logger

	// mu serializes cycle actions so each runs to completion before the next.
	mu sync.Mutex
}

// New creates and configures a server. m may be nil.
func New(p *cycle.Pipeline, m *metrics.Metrics, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "server").Logger()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{app: app, pipeline: p, logger: logger}
	s.setupMiddleware()
	s.setupRoutes(m)
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(m *metrics.Metrics) {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	api := s.app.Group("/api")
	api.Post("/cycles", s.createCycle)
	api.Post("/edits", s.createEdit)
	api.Get("/demos", s.listDemos)
	api.Post("/demos", s.saveDemo)
	api.Get("/demos/:id", s.getDemo)
	api.Delete("/demos/:id", s.deleteDemo)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		errType := "internal_error"
		if code != fiber.StatusInternalServerError {
			errType = "request_error"
		}
		return problem(c, code, errType, http.StatusText(code), err.Error())
	}
}
