// Package web serves the MediScan consultation page and its JSON API.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bull/mediscan/internal/config"
	"github.com/bull/mediscan/internal/markdown"
)

// Deps are the components the server routes to.
type Deps struct {
	Sessions Sessions
	Health   HealthChecker // usually the vector store; optional
	MCP      http.Handler  // mounted at /mcp when set
}

// Server is the HTTP front end.
type Server struct {
	app    *fiber.App
	cfg    config.ServerConfig
	logger *slog.Logger
}

// New builds the fiber app with middleware and routes.
func New(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	bodyLimit := cfg.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 20
	}

	// Immutable: params and form values outlive the request as session ids and state.
	app := fiber.New(fiber.Config{
		AppName:               "mediscan",
		Immutable:             true,
		BodyLimit:             bodyLimit * 1024 * 1024,
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	// Traces every request; a no-op unless a tracer provider is installed.
	app.Use(otelfiber.Middleware())

	app.Get("/", pageHandler)
	app.Get("/health", healthHandler(deps.Health))
	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	api := app.Group("/api")
	sessions := &sessionController{
		sessions: deps.Sessions,
		renderer: markdown.NewRenderer(),
		logger:   logger,
		timeout:  time.Duration(cfg.RequestTimeout) * time.Second,
	}
	sessions.RegisterRoutes(api)

	return &Server{app: app, cfg: cfg, logger: logger}
}

// App returns the fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until Shutdown.
func (s *Server) Run() error {
	addr := ":" + s.cfg.Port
	s.logger.Info("Server is running", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests up to timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
