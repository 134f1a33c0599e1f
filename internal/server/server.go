// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/service"
)

const (
	// shutdownTimeout bounds graceful shutdown of the listener.
	shutdownTimeout = 10 * time.Second
	// DefaultJobsTimeout bounds the wait for background jobs on shutdown.
	DefaultJobsTimeout = 30 * time.Second
)

// Deps are the services the API exposes. History and Match may be nil;
// the routes that need them then answer 503.
type Deps struct {
	Search    *service.SearchService
	Match     *service.MatchService
	Jobs      *service.JobManager
	History   *history.Store
	Metrics   *metrics.Collector
	Extractor *parser.Extractor
	Threshold float64
	// JobsTimeout bounds the shutdown wait for running jobs; zero means
	// DefaultJobsTimeout.
	JobsTimeout time.Duration
}

// Server wraps the fiber app with dependencies and lifecycle management.
type Server struct {
	app    *fiber.App
	deps   Deps
	logger *slog.Logger
}

// New creates the API server and registers its routes.
func New(version string, deps Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Extractor == nil {
		deps.Extractor = &parser.Extractor{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.Jobs == nil {
		deps.Jobs = service.NewJobManager(logger)
	}
	if deps.JobsTimeout <= 0 {
		deps.JobsTimeout = DefaultJobsTimeout
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "pdfmatch " + version,
			ErrorHandler:          ErrorHandler(),
			DisableStartupMessage: true,
		}),
		deps:   deps,
		logger: logger,
	}

	prom, err := NewPrometheusMiddleware(deps.Metrics.Registry())
	if err != nil {
		return nil, err
	}
	s.app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	s.app.Use(RequestID())
	s.app.Use(prom.Handler())
	s.app.Use(LoggingMiddleware(logger))

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	s.registerRoutes(s.app.Group("/api"))
	return s, nil
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// waits up to JobsTimeout for background jobs. Jobs still running after that
// are abandoned.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}

	if n := s.deps.Jobs.Active(); n > 0 {
		s.logger.Info("waiting for background jobs", "active", n, "timeout", s.deps.JobsTimeout)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), s.deps.JobsTimeout)
	defer cancel()
	if err := s.deps.Jobs.WaitContext(waitCtx); err != nil {
		s.logger.Warn("abandoning background jobs", "active", s.deps.Jobs.Active(), "error", err)
	}
	return nil
}
