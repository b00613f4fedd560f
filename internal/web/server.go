// Package web provides the thin HTTP surface around the pipeline: trigger a
// run, poll its status, read or replace the provider configuration and list
// the resulting catalog. All business logic lives below this layer.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nmoreno/catalogo/internal/config"
)

// Server is the HTTP server for the catalog service.
type Server struct {
	pipeline PipelineService
	registry RegistryStore
	products ProductReader
	router   *chi.Mux
	server   *http.Server

	runTimeout time.Duration
	running    chan struct{} // 1-slot token; holds run exclusivity
}

// NewServer creates a new Server instance.
func NewServer(pipeline PipelineService, registry RegistryStore, products ProductReader, cfg *config.Config) *Server {
	s := &Server{
		pipeline:   pipeline,
		registry:   registry,
		products:   products,
		router:     chi.NewRouter(),
		runTimeout: cfg.Pipeline.RunTimeout,
		running:    make(chan struct{}, 1),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Pipeline trigger and status polling
		r.Post("/etl/run", s.handleRunPipeline)
		r.Get("/etl/status", s.handlePipelineStatus)
		r.Get("/etl/history", s.handleRunHistory)

		// Provider configuration document
		r.Get("/providers", s.handleGetProviders)
		r.Put("/providers", s.handlePutProviders)

		// Catalog listing
		r.Get("/products", s.handleListProducts)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
