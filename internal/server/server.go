package server

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/dfjss/internal/config"
	"github.com/me/dfjss/internal/parser"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/internal/store"
)

// Server is the dfjss REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	parser    *parser.Parser
	store     store.Store        // optional; runs are not persisted without it
	simOpts   []scheduler.Option // applied to every simulation

	simulations atomic.Uint64 // successful POST /simulate calls
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore persists every simulation and enables the /runs endpoints.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithSimulationOptions sets engine options (limits, logger) for every simulation.
func WithSimulationOptions(opts ...scheduler.Option) Option {
	return func(s *Server) {
		s.simOpts = append(s.simOpts, opts...)
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		parser:    parser.New(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/rules", s.handleListRules)

		r.Post("/simulate", s.handleSimulate)
		r.Post("/instances/validate", s.handleValidateInstance)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Delete("/", s.handleDeleteRun)
			})
		})
	})
}
