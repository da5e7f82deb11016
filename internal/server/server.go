package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/nada/internal/config"
	"github.com/me/nada/internal/poller"
)

// Server exposes the trigger/status API consumed by the presentation shell.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	launcher  poller.Launcher
	resolver  poller.Resolver
}

// New creates a new Server with all routes registered.
func New(cfg config.Config, l poller.Launcher, r poller.Resolver, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		launcher:  l,
		resolver:  r,
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

	// Shell contract. The /api prefix matches the paths the web UI used.
	for _, prefix := range []string{"", "/api"} {
		r.Post(prefix+"/trigger", s.handleTrigger)
		r.Get(prefix+"/status", s.handleStatus)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Post("/ask", s.handleAsk)
	})
}
