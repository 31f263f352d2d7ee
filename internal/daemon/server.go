// Package daemon serves the practice award engine over HTTP.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/go-chi/chi/v5"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
)

// Engine is the part of award.Engine the handlers call
type Engine interface {
	ComputeReport(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*domain.Report, error)
	Analyze(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) (*domain.Analysis, error)
	NextQuestion(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*oracle.Question, error)
}

// ProgressReader reads and creates progress records
type ProgressReader interface {
	FindByID(ctx context.Context, userID string) (*domain.Progress, error)
	Register(ctx context.Context, userID string) (*domain.Progress, error)
}

// ActivityLister lists a user's recent activities
type ActivityLister interface {
	ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

// Deps are the services behind the HTTP API
type Deps struct {
	Engine     Engine
	Progress   ProgressReader
	Activities ActivityLister
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Addr    string
	Version string

	// RateLimit is the per-user request budget per minute on the practice
	// routes; zero disables limiting
	RateLimit int

	Logger *slog.Logger
}

// Server represents the practice daemon HTTP server
type Server struct {
	deps    Deps
	cfg     ServerConfig
	logger  *slog.Logger
	limiter ratelimit.RateLimiter
	router  chi.Router
	server  *http.Server
}

// NewServer creates a new daemon server
func NewServer(deps Deps, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	if cfg.RateLimit > 0 {
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimit,
			Burst:    cfg.RateLimit,
			Interval: time.Minute,
		})
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // oracle calls fall back across models
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(correlationIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(identityMiddleware)

		r.Route("/v1/practice", func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)
			r.Post("/report", s.handleReport)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/next", s.handleNextQuestion)
		})

		r.Get("/v1/progress", s.handleGetProgress)
		r.Post("/v1/progress", s.handleRegister)
		r.Get("/v1/activity", s.handleListActivity)
	})
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting practice daemon", "addr", s.server.Addr, "version", s.cfg.Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn("failed to close rate limiter", "error", err)
		}
	}
	return s.server.Shutdown(ctx)
}
