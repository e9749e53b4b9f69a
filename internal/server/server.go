// Package server exposes the draft generation pipeline over HTTP: a JSON
// API for one-shot generation, search, verification and history, an SSE
// endpoint streaming pipeline progress, and an in-memory async job surface.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"notedraft/internal/config"
	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/persistence"
	"notedraft/internal/pipeline"
	"notedraft/internal/search"
	"notedraft/internal/verify"
)

// Generator runs the end-to-end draft pipeline for one request.
type Generator interface {
	Generate(ctx context.Context, req pipeline.GenerateRequest, progress chan<- core.Progress) (*core.ArticleDraft, error)
}

// Searcher answers one hybrid reference query.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]core.ScoredDocument, error)
}

// MaterialParser structures raw material for standalone verification.
type MaterialParser interface {
	Run(ctx context.Context, material string) (*core.ArticleInput, error)
}

// Deps bundles the services behind the HTTP surface. All fields are
// required.
type Deps struct {
	Generator Generator
	Searcher  Searcher
	Parser    MaterialParser
	Style     verify.StyleChecker
	Fact      verify.HallucinationDetector
	Articles  persistence.ArticleRepository
	DB        persistence.Database
}

// Server is the HTTP server for the generation API.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	jobs       *JobStore

	// baseCtx outlives individual requests; it parents async jobs and is
	// cancelled on shutdown so in-flight generations abort.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// New creates the server with its routes and middleware configured.
func New(cfg *config.Config, deps Deps) *Server {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	s := &Server{
		router:     chi.NewRouter(),
		deps:       deps,
		config:     cfg,
		jobs:       NewJobStore(cfg.Jobs.TTL),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	return s
}

// setupMiddleware configures the middleware stack. No blanket timeout
// middleware: generation requests run for minutes and carry their own
// deadline inside the pipeline.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures routes for the server.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/generate/stream", s.handleGenerateStream)
		r.Post("/generate/async", s.handleGenerateAsync)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Post("/search", s.handleSearch)
		r.Post("/verify", s.handleVerify)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{id}", s.handleGetHistory)
			r.Delete("/{id}", s.handleDeleteHistory)
		})
	})
}

// Start starts the HTTP server and the job sweeper. It blocks until the
// listener closes.
func (s *Server) Start() error {
	go s.jobs.sweepLoop(s.baseCtx)

	logger.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.Server.ReadTimeout.String(),
		"write_timeout", s.config.Server.WriteTimeout.String(),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown drains the HTTP server within ctx, then cancels whatever is
// still in flight (long-running streams and async jobs).
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")

	err := s.httpServer.Shutdown(ctx)
	s.baseCancel()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing).
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.deps.DB.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	checks["database"] = "ok"

	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
