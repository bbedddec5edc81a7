package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/idempotency"
	"github.com/conformadev/conforma/internal/job"
	"github.com/conformadev/conforma/internal/kb"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	cfg        Config
	runner     *job.Runner
	jobs       *job.Store
	auditStore *audit.Store
	cache      *idempotency.Cache
	norms      *kb.Store
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all dependencies wired.
func New(cfg Config, runner *job.Runner, jobs *job.Store, auditStore *audit.Store, cache *idempotency.Cache, norms *kb.Store) *Server {
	s := &Server{
		cfg:        cfg,
		runner:     runner,
		jobs:       jobs,
		auditStore: auditStore,
		cache:      cache,
		norms:      norms,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.handleSubmit)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/cancel", s.handleCancel)
		r.Get("/jobs/{id}/result", s.handleResult)
		r.Get("/jobs/{id}/report", s.handleReport)
		r.Get("/jobs/{id}/audit", s.handleAudit)
		r.Get("/jobs/{id}/stream", s.handleStream)
		r.Get("/norms", s.handleNorms)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("conforma server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
