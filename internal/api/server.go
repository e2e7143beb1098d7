package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ictserve/ictserve/internal/approval"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
	"github.com/ictserve/ictserve/internal/rules"
	"github.com/ictserve/ictserve/internal/sla"
)

// Server represents the HTTP admin API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, store domain.Store, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, matrix *approval.Matrix, slaService *sla.Service, dispatcher *dispatch.Dispatcher, version string) *Server {
	handler := NewHandler(store, cache, bus, engine, matrix, slaService, dispatcher, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Operational endpoints (no module scope)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", MetricsHandler())

	// Module-scoped admin surface
	router.Route("/modules/{module}", func(r chi.Router) {
		r.Use(ModuleMiddleware)

		// Evaluation pipeline
		r.Post("/evaluate", handler.Evaluate)
		r.Get("/evaluations/{id}", handler.GetEvaluation)
		r.Get("/targets/{id}", handler.GetTarget)
		r.Get("/targets/{id}/notifications", handler.ListNotifications)

		// Automation rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", handler.ListRules)
			r.Post("/", handler.SaveRule)
			r.Post("/test", handler.TestRules)
			r.Post("/reset", handler.ResetRules)
			r.Get("/export", handler.ExportRules)
			r.Post("/import", handler.ImportRules)
			r.Get("/{id}", handler.GetRule)
			r.Put("/{id}", handler.SaveRule)
			r.Delete("/{id}", handler.DeleteRule)
		})

		// Approval matrix
		r.Route("/approval-rules", func(r chi.Router) {
			r.Get("/", handler.ListApprovalRules)
			r.Post("/", handler.SaveApprovalRule)
			r.Post("/test", handler.TestApprovalRules)
			r.Post("/reset", handler.ResetApprovalRules)
			r.Get("/export", handler.ExportApprovalRules)
			r.Post("/import", handler.ImportApprovalRules)
			r.Get("/{id}", handler.GetApprovalRule)
			r.Put("/{id}", handler.SaveApprovalRule)
			r.Delete("/{id}", handler.DeleteApprovalRule)
		})

		// SLA configuration
		r.Route("/sla", func(r chi.Router) {
			r.Get("/", handler.GetSLAConfig)
			r.Put("/", handler.PutSLAConfig)
			r.Post("/test", handler.TestSLA)
			r.Post("/reset", handler.ResetSLAConfig)
			r.Get("/export", handler.ExportSLAConfig)
			r.Post("/import", handler.ImportSLAConfig)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
