// Package server provides the HTTP server and routing for the decision engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/di"
	claimshandlers "github.com/agrisentinel/agrisentinel/internal/modules/claims/handlers"
	evaluationhandlers "github.com/agrisentinel/agrisentinel/internal/modules/evaluation/handlers"
	lendinghandlers "github.com/agrisentinel/agrisentinel/internal/modules/lending/handlers"
	providershandlers "github.com/agrisentinel/agrisentinel/internal/modules/providers/handlers"
)

// Version is reported by /health
const Version = "1.0.0"

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Container *di.Container // DI container with all services
	Jobs      *di.JobInstances
	DataDir   string
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	cfg     Config
	system  *SystemHandlers
	stream  *EventsStreamHandler
	started time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		cfg:     cfg,
		started: time.Now(),
	}

	s.system = NewSystemHandlers(cfg.Container, cfg.Jobs, cfg.DataDir, cfg.Log)
	s.stream = NewEventsStreamHandler(cfg.Container.EventBus, cfg.Log)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.cfg.Container

	// Long-lived websocket; kept outside the timeout and compression groups
	s.router.Get("/api/events/ws", s.stream.ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if !s.cfg.DevMode {
			r.Use(middleware.Compress(5))
		}

		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.HandlerFor(c.MetricsRegistry, promhttp.HandlerOpts{}))

		evaluationhandlers.NewHandler(c.EvaluationService, s.log).RegisterRoutes(r)
		lendinghandlers.NewHandler(c.LendingService, s.log).RegisterRoutes(r)
		claimshandlers.NewHandler(c.ClaimsService, s.log).RegisterRoutes(r)

		var invalidator providershandlers.SeriesInvalidator
		if c.SeriesCache != nil {
			invalidator = c.SeriesCache
		}
		providershandlers.NewHandler(c.HistoryRepo, c.Registry, invalidator, s.log).RegisterRoutes(r)

		r.Route("/api/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleStatus)
			r.Get("/jobs", s.system.HandleListJobs)
			r.Post("/jobs/{name}/run", s.system.HandleRunJob)
		})
	})
}

// handleHealth checks both databases
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string)
	for _, db := range s.cfg.Container.Databases() {
		if err := db.HealthCheck(r.Context()); err != nil {
			checks[db.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[db.Name()] = "ok"
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "unhealthy"
	}
	s.writeJSON(w, status, map[string]interface{}{
		"status":         health,
		"version":        Version,
		"service":        "agrisentinel",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"databases":      checks,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
