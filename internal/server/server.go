// Package server provides the HTTP server and routing for qpixel.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qpixel/internal/database"
	"github.com/aristath/qpixel/internal/events"
	circuithandlers "github.com/aristath/qpixel/internal/modules/circuit/handlers"
	decodinghandlers "github.com/aristath/qpixel/internal/modules/decoding/handlers"
	gradinghandlers "github.com/aristath/qpixel/internal/modules/grading/handlers"
	"github.com/aristath/qpixel/internal/scheduler"
)

// Version is reported by the health and status endpoints
var Version = "dev"

// RequestTimeout bounds every non-streaming API request
const RequestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	DB       *database.DB
	EventBus *events.Bus
	Port     int
	DevMode  bool

	Runs            RunTracker
	CircuitHandler  *circuithandlers.Handler
	DecodingHandler *decodinghandlers.Handler
	GradingHandler  *gradinghandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DB, cfg.Runs),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(jobs ...scheduler.Job) {
	s.systemHandlers.SetJobs(jobs...)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes. Streaming routes skip the timeout and
// compression middleware.
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))
			if !cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
				r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
			})

			if cfg.CircuitHandler != nil {
				cfg.CircuitHandler.RegisterRoutes(r)
			}
			if cfg.DecodingHandler != nil {
				cfg.DecodingHandler.RegisterRoutes(r)
			}
			if cfg.GradingHandler != nil {
				cfg.GradingHandler.RegisterRoutes(r)
			}
		})

		if cfg.GradingHandler != nil {
			cfg.GradingHandler.RegisterStreamRoutes(r)
		}
		if cfg.EventBus != nil {
			r.Get("/events/stream", NewEventsStreamHandler(cfg.EventBus, s.log).ServeHTTP)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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
