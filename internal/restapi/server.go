// Package restapi is the reference implementation of the proposal service
// REST API consumed by pkg/client.
package restapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/services"
	"github.com/terra-clan/projecthub/internal/storage"
)

// Server represents the proposal service HTTP API
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	repo           storage.Repository
	auth           *Auth
	authMiddleware *AuthMiddleware
	hub            *StatsHub
	registry       *services.Registry
	now            func() time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo storage.Repository,
	auth *Auth,
	enforceAuth bool,
	registry *services.Registry,
) *Server {
	s := &Server{
		config:         cfg,
		repo:           repo,
		auth:           auth,
		authMiddleware: NewAuthMiddleware(auth, enforceAuth),
		hub:            NewStatsHub(repo),
		registry:       registry,
		now:            time.Now,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the statistics stream hub
func (s *Server) Hub() *StatsHub {
	return s.hub
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		r.Route("/topics", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/", s.handleListTopics)
			r.With(s.authMiddleware.RequirePermission("topics:write")).Post("/", s.handleCreateTopic)
			r.With(s.authMiddleware.RequirePermission("topics:write")).Delete("/{id}", s.handleDeleteTopic)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
		})

		r.Route("/proposals", func(r chi.Router) {
			// The stream is long lived and stays outside the request timeout
			r.With(s.authMiddleware.RequirePermission("proposals:review")).
				Get("/admin/stats/stream", s.hub.ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.With(s.authMiddleware.RequirePermission("proposals:submit")).Post("/", s.handleSubmitProposal)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Use(s.authMiddleware.RequirePermission("proposals:review"))
				r.Get("/admin/all", s.handleListProposals)
				r.Get("/admin/stats", s.handleProposalStats)
				r.Put("/admin/update/{id}", s.handleUpdateProposal)
				r.Delete("/{id}", s.handleDeleteProposal)
			})
		})
	})

	s.router = r
}

// notifyChange refreshes the statistics stream after a write
func (s *Server) notifyChange() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Notify(ctx)
	}()
}

// loggingMiddleware logs HTTP requests using slog
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
