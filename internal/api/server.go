// Package api is the HTTP layer of the student-facing web service.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/projecthub/internal/catalog"
	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/review"
	"github.com/terra-clan/projecthub/internal/services"
)

// Authenticator logs visitors in against the proposal service
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
}

// Server represents the HTTP API server
type Server struct {
	config   *config.WebConfig
	router   *chi.Mux
	catalog  *catalog.Store
	pipeline *review.Pipeline
	auth     Authenticator
	sessions *SessionMiddleware
	registry *services.Registry
	now      func() time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg *config.WebConfig,
	store *catalog.Store,
	pipeline *review.Pipeline,
	auth Authenticator,
	sessions kv.Store,
	registry *services.Registry,
) *Server {
	s := &Server{
		config:   cfg,
		catalog:  store,
		pipeline: pipeline,
		auth:     auth,
		sessions: NewSessionMiddleware(sessions, cfg.Session),
		registry: registry,
		now:      time.Now,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public, no session)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Attach)

		r.Get("/topics", s.handleListTopics)

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", s.handleGetWishlist)
			r.Delete("/", s.handleClearWishlist)
			r.Post("/toggle", s.handleToggleWishlist)
			r.Delete("/{id}", s.handleRemoveFromWishlist)
		})

		r.Route("/proposal", func(r chi.Router) {
			r.Get("/", s.handleGenerateProposal)
			r.Get("/print", s.handlePrintProposal)
			r.Post("/submit", s.handleSubmitProposal)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Post("/logout", s.handleLogout)
			r.Get("/status", s.handleAuthStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/topics", func(r chi.Router) {
				r.Get("/", s.handleAdminListTopics)
				r.Post("/", s.handleAdminCreateTopic)
				r.Delete("/{id}", s.handleAdminDeleteTopic)
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", s.handleAdminListProposals)
				r.Post("/bulk", s.handleAdminBulk)
				r.Put("/{id}/status", s.handleAdminUpdateStatus)
				r.Delete("/{id}", s.handleAdminDeleteProposal)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
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
