package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/restapi"
	"github.com/terra-clan/projecthub/internal/seed"
	"github.com/terra-clan/projecthub/internal/services"
	"github.com/terra-clan/projecthub/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadAPI()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting projecthub-api",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"require_admin", cfg.Auth.RequireAdmin,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:      cfg.Database.DSN,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.RunMigrations(initCtx, repo.Pool(), cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the topic catalog on first start
	loader := seed.NewLoader()
	if err := loader.LoadFromFile(cfg.Seed.File); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("no seed file", "file", cfg.Seed.File)
		} else {
			slog.Warn("failed to load seed file", "file", cfg.Seed.File, "error", err)
		}
	} else if n, err := loader.Apply(initCtx, repo); err != nil {
		slog.Error("failed to seed topics", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("topic catalog seeded", "topics", n)
	}

	// Bootstrap the administrator account
	if cfg.Auth.AdminEmail != "" {
		if _, err := restapi.EnsureAdmin(initCtx, repo, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			slog.Error("failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	} else if cfg.Auth.RequireAdmin {
		slog.Warn("REQUIRE_ADMIN is set but no ADMIN_EMAIL is configured; admin endpoints are unreachable")
	}

	// Initialize service registry
	registry := services.NewRegistry()

	postgresChecker, err := services.NewPostgresChecker(initCtx, cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to create postgres checker", "error", err)
		os.Exit(1)
	}
	registry.Register("postgres", postgresChecker)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup HTTP server
	server := restapi.NewServer(
		cfg.Server,
		repo,
		restapi.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		cfg.Auth.RequireAdmin,
		registry,
	)

	// Changes made by other writers reach the stats stream through NOTIFY
	listener, err := storage.NewChangeListener(cfg.Database.DSN, storage.ProposalsChannel)
	if err != nil {
		slog.Warn("proposal change listener disabled", "error", err)
	} else {
		go listener.Run(ctx, func(op string) {
			slog.Debug("proposals changed", "op", op)
			server.Hub().Notify(ctx)
		})
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if listener != nil {
		if err := listener.Close(); err != nil {
			slog.Error("listener close error", "error", err)
		}
	}
	if err := postgresChecker.Close(); err != nil {
		slog.Error("postgres checker close error", "error", err)
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("projecthub-api stopped")
}
