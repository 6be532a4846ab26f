package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/projecthub/internal/api"
	"github.com/terra-clan/projecthub/internal/catalog"
	"github.com/terra-clan/projecthub/internal/cleanup"
	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/internal/review"
	"github.com/terra-clan/projecthub/internal/services"
	"github.com/terra-clan/projecthub/pkg/client"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadWeb()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting projecthub-web",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"upstream", cfg.Upstream.URL,
		"session_store", cfg.Session.Store,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Proposal service client
	upstream := client.NewClient(cfg.Upstream.URL, client.WithTimeout(cfg.Upstream.Timeout))

	// Initialize service registry
	registry := services.NewRegistry()
	registry.Register("upstream", services.NewCheckerFunc("http", upstream.Health))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	var (
		sessions kv.Store
		closers  []func() error
		cleaner  *cleanup.Cleaner
	)
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		store, err := kv.NewRedisStore(initCtx, kv.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.TTL,
		})
		if err != nil {
			slog.Error("failed to connect session store", "error", err)
			os.Exit(1)
		}
		registry.Register("redis", services.NewRedisChecker(store.Client()))
		sessions = store
		closers = append(closers, store.Close)
		slog.Info("redis session store connected", "address", cfg.Redis.Address)
	default:
		store := kv.NewMemoryStore(cfg.Session.TTL)
		sessions = store

		// Expired entries of the memory store are reaped periodically
		cleaner = cleanup.NewCleaner(store, cfg.Cleanup.Interval)
		cleaner.Start(ctx)
	}

	// Warm the catalog; the first request retries on failure
	store := catalog.NewStore(upstream)
	if err := store.Refresh(initCtx); err != nil {
		slog.Warn("initial catalog fetch failed", "error", err)
	} else {
		slog.Info("catalog loaded", "topics", len(store.Topics()))
	}

	// Setup HTTP server
	server := api.NewServer(cfg, store, review.NewPipeline(upstream), upstream, sessions, registry)
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
	if cleaner != nil {
		<-cleaner.Done()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			slog.Error("close error", "error", err)
		}
	}

	slog.Info("projecthub-web stopped")
}
