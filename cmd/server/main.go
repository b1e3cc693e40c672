package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/harmony-node/internal/api"
	"github.com/Priya8975/harmony-node/internal/auth"
	"github.com/Priya8975/harmony-node/internal/config"
	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/engine"
	"github.com/Priya8975/harmony-node/internal/events"
	"github.com/Priya8975/harmony-node/internal/remote"
	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/Priya8975/harmony-node/internal/store"
	ws "github.com/Priya8975/harmony-node/internal/websocket"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The node's key signs outbound requests and decrypts registrations.
	privateKey, err := signature.LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		logger.Error("failed to load private key", "path", cfg.PrivateKeyPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL, credential.NewVault(cfg.PasswordEncryptionKey))
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	checks := map[string]api.Pinger{"postgres": pgStore}

	// Redis is optional; without it there is no rate limiting or circuit breaking.
	var (
		breaker *engine.CircuitBreaker
		limiter *engine.RateLimiter
	)
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")

		breaker = engine.NewCircuitBreaker(redisStore.Client(), cfg.CircuitFailureThreshold, cfg.CircuitCooldown, logger)
		limiter = engine.NewRateLimiter(redisStore.Client(), cfg.RateLimitWindow, logger)
		checks["redis"] = redisStore
	}

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	httpClient := &http.Client{Timeout: cfg.RemoteTimeout}
	opts := []events.Option{events.WithObserver(hub)}
	if breaker != nil {
		opts = append(opts, events.WithBreaker(breaker))
	}
	eventRouter := events.NewRouter(pgStore,
		remote.NewTokenClient(httpClient, logger),
		remote.NewInvoker(httpClient, signature.NewSigner(privateKey), logger),
		engine.NewFanOutEngine(cfg.MaxFanOut, logger),
		logger,
		opts...,
	)

	router := api.NewRouter(api.Deps{
		Store:          pgStore,
		Events:         eventRouter,
		Hub:            hub,
		Authority:      auth.NewAuthority(cfg.JWTSecret, cfg.JWTIssuer),
		Decryptor:      credential.NewDecryptor(privateKey),
		Breaker:        breaker,
		Limiter:        limiter,
		EventRateLimit: cfg.EventRateLimit,
		Checks:         checks,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.RemoteTimeout*2,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port, "max_fan_out", cfg.MaxFanOut, "redis", cfg.RedisURL != "")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	cancel()

	logger.Info("server stopped")
}
