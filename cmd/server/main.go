// CloserFlow - WhatsApp sales qualification agent server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/agent"
	"github.com/closerflow/whatsapp-agent/internal/api"
	"github.com/closerflow/whatsapp-agent/internal/config"
	"github.com/closerflow/whatsapp-agent/internal/llm"
	"github.com/closerflow/whatsapp-agent/internal/middleware"
	"github.com/closerflow/whatsapp-agent/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "session_store", cfg.Sessions.Store, "model", cfg.OpenAI.Model)
	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		slog.Warn("Provider credentials missing, affected endpoints will return 500", "missing", missing)
	}

	// Initialize dependencies.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	sessions, err := store.New(startupCtx, store.Options{
		Driver:     cfg.Sessions.Store,
		TTL:        cfg.Sessions.TTL,
		MaxSenders: cfg.Sessions.MaxSenders,
		RedisURL:   cfg.Sessions.RedisURL,
		SQLitePath: cfg.Sessions.SQLitePath,
	})
	cancelStartup()
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Session store ready", "driver", cfg.Sessions.Store, "ttl", cfg.Sessions.TTL)

	gateway := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	}, logger)

	metrics := agent.MustNewMetrics(prometheus.DefaultRegisterer)

	// Initialize services and handlers.
	agentService := agent.NewService(sessions, gateway, agent.ServiceConfig{
		Model: cfg.OpenAI.Model,
	}, metrics, logger)
	agentHandler := agent.NewHandler(agentService, agent.HandlerConfig{
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		TwilioAuthToken:    cfg.Twilio.AuthToken,
		WebhookURL:         cfg.Twilio.WebhookURL,
		DedupTTL:           cfg.WebhookDedupTTL,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, metrics, logger)
	healthHandler := api.NewHealthHandler(sessions, cfg.HealthCheckTimeout)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Operational routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.Handler())

	// Agent routes.
	agentHandler.RegisterRoutes(r)

	// Create server. Generation can take up to the OpenAI timeout, so the write
	// timeout leaves headroom above it.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OpenAI.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session janitor (SQLite only; other stores expire entries themselves).
	if store.StartJanitor(ctx, sessions, store.DefaultJanitorInterval) {
		slog.Info("Session janitor scheduled", "ttl", cfg.Sessions.TTL)
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
