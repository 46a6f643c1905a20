package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandler "payfort-gateway/internal/adapters/http"
	"payfort-gateway/internal/adapters/messaging/kafka"
	"payfort-gateway/internal/adapters/messaging/mock"
	"payfort-gateway/internal/adapters/storage/postgres"
	"payfort-gateway/internal/adapters/storage/redis"
	"payfort-gateway/internal/app"
	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/ports"
	"payfort-gateway/internal/observability"
	"payfort-gateway/internal/payfort"
)

const serviceName = "payfort-gateway"

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fallbackLogger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port)

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		logger.Error("JWT secret is not set")
		os.Exit(1)
	}

	// --- 2. Observability ---
	shutdownTracer, err := observability.InitTracer(cfg.Jaeger.Port, serviceName)
	if err != nil {
		logger.Error("Failed to initialize tracing", "ERROR", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shutdown tracer", "ERROR", err)
		}
	}()

	// --- 3. Dependencies ---
	ctx := context.Background()

	repo, err := postgres.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "ERROR", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Connected to PostgreSQL")

	// Redis
	rateLimiterRepo, err := redis.NewRateLimiterAdapter(cfg.Redis.Addr)
	if err != nil {
		logger.Error("Failed to connect to Redis", "ERROR", err)
		os.Exit(1)
	}
	defer func() {
		if err := rateLimiterRepo.Close(); err != nil {
			logger.Warn("Failed to close Redis client", "ERROR", err)
		}
	}()

	// Kafka; the mock broker keeps local runs independent of a cluster.
	var broker ports.MessageBroker
	if cfg.Kafka.BootstrapServers == "" {
		logger.Warn("Kafka bootstrap servers not configured, using mock broker")
		broker = mock.NewBroker(logger)
	} else {
		kafkaBroker, err := kafka.NewBroker([]string{cfg.Kafka.BootstrapServers}, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("Failed to create Kafka broker", "ERROR", err)
			os.Exit(1)
		}
		defer kafkaBroker.Close()
		broker = kafkaBroker
		logger.Info("Kafka broker created")
	}

	// --- 4. Service Layer ---
	processor, err := payfort.NewProcessor(cfg.PayFort)
	if err != nil {
		logger.Error("Failed to configure gateway processor", "ERROR", err)
		os.Exit(1)
	}

	service := app.NewService(processor, repo, repo, repo, broker, cfg.PayFort.ReceiptPageURL, logger)

	templates, err := httphandler.NewTemplates()
	if err != nil {
		logger.Error("Failed to parse templates", "ERROR", err)
		os.Exit(1)
	}

	paymentHandler := httphandler.NewPaymentHandler(service, templates, cfg.StatusPage, logger)
	opsHandler := httphandler.NewOpsHandler(service, logger)
	authHandler := httphandler.NewAuthHandler(logger, jwtSecret, cfg.JWT.OpsUsername, cfg.JWT.OpsPassword)
	rateLimiterMiddleware := httphandler.NewRateLimiterMiddleware(
		rateLimiterRepo,
		cfg.RateLimit.Limit,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		logger,
	)

	// --- 5. HTTP Router ---
	r := chi.NewRouter()

	// Public middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		rateLimiterMiddleware.Handler,
		middleware.Logger,
		middleware.Recoverer,
		observability.NewLoggerMiddleware(logger),
		observability.NewMetricsMiddleware(serviceName),
		observability.NewTracingMiddleware(serviceName),
	)

	// Public routes: the payment pages and the gateway callbacks. The
	// callbacks authenticate themselves by signature, never by session.
	paymentHandler.Register(r)

	r.Post("/login", authHandler.HandleLogin)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": serviceName,
		}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes: /api/v1/* is the support surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httphandler.JWTMiddleware([]byte(jwtSecret), logger))
		if cfg.OIDC.URL != "" {
			authenticator, err := httphandler.NewOIDCAuthenticator(ctx, cfg.OIDC.URL, cfg.OIDC.ClientID)
			if err != nil {
				logger.Error("Failed to configure OIDC authenticator", "ERROR", err)
				os.Exit(1)
			}
			r.Use(authenticator.Middleware)
		}
		opsHandler.Register(r)
	})

	// --- 6. HTTP Server ---
	serverAddr := cfg.Server.Port
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited properly")
}
