package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/api/router"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/auth"
	appconfig "github.com/vaishnavimodi30/healthsphere-portal/internal/config"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/handlers"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/observability/metrics"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/scheduling"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting healthsphere portal gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"auth_mode", cfg.AuthMode,
		"session_backend", cfg.SessionBackend,
	)

	store := newSessionStore(cfg, logger)

	registry := prometheus.NewRegistry()
	portalMetrics := metrics.NewPortalMetrics(registry)

	backend := upstream.NewClient(cfg.BackendBaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout}),
		upstream.WithLogger(logger),
		upstream.WithObserver(portalMetrics),
	)

	secret := cfg.AuthJWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("AUTH_JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}

	var authenticator auth.Authenticator
	switch cfg.AuthMode {
	case "remote":
		authenticator = auth.NewRemoteAuthenticator(backend)
	default:
		authenticator = auth.NewStubAuthenticator(secret, cfg.AuthStubDelay, cfg.TokenTTL)
	}
	gateway := auth.NewGateway(authenticator, store, logger)

	window := scheduling.NewDateWindow(cfg.BookingWindowDays)
	workflows := scheduling.NewManager(backend, window, logger)
	workflows.StaleHook = portalMetrics.ObserveStaleSlotDrop

	clearSession := func(ctx context.Context, clientID string) {
		if err := store.Clear(ctx, clientID); err != nil {
			logger.Error("failed to clear session", "client_id", clientID, "error", err)
		}
	}

	r := router.New(&router.Config{
		Logger:              logger,
		SessionStore:        store,
		AuthHandler:         handlers.NewAuthHandler(gateway, workflows, portalMetrics, logger),
		RoutesHandler:       handlers.NewRoutesHandler(),
		DirectoryHandler:    handlers.NewDirectoryHandler(backend, clearSession, logger),
		BookingHandler:      handlers.NewBookingHandler(workflows, portalMetrics, clearSession, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(backend, clearSession, logger),
		RecordsHandler:      handlers.NewRecordsHandler(backend, clearSession, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newSessionStore wires the configured session backend. Redis is the
// default; memory is for local development only and loses sessions on
// restart.
func newSessionStore(cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.SessionBackend == "memory" {
		logger.Warn("using in-memory session store; sessions will not survive a restart")
		return session.NewMemoryStore()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	return session.NewRedisStore(client, cfg.SessionTTL)
}
