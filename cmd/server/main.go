package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asakaida/commerce-api/internal/handlers"
	"github.com/asakaida/commerce-api/internal/infrastructure/cache"
	"github.com/asakaida/commerce-api/internal/infrastructure/config"
	"github.com/asakaida/commerce-api/internal/infrastructure/database"
	"github.com/asakaida/commerce-api/internal/infrastructure/health"
	"github.com/asakaida/commerce-api/internal/infrastructure/logging"
	"github.com/asakaida/commerce-api/internal/infrastructure/metrics"
	"github.com/asakaida/commerce-api/internal/repositories"
	"github.com/asakaida/commerce-api/internal/repositories/postgres"
	"github.com/asakaida/commerce-api/internal/services/authorization"
	"github.com/asakaida/commerce-api/internal/services/crud"
	"github.com/asakaida/commerce-api/internal/services/metadata"
	"github.com/asakaida/commerce-api/internal/services/serializer"
	"github.com/asakaida/commerce-api/pkg/cache/shardcache"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultEnv = "dev"

	// metricsUpdateInterval is how often cache gauges are refreshed
	metricsUpdateInterval = 10 * time.Second

	// healthCheckInterval is how often the database is pinged
	healthCheckInterval = 10 * time.Second

	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Setup(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("connected to database",
		"user", cfg.Database.User,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database)

	// Entity registry
	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		return fmt.Errorf("failed to build entity registry: %w", err)
	}

	// Every catalog table must exist before requests are served
	sqlTables := make([]string, 0, len(registry.Tables()))
	for _, table := range registry.Tables() {
		desc, err := registry.Resolve(table)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", table, err)
		}
		sqlTables = append(sqlTables, desc.SQLTable)
	}
	if err := pg.VerifyTables(ctx, sqlTables...); err != nil {
		return fmt.Errorf("store schema is incomplete, run cmd/migrate up: %w", err)
	}

	// Initialize repositories
	entityRepo := postgres.NewPostgresEntityRepository(pg.DB)
	var tokenRepo repositories.TokenRepository = postgres.NewPostgresTokenRepository(pg.DB)

	// Initialize metrics
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector)

	// Optional access token cache, invalidated by NOTIFY
	if cfg.Cache.Enabled {
		tokenCache, err := shardcache.New(ctx, &shardcache.Config{
			TTL:         time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			Shards:      cfg.Cache.Shards,
			MaxMemoryMB: cfg.Cache.MaxMemoryMB,
		})
		if err != nil {
			return fmt.Errorf("failed to create token cache: %w", err)
		}
		defer tokenCache.Close()

		cached := cache.NewCachedTokenRepository(tokenRepo, tokenCache)
		invalidator := cache.NewTokenInvalidator(cached, cfg.Database.ConnectionString())
		if err := invalidator.Start(ctx); err != nil {
			return fmt.Errorf("failed to start token invalidator: %w", err)
		}
		defer invalidator.Stop()

		tokenRepo = cached
		collector.SetCache(tokenCache)

		slog.Info("access token cache enabled",
			"ttl_minutes", cfg.Cache.TTLMinutes,
			"max_memory_mb", cfg.Cache.MaxMemoryMB)
	}

	// Initialize services
	policy, err := authorization.NewDefaultPolicy()
	if err != nil {
		return fmt.Errorf("failed to create visibility policy: %w", err)
	}
	guard := authorization.NewGuard(tokenRepo, policy, cfg.OAuth2.Realm)
	service := crud.NewService(entityRepo, serializer.NewSerializer(registry, entityRepo))

	// HTTP API
	crudHandler := handlers.NewCRUDHandler(registry, guard, service)
	apiServer := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler: handlers.NewRouter(crudHandler, registry, handlers.RouterConfig{
			Prefix:         cfg.Server.APIPrefix,
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			Middleware: []mux.MiddlewareFunc{
				metrics.HTTPMiddleware(collector, exporter, handlers.RouteLabels),
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics HTTP server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.MetricsPort)),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health service
	healthServer := health.NewServer(pg, healthCheckInterval)
	healthListener, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.HealthPort)))
	if err != nil {
		return fmt.Errorf("failed to listen on health port: %w", err)
	}

	// Start servers
	serverErrors := make(chan error, 3)
	go func() {
		slog.Info("API server listening", "addr", apiServer.Addr, "prefix", cfg.Server.APIPrefix)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("API server error: %w", err)
		}
	}()
	go func() {
		slog.Info("metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	go func() {
		slog.Info("health server listening", "addr", healthListener.Addr().String())
		if err := healthServer.Serve(ctx, healthListener); err != nil {
			serverErrors <- err
		}
	}()
	go updateMetrics(ctx, exporter)

	// Wait for shutdown signal or server error
	var runErr error
	select {
	case runErr = <-serverErrors:
	case <-ctx.Done():
		slog.Info("initiating graceful shutdown")
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	healthServer.Stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", "error", err)
	}

	slog.Info("shutdown complete")
	return runErr
}

// updateMetrics refreshes gauge metrics until ctx is done
func updateMetrics(ctx context.Context, exporter *metrics.PrometheusExporter) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exporter.Update()
		}
	}
}
