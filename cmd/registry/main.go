package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/cache"
	"github.com/saludtec/fedhistoria/internal/config"
	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/handlers"
	"github.com/saludtec/fedhistoria/internal/identity"
	"github.com/saludtec/fedhistoria/internal/metrics"
	"github.com/saludtec/fedhistoria/internal/middleware"
	"github.com/saludtec/fedhistoria/internal/repository"
	"github.com/saludtec/fedhistoria/internal/services"
	"github.com/saludtec/fedhistoria/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger and metrics
	logger.Init("fedhistoria-registry", cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting central registry")

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig, "registry"); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}

	// Initialize repositories
	metadataRepo := repository.NewMetadataRepository()
	policyRepo := repository.NewPolicyRepository()
	auditRepo := repository.NewAuditRepository()

	// Service token verification and issuance
	requireAuth := cfg.ServiceAuth.SigningKey != ""
	if !requireAuth {
		log.Warn().Msg("No service auth signing key configured, accepting unauthenticated nodes")
	}
	issuer := identity.NewIssuer(
		[]byte(cfg.ServiceAuth.SigningKey),
		cfg.ServiceAuth.Issuer,
		cfg.ServiceAuth.TokenTTL,
		cfg.ServiceAuth.Clients,
	)

	// Initialize services
	registryService := services.NewRegistryService(metadataRepo, cacheImpl, cfg.Cache.TTL)
	accessService := services.NewAccessService(policyRepo, auditRepo)
	defer accessService.Wait()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler("registry")
	registryHandler := handlers.NewRegistryHandler(registryService, accessService)
	auditHandler := handlers.NewAuditHandler(accessService, auditRepo)
	authHandler := handlers.NewAuthHandler(issuer)
	policyHandler := handlers.NewPolicyHandler(policyRepo)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Instrument)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Service authentication
	r.Post("/service-auth/token", authHandler.Token)

	// Metadata ingestion and query (service-token protected)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceAuth(issuer, requireAuth))

		r.Post("/metadatos-documento", registryHandler.Receive)
		r.Get("/metadatos-documento/paciente/{patientId}", registryHandler.QueryByPatient)
		r.Get("/metadatos-documento/{id}", registryHandler.QueryByID)

		r.Post("/registros", auditHandler.Submit)
	})

	// Policy and audit administration
	r.Post("/politicas", policyHandler.Grant)
	r.Delete("/politicas/{id}", policyHandler.Revoke)
	r.Get("/politicas/paciente/{patientId}", policyHandler.ListByPatient)
	r.With(middleware.TenantID).Get("/registros", auditHandler.ListByTenant)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Registry server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down registry server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Registry server stopped")
}
