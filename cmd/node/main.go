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
	"github.com/saludtec/fedhistoria/internal/registry"
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
	logger.Init("fedhistoria-node", cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting peripheral node")

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

	if err := database.Connect(dbConfig, "node"); err != nil {
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
	documentRepo := repository.NewDocumentRepository()
	patientRepo := repository.NewPatientRepository()

	// Initialize registry sync client with the node's service identity
	tokenSource := identity.NewTokenSource(cfg.ServiceAuth)
	registryClient := registry.NewClient(cfg.Registry, tokenSource)

	// Initialize services
	documentService := services.NewDocumentService(
		documentRepo,
		patientRepo,
		registryClient,
		cacheImpl,
		cfg.Cache.TTL,
		cfg.Node.BaseURL,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler("node")
	documentHandler := handlers.NewDocumentHandler(documentService, registryClient)
	patientHandler := handlers.NewPatientHandler(documentService)

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
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "X-Owning-Tenant"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no tenant required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Content retrieval resolves the tenant from the access URI's
		// query parameter, so it stays outside the tenant middleware.
		r.Get("/documentos/{storageId}", documentHandler.GetContent)

		r.Group(func(r chi.Router) {
			r.Use(middleware.TenantID)

			r.Post("/pacientes", patientHandler.Register)
			r.Post("/documentos", documentHandler.Create)
			r.Get("/documentos/{storageId}/metadatos", documentHandler.GetMetadata)

			r.With(middleware.Requester).
				Get("/documentos/paciente/{patientId}", documentHandler.QueryPatient)
		})
	})

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
		log.Info().Str("addr", addr).Msg("Node server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down node server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Node server stopped")
}
