package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/foodinspector/internal/adapters/cache"
	"github.com/zatekoja/foodinspector/internal/adapters/descriptors"
	"github.com/zatekoja/foodinspector/internal/adapters/events"
	"github.com/zatekoja/foodinspector/internal/adapters/store"
	"github.com/zatekoja/foodinspector/internal/api/handlers"
	"github.com/zatekoja/foodinspector/internal/api/middleware"
	"github.com/zatekoja/foodinspector/internal/api/routes"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/internal/infrastructure/clients/inspectionapi"
	"github.com/zatekoja/foodinspector/internal/infrastructure/clients/redis"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	"github.com/zatekoja/foodinspector/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Establishment store; a Redis outage at startup degrades to memory
	backend, err := store.Open(cfg, metrics)
	if err != nil {
		if cfg.Establishments.Store != "redis" {
			log.Fatal().Err(err).Str("store", cfg.Establishments.Store).Msg("Failed to open establishment store")
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory establishment store")
		backend = store.NewMemoryBackend(metrics)
	}
	defer backend.Close()
	log.Info().Str("store", backend.Name).Msg("Establishment store ready")

	// Response and snapshot cache
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
		cacheProvider = cache.NewMemoryAdapter()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, "foodinspector:")
	}

	descriptorSource := descriptors.NewFileSource(cfg.Establishments.DescriptorPath)
	establishmentService := services.NewEstablishmentService(descriptorSource, backend.Store)

	apiClient := inspectionapi.NewClient(&cfg.InspectionAPI)
	fetcher := services.NewRecordFetcher(
		services.NewQueryBuilder(cfg.InspectionAPI.BaseURI, cfg.InspectionAPI.RelativeURI),
		apiClient,
		backend.Store,
		services.RecordFetcherConfig{
			StartDate:      cfg.InspectionAPI.StartDate,
			Timeout:        cfg.InspectionAPI.Timeout,
			MaxConcurrency: cfg.InspectionAPI.MaxConcurrency,
			RetryAttempts:  cfg.InspectionAPI.RetryAttempts,
			IsRetryable:    inspectionapi.IsRetryable,
		},
		metrics,
	)

	var snapshotService *services.SnapshotService
	var snapshots handlers.SnapshotReader
	if cfg.Snapshot.Enabled {
		snapshotService = services.NewSnapshotService(fetcher, cacheProvider, cfg.Snapshot.Schedule, cfg.Snapshot.TTL, metrics)
		snapshots = snapshotService
	}

	// Cross-replica refresh notifications need Redis pub/sub
	var eventBus providers.EventBus
	var cacheInvalidationService *services.CacheInvalidationService
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		establishmentService.SetEventBus(eventBus)
		if snapshotService != nil {
			cacheInvalidationService = services.NewCacheInvalidationService(snapshotService, eventBus)
			if err := cacheInvalidationService.Start(); err != nil {
				log.Warn().Err(err).Msg("Failed to start cache invalidation service")
				cacheInvalidationService = nil
			}
		}
	} else {
		log.Info().Msg("Event bus disabled (Redis not available)")
	}

	router := routes.NewRouter(
		handlers.NewEstablishmentHandler(establishmentService),
		handlers.NewInspectionHandler(fetcher, snapshots),
		middleware.NewCacheMiddleware(cacheProvider, metrics),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Snapshots start with the first successful load, whether from startup or an admin refresh
	if snapshotService != nil {
		establishmentService.OnReady(func() {
			go startSnapshots(ctx, snapshotService)
		})
	}

	// /ready stays 503 until the establishments are loaded
	go func() {
		if err := establishmentService.Initialize(ctx); err != nil {
			log.Error().Err(err).Msg("Establishment initialization failed; use the admin refresh endpoint to retry")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}
	if snapshotService != nil {
		snapshotService.Stop(shutdownCtx)
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}

func startSnapshots(ctx context.Context, snapshotService *services.SnapshotService) {
	if ctx.Err() != nil {
		return
	}
	if err := snapshotService.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start snapshot scheduler")
		return
	}
	if err := snapshotService.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial snapshot refresh failed")
	}
}
