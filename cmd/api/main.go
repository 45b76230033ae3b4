package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obafela/venuescout/backend/internal/adapters/cache"
	"github.com/obafela/venuescout/backend/internal/adapters/jobs"
	"github.com/obafela/venuescout/backend/internal/adapters/providers/availability"
	"github.com/obafela/venuescout/backend/internal/adapters/providers/places"
	"github.com/obafela/venuescout/backend/internal/api/handlers"
	"github.com/obafela/venuescout/backend/internal/api/routes"
	"github.com/obafela/venuescout/backend/internal/application/services"
	"github.com/obafela/venuescout/backend/internal/broadcast"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/internal/infrastructure/clients/llm"
	redisclient "github.com/obafela/venuescout/backend/internal/infrastructure/clients/redis"
	tsclient "github.com/obafela/venuescout/backend/internal/infrastructure/clients/typesense"
	"github.com/obafela/venuescout/backend/internal/infrastructure/observability"
	"github.com/obafela/venuescout/backend/pkg/config"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var otelShutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		otelShutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				if err := otelShutdown(sctx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize Redis client
	redisClient, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-process cache and job store")
		redisClient = nil
	} else {
		logger.Info().Msg("Redis client initialized")
	}

	// Cache and job store: Redis-backed when available, in-process otherwise
	var cacheProvider providers.CacheProvider
	var jobStore providers.JobStore
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		jobStore = jobs.NewRedisStore(redisClient, cfg.Pipeline.JobTTL)
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		jobStore = jobs.NewMemoryStore(cfg.Pipeline.JobTTL)
	}

	// Place-search provider
	var placeProvider providers.PlaceSearchProvider
	switch cfg.Places.Provider {
	case "typesense":
		typesenseClient, err := tsclient.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Typesense client")
		}
		adapter := places.NewTypesenseProvider(typesenseClient)
		if err := adapter.InitSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to init Typesense schema")
		}
		placeProvider = adapter
	case "mock":
		placeProvider = places.NewMockProvider(nil)
	default:
		if cfg.Places.APIKey == "" {
			logger.Warn().Msg("PLACES_API_KEY is not set, using mock place provider")
			placeProvider = places.NewMockProvider(nil)
		} else {
			placeProvider = places.NewGoogleProvider(cfg.Places.APIKey, cfg.Places.Timeout)
		}
	}

	// Assistant provider
	assistant, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM client")
	}

	// Availability provider for enrichment
	var availabilityProvider providers.AvailabilityProvider
	if cfg.Enrichment.BaseURL == "" {
		logger.Warn().Msg("AVAILABILITY_BASE_URL is not set, using mock availability provider")
		availabilityProvider = availability.NewMockProvider(cfg.Enrichment.Provider, nil)
	} else {
		availabilityProvider = availability.NewHTTPProvider(
			cfg.Enrichment.Provider, cfg.Enrichment.BaseURL, cfg.Enrichment.APIKey, nil)
	}

	// Broadcast manager
	manager := broadcast.NewManager(cfg.Broadcast, observability.ComponentLogger("broadcast"), metrics)

	// Services
	languageService := services.NewLanguageService(cfg.Pipeline.SearchLanguagePolicy, cfg.Pipeline.DefaultRegion)
	rankingService, err := services.NewRankingService()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid order profile table")
	}

	pipelineService := services.NewPipelineService(
		cfg.Pipeline,
		assistant,
		placeProvider,
		cacheProvider,
		jobStore,
		manager,
		languageService,
		rankingService,
		metrics,
	)

	enrichmentService, err := services.NewEnrichmentService(
		cfg.Enrichment,
		availabilityProvider,
		cacheProvider,
		manager,
		metrics,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize enrichment service")
	}

	// Handlers and router
	searchHandler := handlers.NewSearchHandler(pipelineService, manager)
	statusHandler := handlers.NewStatusHandler(jobStore)
	enrichHandler := handlers.NewEnrichHandler(enrichmentService, availabilityProvider.Name())

	router := routes.NewRouter(searchHandler, statusHandler, enrichHandler, manager)
	handler := router.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	// Drain order is strict: stop intake, close live connections, fail
	// running jobs, close shared backends. Each phase is best-effort so a
	// failure in one does not abort the rest.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Phase 1: stop intake
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("error during server shutdown")
	}

	// Phase 2: close live connections with the shutdown reason
	manager.CloseAll(broadcast.SourceServerShutdown)

	// Phase 3: mark running jobs failed
	if running, err := jobStore.ListRunning(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to list running jobs during drain")
	} else {
		for _, job := range running {
			if err := jobStore.SetError(shutdownCtx, job.RequestID,
				string(apperrors.ErrorTypeServerShutdown), "server shutting down"); err != nil {
				logger.Warn().Err(err).Str("request_id", job.RequestID).Msg("failed to drain job")
			}
		}
		logger.Info().Int("drained", len(running)).Msg("running jobs marked failed")
	}

	// Phase 4: close shared backends
	enrichmentService.Close()
	manager.Close()
	assistant.Close()
	if err := jobStore.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing job store")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing Redis client")
		}
	}

	logger.Info().Msg("server stopped")
}
