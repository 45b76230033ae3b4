package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/internal/infrastructure/observability"
	"github.com/obafela/venuescout/backend/pkg/config"
)

// EnrichmentService resolves third-party availability for places and
// broadcasts the result as RESULT_PATCH events. The flow is cache-first and
// idempotent per (provider, placeId): a TTL-bounded lock guarantees at most
// one live lookup per pair, and a consumer always ends up with a patch,
// FOUND or NOT_FOUND, never silence.
type EnrichmentService struct {
	cfg          config.EnrichmentConfig
	availability providers.AvailabilityProvider
	cache        providers.CacheProvider
	publisher    providers.Publisher
	pool         *ants.Pool
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

// NewEnrichmentService creates the worker service with a fixed-size pool.
func NewEnrichmentService(
	cfg config.EnrichmentConfig,
	availability providers.AvailabilityProvider,
	cache providers.CacheProvider,
	publisher providers.Publisher,
	metrics *observability.Metrics,
) (*EnrichmentService, error) {
	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &EnrichmentService{
		cfg:          cfg,
		availability: availability,
		cache:        cache,
		publisher:    publisher,
		pool:         pool,
		metrics:      metrics,
		logger:       observability.ComponentLogger("enrichment"),
	}, nil
}

// Close releases the worker pool.
func (s *EnrichmentService) Close() {
	s.pool.Release()
}

// Request handles one enrichment request. Cache hit publishes the cached
// patch immediately; otherwise the lookup runs on the pool behind the
// (provider, placeId) lock. Losing the lock race is a no-op: the holder's
// resolution will produce the patch.
func (s *EnrichmentService) Request(ctx context.Context, job entities.EnrichmentJob) error {
	if data, err := s.cache.Get(ctx, job.CacheKey()); err == nil {
		var patch entities.ProviderPatch
		if err := json.Unmarshal(data, &patch); err == nil {
			s.countJob(ctx, "cache_hit")
			return s.PublishProviderPatch(ctx, job.RequestID, &patch)
		}
		_ = s.cache.Delete(ctx, job.CacheKey())
	}

	acquired, err := s.cache.SetIfAbsent(ctx, job.LockKey(), []byte("1"), s.cfg.LockTTL)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", job.Provider).
			Str("place_id", job.PlaceID).
			Msg("lock acquisition failed")
		return s.publishFallback(ctx, job)
	}
	if !acquired {
		s.countJob(ctx, "deduplicated")
		return nil
	}

	// Detached from the request: the lookup outlives the HTTP response
	dctx := context.WithoutCancel(ctx)
	if err := s.pool.Submit(func() { s.resolve(dctx, job) }); err != nil {
		s.logger.Error().Err(err).
			Str("provider", job.Provider).
			Str("place_id", job.PlaceID).
			Msg("worker submit failed")
		_ = s.cache.Delete(ctx, job.LockKey())
		return s.publishFallback(ctx, job)
	}

	s.countJob(ctx, "submitted")
	return nil
}

func (s *EnrichmentService) resolve(ctx context.Context, job entities.EnrichmentJob) {
	defer func() {
		if err := s.cache.Delete(ctx, job.LockKey()); err != nil {
			s.logger.Debug().Err(err).Str("key", job.LockKey()).Msg("lock release failed, TTL will reap it")
		}
	}()

	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	patch, err := s.availability.Lookup(lctx, job.PlaceID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", job.Provider).
			Str("place_id", job.PlaceID).
			Msg("availability lookup failed")
		patch = notFoundPatch(job)
	}
	patch.UpdatedAt = time.Now().UTC()

	if data, err := json.Marshal(patch); err == nil {
		if err := s.cache.Set(ctx, job.CacheKey(), data, s.cfg.PatchTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", job.CacheKey()).Msg("patch cache write failed")
		}
	}

	s.countJob(ctx, "resolved_"+string(patch.Status))
	if err := s.PublishProviderPatch(ctx, job.RequestID, patch); err != nil {
		s.logger.Error().Err(err).
			Str("provider", job.Provider).
			Str("place_id", job.PlaceID).
			Msg("patch publish failed")
	}
}

// publishFallback delivers a NOT_FOUND patch when no worker could take the
// job, so the consumer is never left waiting for a patch that will not come.
func (s *EnrichmentService) publishFallback(ctx context.Context, job entities.EnrichmentJob) error {
	patch := notFoundPatch(job)
	patch.UpdatedAt = time.Now().UTC()
	s.countJob(ctx, "fallback")
	return s.PublishProviderPatch(ctx, job.RequestID, patch)
}

// PublishProviderPatch is the single publish path for every patch,
// regardless of how it was resolved.
func (s *EnrichmentService) PublishProviderPatch(ctx context.Context, requestID string, patch *entities.ProviderPatch) error {
	return s.publisher.Publish(ctx, providers.ChannelSearch, requestID, &entities.OutboundEvent{
		Type:      entities.EventResultPatch,
		RequestID: requestID,
		Payload:   patch,
	})
}

func notFoundPatch(job entities.EnrichmentJob) *entities.ProviderPatch {
	return &entities.ProviderPatch{
		Provider: job.Provider,
		PlaceID:  job.PlaceID,
		Status:   entities.PatchNotFound,
	}
}

func (s *EnrichmentService) countJob(ctx context.Context, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.EnrichmentJobCount.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
