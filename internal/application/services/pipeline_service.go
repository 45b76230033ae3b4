package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/internal/infrastructure/observability"
	"github.com/obafela/venuescout/backend/pkg/config"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

// Stage progress checkpoints reported to the job store.
const (
	progressGate     = 10
	progressIntent   = 25
	progressMapping  = 45
	progressSearch   = 70
	progressFilter   = 85
	progressComplete = 100
)

// PipelineService orchestrates the guard chain for one search request:
// Gate, Intent, Route-Mapping, Provider Search, Post-Filter, Ranking,
// Response Build. Each guard either continues or short-circuits with a
// terminal response; no stage runs after a short-circuit.
type PipelineService struct {
	cfg       config.PipelineConfig
	assistant providers.AssistantProvider
	places    providers.PlaceSearchProvider
	cache     providers.CacheProvider
	jobs      providers.JobStore
	publisher providers.Publisher
	language  *LanguageService
	ranking   *RankingService
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewPipelineService wires the orchestrator. metrics may be nil.
func NewPipelineService(
	cfg config.PipelineConfig,
	assistant providers.AssistantProvider,
	places providers.PlaceSearchProvider,
	cache providers.CacheProvider,
	jobs providers.JobStore,
	publisher providers.Publisher,
	language *LanguageService,
	ranking *RankingService,
	metrics *observability.Metrics,
) *PipelineService {
	return &PipelineService{
		cfg:       cfg,
		assistant: assistant,
		places:    places,
		cache:     cache,
		jobs:      jobs,
		publisher: publisher,
		language:  language,
		ranking:   ranking,
		metrics:   metrics,
		logger:    observability.ComponentLogger("pipeline"),
	}
}

// Execute runs the full pipeline for an accepted request. It returns the
// synchronous response payload; assistant messages are delivered over the
// broadcast layer without blocking the return.
func (s *PipelineService) Execute(ctx context.Context, req *entities.SearchRequest) (*entities.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if _, err := s.jobs.Create(ctx, req.RequestID); err != nil {
		return nil, err
	}

	// Computed exactly once; every later stage (including deferred work)
	// reads this snapshot, never a shared mutable context.
	lang := s.language.Resolve(req.Query, req.UILanguageHint, s.cfg.DefaultRegion)

	s.logger.Info().
		Str("request_id", req.RequestID).
		Str("query_language", string(lang.QueryLanguage)).
		Str("search_language", string(lang.SearchLanguage)).
		Msg("pipeline started")

	// Stage 1: Gate
	gate, err := s.runGate(ctx, req)
	if err != nil {
		return nil, s.failPipeline(ctx, req, lang, apperrors.TypeOf(err, apperrors.ErrorTypeTimeoutGate), err)
	}
	s.setProgress(ctx, req.RequestID, progressGate)

	switch gate.Outcome {
	case entities.GateStop:
		return s.terminal(ctx, req, lang, entities.TerminalOutOfScope, providers.MessageOutOfScope)
	case entities.GateAskClarify:
		return s.terminal(ctx, req, lang, entities.TerminalClarify, providers.MessageClarify)
	}

	// Constraint extraction is independent of routing; start it now so it
	// overlaps the intent and mapping calls.
	constraintsCh := s.extractConstraintsAsync(ctx, req.Query)

	// Stage 2: Intent
	hasLocation := req.ClientLocation != nil && !req.ClientLocation.IsZero()
	intent, err := s.runIntent(ctx, req, hasLocation)
	if err != nil {
		return nil, s.failPipeline(ctx, req, lang, apperrors.TypeOf(err, apperrors.ErrorTypeTimeoutIntent), err)
	}
	s.setProgress(ctx, req.RequestID, progressIntent)

	resolvableLocation := hasLocation || intent.CityText != ""
	if intent.Route == entities.RouteNearby && !resolvableLocation {
		return s.terminal(ctx, req, lang, entities.TerminalClarify, providers.MessageNeedLocation)
	}
	if intent.Route == entities.RouteStop {
		return s.terminal(ctx, req, lang, entities.TerminalOutOfScope, providers.MessageOutOfScope)
	}
	if intent.Route == entities.RouteClarify {
		return s.terminal(ctx, req, lang, entities.TerminalClarify, providers.MessageClarify)
	}

	// Stage 3: Route-Mapping. A mapping failure has a deterministic
	// structural fallback, so it recovers silently with a log event.
	mapping := s.runMapping(ctx, req, lang, intent)
	s.setProgress(ctx, req.RequestID, progressMapping)

	// The post-filter decision depends on constraints, which may still be
	// in flight; await them only now that they are actually needed.
	constraints := <-constraintsCh

	// Stage 4: Provider Search
	places, cached, err := s.runSearch(ctx, req, lang, intent, mapping)
	if err != nil {
		return nil, s.failPipeline(ctx, req, lang, apperrors.TypeOf(err, apperrors.ErrorTypeTimeoutSearch), err)
	}
	s.setProgress(ctx, req.RequestID, progressSearch)

	// Stage 5: Post-Filter. Skipped entirely when no constraint is set.
	if !constraints.Empty() {
		places = applyConstraints(places, constraints)
	}
	s.setProgress(ctx, req.RequestID, progressFilter)

	// Stage 6: Ranking
	profile := ResolveOrderProfile(entities.OrderSignals{
		OpenNowRequested: constraints.OpenNowRequested() || mapping.OpenNow,
		PriceIntent:      constraints.PriceIntent,
		QualityIntent:    constraints.QualityWant,
		HasUserLocation:  hasLocation,
	})
	ranked := s.ranking.Rank(places, profile)

	// Stage 7: Response Build
	resp := &entities.SearchResponse{
		RequestID: req.RequestID,
		Results:   ranked,
		Meta: entities.ResponseMeta{
			Order:    profile,
			Language: lang,
			Cached:   cached,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.jobs.SetDone(ctx, req.RequestID, entities.JobDoneOK, resp); err != nil {
		s.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("job completion not recorded")
	}

	s.deferSummary(ctx, req, lang, ranked)

	s.logger.Info().
		Str("request_id", req.RequestID).
		Int("results", len(ranked)).
		Str("profile", string(profile.Profile)).
		Bool("cached", cached).
		Msg("pipeline completed")

	return resp, nil
}

func (s *PipelineService) runGate(ctx context.Context, req *entities.SearchRequest) (*providers.GateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	defer s.timeStage(ctx, "gate")()
	return s.assistant.Gate(ctx, req.Query)
}

func (s *PipelineService) runIntent(ctx context.Context, req *entities.SearchRequest, hasLocation bool) (*entities.IntentDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	defer s.timeStage(ctx, "intent")()
	return s.assistant.ClassifyIntent(ctx, req.Query, hasLocation)
}

func (s *PipelineService) runMapping(ctx context.Context, req *entities.SearchRequest, lang entities.LanguageContext, intent *entities.IntentDecision) *entities.QueryMapping {
	mctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	done := s.timeStage(ctx, "mapping")

	mapping, err := s.assistant.MapQuery(mctx, req.Query, lang, intent.Route)
	done()
	if err == nil {
		return mapping
	}

	s.logger.Warn().Err(err).
		Str("request_id", req.RequestID).
		Str("error_type", string(apperrors.TypeOf(err, apperrors.ErrorTypeTimeoutMapping))).
		Msg("mapping failed, using deterministic fallback")

	return fallbackMapping(req, intent)
}

// fallbackMapping derives a structurally-equivalent mapping from the raw
// request by deterministic rules only. No keyword tables, no language
// special-casing.
func fallbackMapping(req *entities.SearchRequest, intent *entities.IntentDecision) *entities.QueryMapping {
	m := &entities.QueryMapping{
		QueryText:  req.Query,
		Route:      intent.Route,
		Strictness: entities.StrictnessLoose,
		Region:     intent.RegionCandidate,
		Fallback:   true,
	}
	if intent.Route == entities.RouteLandmark && intent.CityText != "" {
		m.Landmark = intent.CityText
	}
	return m
}

func (s *PipelineService) extractConstraintsAsync(ctx context.Context, query string) <-chan *entities.SearchConstraints {
	ch := make(chan *entities.SearchConstraints, 1)
	go func() {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
		defer cancel()

		constraints, err := s.assistant.ExtractConstraints(cctx, query)
		if err != nil {
			// Recoverable: no constraints means the post-filter is skipped
			s.logger.Warn().Err(err).Msg("constraint extraction failed, proceeding unconstrained")
			ch <- &entities.SearchConstraints{}
			return
		}
		ch <- constraints
	}()
	return ch
}

func (s *PipelineService) runSearch(ctx context.Context, req *entities.SearchRequest, lang entities.LanguageContext, intent *entities.IntentDecision, mapping *entities.QueryMapping) ([]*entities.Place, bool, error) {
	cacheKey := mapping.CacheKey()

	if data, err := s.cache.Get(ctx, cacheKey); err == nil {
		var places []*entities.Place
		if err := json.Unmarshal(data, &places); err == nil {
			s.countCache(ctx, true)
			return places, true, nil
		}
		s.logger.Warn().Str("key", cacheKey).Msg("discarding undecodable cache entry")
		_ = s.cache.Delete(ctx, cacheKey)
	}
	s.countCache(ctx, false)

	query := providers.PlaceQuery{
		Text:     mapping.QueryText,
		Language: lang.SearchLanguage,
		Region:   mapping.Region,
		Landmark: mapping.Landmark,
		RadiusM:  mapping.RadiusM,
		OpenNow:  mapping.OpenNow,
	}
	if req.ClientLocation != nil && !req.ClientLocation.IsZero() {
		query.Location = req.ClientLocation
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	done := s.timeStage(ctx, "search")

	var places []*entities.Place
	var err error
	switch mapping.Route {
	case entities.RouteNearby:
		places, err = s.places.Nearby(sctx, query)
	case entities.RouteLandmark:
		places, err = s.places.Landmark(sctx, query)
	default:
		places, err = s.places.TextSearch(sctx, query)
	}
	done()
	if err != nil {
		return nil, false, err
	}

	ttl := s.cfg.ResultCacheTTL
	if mapping.OpenNow {
		// Open-now answers go stale fast
		ttl = s.cfg.OpenNowCacheTTL
	}
	if data, err := json.Marshal(places); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("result cache write failed")
		}
	}

	return places, false, nil
}

// applyConstraints filters in place. Unknown values never fail a constraint
// they cannot be checked against, except open-now which requires a known
// open state.
func applyConstraints(places []*entities.Place, c *entities.SearchConstraints) []*entities.Place {
	filtered := places[:0]
	for _, p := range places {
		if c.MinRating != nil && p.Rating > 0 && p.Rating < *c.MinRating {
			continue
		}
		if c.MaxPrice != nil && p.PriceLevel > 0 && p.PriceLevel > *c.MaxPrice {
			continue
		}
		if c.MinPrice != nil && p.PriceLevel > 0 && p.PriceLevel < *c.MinPrice {
			continue
		}
		if c.OpenNow != nil && *c.OpenNow && (p.OpenNow == nil || !*p.OpenNow) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// terminal publishes the blocking assistant message for a short-circuit and
// returns a zero-result response. meta.order is always present.
func (s *PipelineService) terminal(ctx context.Context, req *entities.SearchRequest, lang entities.LanguageContext, reason entities.TerminalReason, kind providers.MessageKind) (*entities.SearchResponse, error) {
	resp := &entities.SearchResponse{
		RequestID: req.RequestID,
		Results:   []entities.RankedPlace{},
		Meta: entities.ResponseMeta{
			Order:    DefaultOrderProfile(),
			Language: lang,
			Terminal: reason,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.jobs.SetDone(ctx, req.RequestID, entities.JobDoneOK, resp); err != nil {
		s.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("job completion not recorded")
	}

	s.deferMessage(ctx, req.RequestID, providers.MessageRequest{
		Kind:     kind,
		Query:    req.Query,
		Language: lang.AssistantLanguage,
	}, true)

	s.logger.Info().
		Str("request_id", req.RequestID).
		Str("terminal", string(reason)).
		Msg("pipeline short-circuited")

	return resp, nil
}

// failPipeline records the failure on the job and schedules the deferred
// failure message. The returned error carries the taxonomy type.
func (s *PipelineService) failPipeline(ctx context.Context, req *entities.SearchRequest, lang entities.LanguageContext, errType apperrors.ErrorType, cause error) error {
	s.logger.Error().Err(cause).
		Str("request_id", req.RequestID).
		Str("error_type", string(errType)).
		Msg("pipeline failed")

	if err := s.jobs.SetError(ctx, req.RequestID, string(errType), cause.Error()); err != nil {
		s.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("job failure not recorded")
	}

	s.deferMessage(ctx, req.RequestID, providers.MessageRequest{
		Kind:      providers.MessageFailure,
		Query:     req.Query,
		Language:  lang.AssistantLanguage,
		ErrorCode: string(errType),
	}, true)

	return apperrors.New(errType, "search pipeline failed", cause)
}

// deferSummary schedules the free-text result summary after a successful
// response, without blocking the caller.
func (s *PipelineService) deferSummary(ctx context.Context, req *entities.SearchRequest, lang entities.LanguageContext, ranked []entities.RankedPlace) {
	tops := make([]string, 0, 3)
	for i := 0; i < len(ranked) && i < 3; i++ {
		tops = append(tops, ranked[i].Place.Name)
	}

	s.deferMessage(ctx, req.RequestID, providers.MessageRequest{
		Kind:       providers.MessageSummary,
		Query:      req.Query,
		Language:   lang.AssistantLanguage,
		ResultTops: tops,
	}, false)
}

// deferMessage generates and publishes one assistant message in the
// background. The MessageRequest is a complete snapshot; the goroutine
// never reads request state lazily. A generation failure broadcasts an
// assistant_error event carrying only the code, never an invented sentence.
func (s *PipelineService) deferMessage(ctx context.Context, requestID string, msg providers.MessageRequest, blocksSearch bool) {
	dctx := context.WithoutCancel(ctx)
	go func() {
		gctx, cancel := context.WithTimeout(dctx, s.cfg.StageTimeout)
		defer cancel()

		text, err := s.assistant.GenerateMessage(gctx, msg)
		if err != nil {
			code := msg.ErrorCode
			if code == "" {
				code = string(apperrors.TypeOf(err, apperrors.ErrorTypeUnknown))
			}
			s.logger.Error().Err(err).
				Str("request_id", requestID).
				Str("kind", string(msg.Kind)).
				Msg("assistant message generation failed")
			s.publish(gctx, requestID, &entities.OutboundEvent{
				Type:      entities.EventAssistantError,
				RequestID: requestID,
				Payload:   entities.AssistantErrorPayload{Code: code},
			})
			return
		}

		s.publish(gctx, requestID, &entities.OutboundEvent{
			Type:      entities.EventAssistant,
			RequestID: requestID,
			Payload: entities.AssistantMessage{
				Text:         text,
				Language:     msg.Language,
				BlocksSearch: blocksSearch,
			},
		})
	}()
}

func (s *PipelineService) publish(ctx context.Context, requestID string, event *entities.OutboundEvent) {
	if err := s.publisher.Publish(ctx, providers.ChannelSearch, requestID, event); err != nil {
		s.logger.Error().Err(err).
			Str("request_id", requestID).
			Str("event_type", string(event.Type)).
			Msg("event publish failed")
	}
}

func (s *PipelineService) setProgress(ctx context.Context, requestID string, progress int) {
	if err := s.jobs.SetProgress(ctx, requestID, progress); err != nil {
		s.logger.Debug().Err(err).Str("request_id", requestID).Msg("progress update failed")
	}
}

func (s *PipelineService) timeStage(ctx context.Context, stage string) func() {
	start := time.Now()
	return func() {
		if s.metrics == nil {
			return
		}
		s.metrics.StageDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("stage", stage)))
	}
}

func (s *PipelineService) countCache(ctx context.Context, hit bool) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache", "results"))
	if hit {
		s.metrics.CacheHitCount.Add(ctx, 1, attrs)
	} else {
		s.metrics.CacheMissCount.Add(ctx, 1, attrs)
	}
}
