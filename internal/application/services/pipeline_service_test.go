package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/adapters/cache"
	"github.com/obafela/venuescout/backend/internal/adapters/jobs"
	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/pkg/config"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

// scriptedAssistant returns canned stage outputs and counts calls.
type scriptedAssistant struct {
	mu sync.Mutex

	gate        *providers.GateResult
	gateErr     error
	intent      *entities.IntentDecision
	intentErr   error
	mapping     *entities.QueryMapping
	mappingErr  error
	constraints *entities.SearchConstraints
	message     string
	messageErr  error

	constraintCalls int
	messageKinds    []providers.MessageKind
}

func (a *scriptedAssistant) Gate(_ context.Context, _ string) (*providers.GateResult, error) {
	if a.gateErr != nil {
		return nil, a.gateErr
	}
	return a.gate, nil
}

func (a *scriptedAssistant) ClassifyIntent(_ context.Context, _ string, _ bool) (*entities.IntentDecision, error) {
	if a.intentErr != nil {
		return nil, a.intentErr
	}
	return a.intent, nil
}

func (a *scriptedAssistant) MapQuery(_ context.Context, _ string, _ entities.LanguageContext, _ entities.Route) (*entities.QueryMapping, error) {
	if a.mappingErr != nil {
		return nil, a.mappingErr
	}
	return a.mapping, nil
}

func (a *scriptedAssistant) ExtractConstraints(_ context.Context, _ string) (*entities.SearchConstraints, error) {
	a.mu.Lock()
	a.constraintCalls++
	a.mu.Unlock()
	if a.constraints == nil {
		return &entities.SearchConstraints{}, nil
	}
	return a.constraints, nil
}

func (a *scriptedAssistant) GenerateMessage(_ context.Context, req providers.MessageRequest) (string, error) {
	a.mu.Lock()
	a.messageKinds = append(a.messageKinds, req.Kind)
	a.mu.Unlock()
	if a.messageErr != nil {
		return "", a.messageErr
	}
	return a.message, nil
}

// countingPlaces serves a fixed result set and counts provider calls.
type countingPlaces struct {
	mu     sync.Mutex
	places []*entities.Place
	err    error
	calls  int
}

func (p *countingPlaces) search() ([]*entities.Place, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	out := make([]*entities.Place, len(p.places))
	copy(out, p.places)
	return out, nil
}

func (p *countingPlaces) TextSearch(_ context.Context, _ providers.PlaceQuery) ([]*entities.Place, error) {
	return p.search()
}

func (p *countingPlaces) Nearby(_ context.Context, _ providers.PlaceQuery) ([]*entities.Place, error) {
	return p.search()
}

func (p *countingPlaces) Landmark(_ context.Context, _ providers.PlaceQuery) ([]*entities.Place, error) {
	return p.search()
}

func (p *countingPlaces) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// recordingPublisher collects every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*entities.OutboundEvent
}

func (r *recordingPublisher) Publish(_ context.Context, _, _ string, event *entities.OutboundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) ofType(t entities.EventType) []*entities.OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.OutboundEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		SearchLanguagePolicy: config.SearchLanguagePolicyRegion,
		DefaultRegion:        "JP",
		ResultCacheTTL:       time.Minute,
		OpenNowCacheTTL:      10 * time.Second,
		StageTimeout:         2 * time.Second,
		JobTTL:               time.Minute,
	}
}

func newTestPipeline(t *testing.T, assistant *scriptedAssistant, place *countingPlaces, pub *recordingPublisher) (*PipelineService, providers.JobStore) {
	t.Helper()

	ranking, err := NewRankingService()
	require.NoError(t, err)

	cfg := testPipelineConfig()
	store := jobs.NewMemoryStore(cfg.JobTTL)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewPipelineService(
		cfg,
		assistant,
		place,
		cache.NewMemoryAdapter(),
		store,
		pub,
		NewLanguageService(cfg.SearchLanguagePolicy, cfg.DefaultRegion),
		ranking,
		nil,
	)
	return svc, store
}

func continueAssistant() *scriptedAssistant {
	return &scriptedAssistant{
		gate:    &providers.GateResult{Outcome: entities.GateContinue, QueryLanguage: entities.LanguageEnglish},
		intent:  &entities.IntentDecision{Route: entities.RouteTextSearch, Confidence: 0.9},
		mapping: &entities.QueryMapping{QueryText: "pizza", Route: entities.RouteTextSearch, Strictness: entities.StrictnessNormal},
		message: "here are your results",
	}
}

func TestExecute_NoConstraints_BalancedProfile(t *testing.T) {
	assistant := continueAssistant()
	place := &countingPlaces{places: []*entities.Place{
		{ID: "p1", Name: "Pizza One", Rating: 4.5, ReviewCount: 300},
		{ID: "p2", Name: "Pizza Two", Rating: 4.0, ReviewCount: 120},
	}}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	req := &entities.SearchRequest{RequestID: "req-1", Query: "pizza"}
	resp, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, entities.ProfileBalanced, resp.Meta.Order.Profile)
	assert.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Meta.Terminal)
	assert.Equal(t, 1, place.callCount())

	// Summary is deferred, never blocking the response
	require.Eventually(t, func() bool {
		return len(pub.ofType(entities.EventAssistant)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestExecute_OpenNowWithLocation_NearbyProfile(t *testing.T) {
	open := true
	assistant := continueAssistant()
	assistant.constraints = &entities.SearchConstraints{OpenNow: &open}
	assistant.intent = &entities.IntentDecision{Route: entities.RouteNearby, Confidence: 0.9}
	assistant.mapping = &entities.QueryMapping{QueryText: "ramen", Route: entities.RouteNearby, OpenNow: true}

	place := &countingPlaces{places: []*entities.Place{
		{ID: "far", Name: "Far Ramen", Rating: 4.2, ReviewCount: 80, DistanceKm: 6.0, OpenNow: &open},
		{ID: "near", Name: "Near Ramen", Rating: 4.2, ReviewCount: 80, DistanceKm: 0.4, OpenNow: &open},
	}}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	req := &entities.SearchRequest{
		RequestID:      "req-2",
		Query:          "ramen open now",
		ClientLocation: &entities.Location{Latitude: 35.66, Longitude: 139.70},
	}
	resp, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, entities.ProfileNearby, resp.Meta.Order.Profile)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "near", resp.Results[0].Place.ID)
	assert.GreaterOrEqual(t,
		resp.Results[0].ScoreBreakdown["distance"],
		resp.Results[1].ScoreBreakdown["distance"])
}

func TestExecute_NearbyWithoutLocation_TerminalClarify(t *testing.T) {
	assistant := continueAssistant()
	assistant.intent = &entities.IntentDecision{Route: entities.RouteNearby, Confidence: 0.8}

	place := &countingPlaces{}
	pub := &recordingPublisher{}
	svc, store := newTestPipeline(t, assistant, place, pub)

	req := &entities.SearchRequest{RequestID: "req-3", Query: "something near me"}
	resp, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, entities.TerminalClarify, resp.Meta.Terminal)
	assert.Empty(t, resp.Results)
	assert.Equal(t, entities.ProfileBalanced, resp.Meta.Order.Profile)
	assert.Zero(t, place.callCount(), "provider search must never run")

	job, err := store.Get(context.Background(), "req-3")
	require.NoError(t, err)
	assert.Equal(t, entities.JobDoneOK, job.Status)

	require.Eventually(t, func() bool {
		events := pub.ofType(entities.EventAssistant)
		if len(events) != 1 {
			return false
		}
		msg, ok := events[0].Payload.(entities.AssistantMessage)
		return ok && msg.BlocksSearch
	}, time.Second, 10*time.Millisecond)
}

func TestExecute_GateStop_TerminalOutOfScope(t *testing.T) {
	assistant := continueAssistant()
	assistant.gate = &providers.GateResult{Outcome: entities.GateStop, QueryLanguage: entities.LanguageEnglish}

	place := &countingPlaces{}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	resp, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-4", Query: "write me a poem"})
	require.NoError(t, err)

	assert.Equal(t, entities.TerminalOutOfScope, resp.Meta.Terminal)
	assert.Empty(t, resp.Results)
	assert.Equal(t, entities.ProfileBalanced, resp.Meta.Order.Profile)
	assert.Zero(t, place.callCount())
}

func TestExecute_MappingFailure_FallsBackDeterministically(t *testing.T) {
	assistant := continueAssistant()
	assistant.mappingErr = apperrors.NewTimeoutError(apperrors.ErrorTypeTimeoutMapping, "mapping timed out", context.DeadlineExceeded)

	place := &countingPlaces{places: []*entities.Place{{ID: "p1", Name: "Pizza One", Rating: 4.0}}}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	resp, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-5", Query: "pizza"})
	require.NoError(t, err, "mapping failure must recover via fallback")
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 1, place.callCount())
}

func TestExecute_SearchFailure_FailsJobAndDefersMessage(t *testing.T) {
	assistant := continueAssistant()
	place := &countingPlaces{err: apperrors.NewNetworkError("provider unreachable", nil)}
	pub := &recordingPublisher{}
	svc, store := newTestPipeline(t, assistant, place, pub)

	_, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-6", Query: "pizza"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeNetwork, appErr.Type)

	job, err := store.Get(context.Background(), "req-6")
	require.NoError(t, err)
	assert.Equal(t, entities.JobDoneFailed, job.Status)
	assert.Equal(t, string(apperrors.ErrorTypeNetwork), job.ErrorCode)

	require.Eventually(t, func() bool {
		return len(pub.ofType(entities.EventAssistant)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestExecute_DoubleFailure_EmitsErrorCodeOnly(t *testing.T) {
	assistant := continueAssistant()
	assistant.messageErr = errors.New("generation unavailable")
	place := &countingPlaces{err: apperrors.NewNetworkError("provider unreachable", nil)}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	_, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-7", Query: "pizza"})
	require.Error(t, err)

	require.Eventually(t, func() bool {
		events := pub.ofType(entities.EventAssistantError)
		if len(events) != 1 {
			return false
		}
		payload, ok := events[0].Payload.(entities.AssistantErrorPayload)
		return ok && payload.Code == string(apperrors.ErrorTypeNetwork)
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, pub.ofType(entities.EventAssistant))
}

func TestExecute_ResultCacheHit_SkipsProvider(t *testing.T) {
	assistant := continueAssistant()
	place := &countingPlaces{places: []*entities.Place{{ID: "p1", Name: "Pizza One", Rating: 4.0}}}
	pub := &recordingPublisher{}
	svc, _ := newTestPipeline(t, assistant, place, pub)

	_, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-8a", Query: "pizza"})
	require.NoError(t, err)
	resp, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-8b", Query: "pizza"})
	require.NoError(t, err)

	assert.True(t, resp.Meta.Cached)
	assert.Equal(t, 1, place.callCount(), "second request must hit the result cache")
}

func TestExecute_EmptyQuery_Validation(t *testing.T) {
	svc, _ := newTestPipeline(t, continueAssistant(), &countingPlaces{}, &recordingPublisher{})

	_, err := svc.Execute(context.Background(), &entities.SearchRequest{RequestID: "req-9", Query: "   "})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}
