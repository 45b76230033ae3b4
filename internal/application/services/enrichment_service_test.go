package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/adapters/cache"
	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/pkg/config"
)

// countingAvailability records lookups and serves a fixed match.
type countingAvailability struct {
	mu      sync.Mutex
	lookups int
	url     string
	err     error
}

func (a *countingAvailability) Name() string { return "tablecheck" }

func (a *countingAvailability) Lookup(_ context.Context, placeID string) (*entities.ProviderPatch, error) {
	a.mu.Lock()
	a.lookups++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	status := entities.PatchNotFound
	if a.url != "" {
		status = entities.PatchFound
	}
	return &entities.ProviderPatch{
		Provider: "tablecheck",
		PlaceID:  placeID,
		Status:   status,
		URL:      a.url,
	}, nil
}

func (a *countingAvailability) lookupCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookups
}

func testEnrichmentConfig() config.EnrichmentConfig {
	return config.EnrichmentConfig{
		Provider:      "tablecheck",
		Workers:       4,
		LockTTL:       5 * time.Second,
		PatchTTL:      time.Minute,
		LookupTimeout: time.Second,
	}
}

func newTestEnrichment(t *testing.T, avail *countingAvailability) (*EnrichmentService, *recordingPublisher, *cache.MemoryAdapter) {
	t.Helper()
	pub := &recordingPublisher{}
	mem := cache.NewMemoryAdapter()
	svc, err := NewEnrichmentService(testEnrichmentConfig(), avail, mem, pub, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, pub, mem
}

func TestRequest_ConcurrentRequests_OneJob(t *testing.T) {
	avail := &countingAvailability{url: "https://booking.example/p1"}
	svc, pub, _ := newTestEnrichment(t, avail)

	job := entities.EnrichmentJob{Provider: "tablecheck", PlaceID: "p1", RequestID: "req-1"}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Request(context.Background(), job))
		}()
	}
	wg.Wait()

	// Exactly one resolution job, at least one delivered patch
	require.Eventually(t, func() bool {
		return len(pub.ofType(entities.EventResultPatch)) >= 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, avail.lookupCount())
	assert.LessOrEqual(t, len(pub.ofType(entities.EventResultPatch)), n)
}

func TestRequest_CacheHit_PublishesWithoutLookup(t *testing.T) {
	avail := &countingAvailability{}
	svc, pub, mem := newTestEnrichment(t, avail)

	job := entities.EnrichmentJob{Provider: "tablecheck", PlaceID: "p2", RequestID: "req-2"}
	cached := entities.ProviderPatch{
		Provider: "tablecheck",
		PlaceID:  "p2",
		Status:   entities.PatchFound,
		URL:      "https://booking.example/p2",
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, mem.Set(context.Background(), job.CacheKey(), data, time.Minute))

	require.NoError(t, svc.Request(context.Background(), job))

	events := pub.ofType(entities.EventResultPatch)
	require.Len(t, events, 1)
	patch, ok := events[0].Payload.(*entities.ProviderPatch)
	require.True(t, ok)
	assert.Equal(t, entities.PatchFound, patch.Status)
	assert.Zero(t, avail.lookupCount())
}

func TestRequest_LookupFailure_PublishesNotFound(t *testing.T) {
	avail := &countingAvailability{err: context.DeadlineExceeded}
	svc, pub, _ := newTestEnrichment(t, avail)

	job := entities.EnrichmentJob{Provider: "tablecheck", PlaceID: "p3", RequestID: "req-3"}
	require.NoError(t, svc.Request(context.Background(), job))

	require.Eventually(t, func() bool {
		events := pub.ofType(entities.EventResultPatch)
		if len(events) != 1 {
			return false
		}
		patch, ok := events[0].Payload.(*entities.ProviderPatch)
		return ok && patch.Status == entities.PatchNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestRequest_ResolutionCachesPatch(t *testing.T) {
	avail := &countingAvailability{url: "https://booking.example/p4"}
	svc, pub, mem := newTestEnrichment(t, avail)

	job := entities.EnrichmentJob{Provider: "tablecheck", PlaceID: "p4", RequestID: "req-4"}
	require.NoError(t, svc.Request(context.Background(), job))

	require.Eventually(t, func() bool {
		return len(pub.ofType(entities.EventResultPatch)) == 1
	}, time.Second, 10*time.Millisecond)

	// Second request is served from cache, no new lookup
	require.NoError(t, svc.Request(context.Background(), job))
	assert.Len(t, pub.ofType(entities.EventResultPatch), 2)
	assert.Equal(t, 1, avail.lookupCount())

	// Lock was released after resolution
	exists, err := mem.Exists(context.Background(), job.LockKey())
	require.NoError(t, err)
	assert.False(t, exists)
}
