package availability

import (
	"context"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

// MockProvider is a deterministic in-memory AvailabilityProvider for
// development and tests. Matches holds placeID → reservation URL.
type MockProvider struct {
	ProviderName string
	Matches      map[string]string
}

var _ providers.AvailabilityProvider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider over a fixed match set.
func NewMockProvider(name string, matches map[string]string) *MockProvider {
	return &MockProvider{ProviderName: name, Matches: matches}
}

func (p *MockProvider) Name() string {
	return p.ProviderName
}

// Lookup resolves against the fixed match set.
func (p *MockProvider) Lookup(_ context.Context, placeID string) (*entities.ProviderPatch, error) {
	patch := &entities.ProviderPatch{
		Provider:  p.ProviderName,
		PlaceID:   placeID,
		Status:    entities.PatchNotFound,
		UpdatedAt: time.Now().UTC(),
	}
	if url, ok := p.Matches[placeID]; ok {
		patch.Status = entities.PatchFound
		patch.URL = url
	}
	return patch, nil
}
