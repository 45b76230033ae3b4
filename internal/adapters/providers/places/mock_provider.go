package places

import (
	"context"
	"strings"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

// MockProvider is a deterministic in-memory PlaceSearchProvider for
// development and tests.
type MockProvider struct {
	Places []*entities.Place
}

var _ providers.PlaceSearchProvider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider over a fixed place set.
func NewMockProvider(places []*entities.Place) *MockProvider {
	return &MockProvider{Places: places}
}

// TextSearch matches places whose name or address contains the query text.
func (p *MockProvider) TextSearch(_ context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	needle := strings.ToLower(q.Text)
	var out []*entities.Place
	for _, place := range p.Places {
		if needle == "" ||
			strings.Contains(strings.ToLower(place.Name), needle) ||
			strings.Contains(strings.ToLower(place.Address), needle) {
			out = append(out, withDistance(place, q.Location))
		}
	}
	return out, nil
}

// Nearby returns every place within the radius of q.Location.
func (p *MockProvider) Nearby(_ context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	if q.Location == nil || q.Location.IsZero() {
		return nil, nil
	}
	radiusKm := float64(q.RadiusM) / 1000.0
	if radiusKm <= 0 {
		radiusKm = float64(defaultNearbyRadiusM) / 1000.0
	}
	var out []*entities.Place
	for _, place := range p.Places {
		if HaversineKm(*q.Location, place.Location) <= radiusKm {
			out = append(out, withDistance(place, q.Location))
		}
	}
	return out, nil
}

// Landmark behaves like TextSearch with the landmark appended.
func (p *MockProvider) Landmark(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	anchored := q
	anchored.Text = strings.TrimSpace(q.Text + " " + q.Landmark)
	return p.TextSearch(ctx, anchored)
}

func withDistance(place *entities.Place, origin *entities.Location) *entities.Place {
	c := *place
	if origin != nil && !origin.IsZero() && !c.Location.IsZero() {
		c.DistanceKm = HaversineKm(*origin, c.Location)
	}
	return &c
}
