package providers

import (
	"context"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// PlaceQuery is the provider-facing search request derived from a
// QueryMapping.
type PlaceQuery struct {
	Text     string
	Language entities.Language
	Region   string
	Location *entities.Location
	RadiusM  int
	Landmark string
	OpenNow  bool
}

// PlaceSearchProvider is the external place-search collaborator. One method
// per route strategy; all calls carry the caller's timeout via ctx.
type PlaceSearchProvider interface {
	// TextSearch runs a free-text search
	TextSearch(ctx context.Context, q PlaceQuery) ([]*entities.Place, error)

	// Nearby runs a proximity search around q.Location
	Nearby(ctx context.Context, q PlaceQuery) ([]*entities.Place, error)

	// Landmark runs a search anchored on a named landmark
	Landmark(ctx context.Context, q PlaceQuery) ([]*entities.Place, error)
}
