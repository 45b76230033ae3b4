package providers

import (
	"context"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// AvailabilityProvider resolves a third-party reservation/availability match
// for a single place. Queried only by the enrichment worker.
type AvailabilityProvider interface {
	// Name is the provider identifier used in patches and lock keys
	Name() string

	// Lookup resolves a match for the place; a miss is reported through
	// the patch status, not an error
	Lookup(ctx context.Context, placeID string) (*entities.ProviderPatch, error)
}
