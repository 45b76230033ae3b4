package services

import (
	"fmt"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// orderProfiles are the named ranking weight configurations. Each vector
// must sum to exactly 100; ValidateOrderProfiles enforces that at startup.
var orderProfiles = map[entities.ProfileName]entities.OrderWeights{
	entities.ProfileNearby:   {Rating: 15, Reviews: 10, Price: 10, OpenNow: 25, Distance: 40},
	entities.ProfileBudget:   {Rating: 15, Reviews: 15, Price: 35, OpenNow: 15, Distance: 20},
	entities.ProfileQuality:  {Rating: 35, Reviews: 30, Price: 10, OpenNow: 10, Distance: 15},
	entities.ProfileBalanced: {Rating: 25, Reviews: 20, Price: 15, OpenNow: 15, Distance: 25},
}

// ValidateOrderProfiles checks every weight vector sums to 100.
func ValidateOrderProfiles() error {
	for name, weights := range orderProfiles {
		if err := weights.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

// DefaultOrderProfile is the profile attached to early-exit responses.
func DefaultOrderProfile() entities.OrderProfile {
	return entities.OrderProfile{
		Profile: entities.ProfileBalanced,
		Weights: orderProfiles[entities.ProfileBalanced],
	}
}

// ResolveOrderProfile maps intent signals to a ranking profile. Pure: no
// external calls, no randomness, and no dependence on any language field.
// Priority, first match wins:
//  1. open-now requested  → nearby
//  2. cheap price intent  → budget
//  3. quality intent      → quality
//  4. otherwise           → balanced
func ResolveOrderProfile(signals entities.OrderSignals) entities.OrderProfile {
	var name entities.ProfileName
	switch {
	case signals.OpenNowRequested:
		name = entities.ProfileNearby
	case signals.PriceIntent == entities.PriceIntentCheap:
		name = entities.ProfileBudget
	case signals.QualityIntent:
		name = entities.ProfileQuality
	default:
		name = entities.ProfileBalanced
	}

	return entities.OrderProfile{Profile: name, Weights: orderProfiles[name]}
}
