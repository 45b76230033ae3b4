package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

func boolPtr(b bool) *bool { return &b }

func TestRank_NearbyProfilePrefersCloser(t *testing.T) {
	svc, err := NewRankingService()
	require.NoError(t, err)

	near := &entities.Place{ID: "near", Name: "Near", Rating: 4.0, ReviewCount: 100, DistanceKm: 0.3, OpenNow: boolPtr(true)}
	far := &entities.Place{ID: "far", Name: "Far", Rating: 4.0, ReviewCount: 100, DistanceKm: 8.0, OpenNow: boolPtr(true)}

	profile := ResolveOrderProfile(entities.OrderSignals{OpenNowRequested: true})
	require.Equal(t, entities.ProfileNearby, profile.Profile)

	ranked := svc.Rank([]*entities.Place{far, near}, profile)
	assert.Equal(t, "near", ranked[0].Place.ID)
	assert.GreaterOrEqual(t, ranked[0].ScoreBreakdown["distance"], ranked[1].ScoreBreakdown["distance"])
}

func TestRank_QualityProfilePrefersRated(t *testing.T) {
	svc, err := NewRankingService()
	require.NoError(t, err)

	rated := &entities.Place{ID: "rated", Rating: 4.8, ReviewCount: 2000, DistanceKm: 5.0}
	nearby := &entities.Place{ID: "close", Rating: 3.2, ReviewCount: 12, DistanceKm: 0.2}

	profile := ResolveOrderProfile(entities.OrderSignals{QualityIntent: true})
	ranked := svc.Rank([]*entities.Place{nearby, rated}, profile)
	assert.Equal(t, "rated", ranked[0].Place.ID)
}

func TestRank_Deterministic(t *testing.T) {
	svc, err := NewRankingService()
	require.NoError(t, err)

	places := []*entities.Place{
		{ID: "b", Rating: 4.0, ReviewCount: 50},
		{ID: "a", Rating: 4.0, ReviewCount: 50},
		{ID: "c", Rating: 4.5, ReviewCount: 10},
	}

	profile := DefaultOrderProfile()
	first := svc.Rank(places, profile)
	for i := 0; i < 5; i++ {
		again := svc.Rank(places, profile)
		for j := range first {
			assert.Equal(t, first[j].Place.ID, again[j].Place.ID)
		}
	}

	// Equal score and reviews tie-break on ID
	var aIdx, bIdx int
	for i, r := range first {
		switch r.Place.ID {
		case "a":
			aIdx = i
		case "b":
			bIdx = i
		}
	}
	assert.Less(t, aIdx, bIdx)
}

func TestRank_UnknownFieldsScoreNeutral(t *testing.T) {
	svc, err := NewRankingService()
	require.NoError(t, err)

	unknown := &entities.Place{ID: "u"}
	ranked := svc.Rank([]*entities.Place{unknown}, DefaultOrderProfile())
	require.Len(t, ranked, 1)
	assert.Greater(t, ranked[0].Score, 0.0)
	assert.Zero(t, ranked[0].ScoreBreakdown["reviews"])
}

func TestRank_Empty(t *testing.T) {
	svc, err := NewRankingService()
	require.NoError(t, err)
	assert.Empty(t, svc.Rank(nil, DefaultOrderProfile()))
}
