package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

const googleOKBody = `{
	"status": "OK",
	"results": [{
		"place_id": "p1",
		"name": "Shibuya Ramen",
		"formatted_address": "1-2-3 Shibuya, Tokyo",
		"rating": 4.4,
		"user_ratings_total": 812,
		"price_level": 2,
		"types": ["restaurant"],
		"geometry": {"location": {"lat": 35.659, "lng": 139.700}},
		"opening_hours": {"open_now": true}
	}]
}`

func googleServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTextSearch_MapsResults(t *testing.T) {
	srv := googleServer(t, googleOKBody)
	p := NewGoogleProviderWithOptions("key", srv.URL, srv.URL, srv.Client())

	origin := &entities.Location{Latitude: 35.66, Longitude: 139.70}
	results, err := p.TextSearch(context.Background(), providers.PlaceQuery{
		Text:     "ramen",
		Language: entities.LanguageJapanese,
		Location: origin,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	place := results[0]
	assert.Equal(t, "p1", place.ID)
	assert.Equal(t, "Shibuya Ramen", place.Name)
	assert.Equal(t, "1-2-3 Shibuya, Tokyo", place.Address)
	assert.Equal(t, 4.4, place.Rating)
	assert.Equal(t, 812, place.ReviewCount)
	assert.Equal(t, 2, place.PriceLevel)
	require.NotNil(t, place.OpenNow)
	assert.True(t, *place.OpenNow)
	assert.Greater(t, place.DistanceKm, 0.0)
	assert.Less(t, place.DistanceKm, 1.0)
}

func TestTextSearch_SendsLanguageAndOpenNow(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProviderWithOptions("key", srv.URL, srv.URL, srv.Client())
	_, err := p.TextSearch(context.Background(), providers.PlaceQuery{
		Text:     "ramen",
		Language: entities.LanguageJapanese,
		Region:   "JP",
		OpenNow:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "ja", gotQuery["language"][0])
	assert.Equal(t, "jp", gotQuery["region"][0])
	assert.Equal(t, "true", gotQuery["opennow"][0])
	assert.Equal(t, "ramen", gotQuery["query"][0])
}

func TestNearby_RequiresLocation(t *testing.T) {
	p := NewGoogleProviderWithOptions("key", "", "", nil)
	_, err := p.Nearby(context.Background(), providers.PlaceQuery{Text: "ramen"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err, apperrors.ErrorTypeUnknown))
}

func TestLandmark_AnchorsQueryText(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProviderWithOptions("key", srv.URL, srv.URL, srv.Client())
	_, err := p.Landmark(context.Background(), providers.PlaceQuery{Text: "coffee", Landmark: "Tokyo Tower"})
	require.NoError(t, err)
	assert.Equal(t, "coffee near Tokyo Tower", gotQuery)
}

func TestSearch_QuotaStatusMapsToRateLimit(t *testing.T) {
	srv := googleServer(t, `{"status":"OVER_QUERY_LIMIT","results":[]}`)
	p := NewGoogleProviderWithOptions("key", srv.URL, srv.URL, srv.Client())

	_, err := p.TextSearch(context.Background(), providers.PlaceQuery{Text: "ramen"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.TypeOf(err, apperrors.ErrorTypeUnknown))
}

func TestSearch_RetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(googleOKBody))
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProviderWithOptions("key", srv.URL, srv.URL, srv.Client())
	results, err := p.TextSearch(context.Background(), providers.PlaceQuery{Text: "ramen"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 3, attempts)
}
