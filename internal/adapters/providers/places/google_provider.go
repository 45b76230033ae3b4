package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
	"github.com/obafela/venuescout/backend/pkg/retry"
)

const (
	googleTextSearchURL   = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	googleNearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	defaultHTTPTimeout    = 8 * time.Second
	defaultNearbyRadiusM  = 1500
)

// GoogleProvider implements PlaceSearchProvider against the Google Places
// API.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
	textURL    string
	nearbyURL  string
	retryCfg   retry.Config
}

var _ providers.PlaceSearchProvider = (*GoogleProvider)(nil)

// NewGoogleProvider creates a new Google place-search provider.
func NewGoogleProvider(apiKey string, timeout time.Duration) *GoogleProvider {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	return &GoogleProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		textURL:    googleTextSearchURL,
		nearbyURL:  googleNearbySearchURL,
		retryCfg:   cfg,
	}
}

// NewGoogleProviderWithOptions allows overriding URLs and HTTP client (used for tests).
func NewGoogleProviderWithOptions(apiKey, textURL, nearbyURL string, httpClient *http.Client) *GoogleProvider {
	p := NewGoogleProvider(apiKey, 0)
	if strings.TrimSpace(textURL) != "" {
		p.textURL = textURL
	}
	if strings.TrimSpace(nearbyURL) != "" {
		p.nearbyURL = nearbyURL
	}
	if httpClient != nil {
		p.httpClient = httpClient
	}
	return p
}

type googleResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       int      `json:"price_level"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
}

type googleEnvelope struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []googleResult `json:"results"`
}

// TextSearch runs a free-text search
func (p *GoogleProvider) TextSearch(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	params := p.baseParams(q)
	params.Set("query", q.Text)
	if q.Location != nil && !q.Location.IsZero() {
		params.Set("location", formatLatLng(*q.Location))
		if q.RadiusM > 0 {
			params.Set("radius", strconv.Itoa(q.RadiusM))
		}
	}
	return p.search(ctx, p.textURL, params, q.Location)
}

// Nearby runs a proximity search around q.Location
func (p *GoogleProvider) Nearby(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	if q.Location == nil || q.Location.IsZero() {
		return nil, apperrors.NewValidationError("nearby search requires a location")
	}

	params := p.baseParams(q)
	params.Set("keyword", q.Text)
	params.Set("location", formatLatLng(*q.Location))
	radius := q.RadiusM
	if radius <= 0 {
		radius = defaultNearbyRadiusM
	}
	params.Set("radius", strconv.Itoa(radius))
	return p.search(ctx, p.nearbyURL, params, q.Location)
}

// Landmark runs a search anchored on a named landmark
func (p *GoogleProvider) Landmark(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	if strings.TrimSpace(q.Landmark) == "" {
		return nil, apperrors.NewValidationError("landmark search requires a landmark")
	}

	params := p.baseParams(q)
	params.Set("query", q.Text+" near "+q.Landmark)
	return p.search(ctx, p.textURL, params, q.Location)
}

func (p *GoogleProvider) baseParams(q providers.PlaceQuery) url.Values {
	params := url.Values{}
	params.Set("key", p.apiKey)
	if q.Language != entities.LanguageUnknown {
		params.Set("language", string(q.Language))
	}
	if q.Region != "" {
		params.Set("region", strings.ToLower(q.Region))
	}
	if q.OpenNow {
		params.Set("opennow", "true")
	}
	return params
}

func (p *GoogleProvider) search(ctx context.Context, baseURL string, params url.Values, origin *entities.Location) ([]*entities.Place, error) {
	var envelope googleEnvelope

	err := retry.Do(ctx, p.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return apperrors.NewNetworkError("place search request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperrors.NewNetworkError(
				fmt.Sprintf("place search returned status %d", resp.StatusCode), nil)
		}

		envelope = googleEnvelope{}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return apperrors.NewNetworkError("failed to decode place search response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch envelope.Status {
	case "OK", "ZERO_RESULTS":
	case "OVER_QUERY_LIMIT":
		return nil, apperrors.NewRateLimitError("place search quota exceeded")
	default:
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("place search status %s: %s", envelope.Status, envelope.ErrorMessage), nil)
	}

	results := make([]*entities.Place, 0, len(envelope.Results))
	for _, r := range envelope.Results {
		results = append(results, mapGoogleResult(r, origin))
	}
	return results, nil
}

func mapGoogleResult(r googleResult, origin *entities.Location) *entities.Place {
	address := r.FormattedAddress
	if address == "" {
		address = r.Vicinity
	}

	place := &entities.Place{
		ID:          r.PlaceID,
		Name:        r.Name,
		Address:     address,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
		PriceLevel:  r.PriceLevel,
		Types:       r.Types,
		Location: entities.Location{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		},
	}
	if r.OpeningHours != nil {
		place.OpenNow = r.OpeningHours.OpenNow
	}
	if origin != nil && !origin.IsZero() && !place.Location.IsZero() {
		place.DistanceKm = HaversineKm(*origin, place.Location)
	}
	return place
}

func formatLatLng(l entities.Location) string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}
