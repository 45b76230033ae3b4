package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPProvider resolves reservation-page availability against a third-party
// HTTP API. A miss (404 or an empty match) is a NOT_FOUND patch, not an
// error.
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

var _ providers.AvailabilityProvider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a new availability provider.
func NewHTTPProvider(name, baseURL, apiKey string, httpClient *http.Client) *HTTPProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Name is the provider identifier used in patches and lock keys
func (p *HTTPProvider) Name() string {
	return p.name
}

type matchEnvelope struct {
	Found bool   `json:"found"`
	URL   string `json:"url"`
}

// Lookup resolves a match for the place
func (p *HTTPProvider) Lookup(ctx context.Context, placeID string) (*entities.ProviderPatch, error) {
	endpoint := fmt.Sprintf("%s/match?place_id=%s", p.baseURL, url.QueryEscape(placeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("availability lookup failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return p.notFound(placeID), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError("availability lookup quota exceeded")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("availability lookup returned status %d", resp.StatusCode), nil)
	}

	var envelope matchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.NewNetworkError("failed to decode availability response", err)
	}

	if !envelope.Found || envelope.URL == "" {
		return p.notFound(placeID), nil
	}

	return &entities.ProviderPatch{
		Provider:  p.name,
		PlaceID:   placeID,
		Status:    entities.PatchFound,
		URL:       envelope.URL,
		UpdatedAt: p.now(),
	}, nil
}

func (p *HTTPProvider) notFound(placeID string) *entities.ProviderPatch {
	return &entities.ProviderPatch{
		Provider:  p.name,
		PlaceID:   placeID,
		Status:    entities.PatchNotFound,
		UpdatedAt: p.now(),
	}
}
