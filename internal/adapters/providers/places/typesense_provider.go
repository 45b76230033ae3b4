package places

import (
	"context"
	"fmt"
	"strings"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	tsclient "github.com/obafela/venuescout/backend/internal/infrastructure/clients/typesense"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseProvider implements PlaceSearchProvider over a self-hosted
// Typesense collection, for deployments without an external provider key.
type TypesenseProvider struct {
	client *tsclient.Client
}

var _ providers.PlaceSearchProvider = (*TypesenseProvider)(nil)

// NewTypesenseProvider creates a new Typesense-backed place-search provider.
func NewTypesenseProvider(client *tsclient.Client) *TypesenseProvider {
	return &TypesenseProvider{client: client}
}

// InitSchema ensures the places collection exists
func (p *TypesenseProvider) InitSchema(ctx context.Context) error {
	collection := p.client.Collection()

	_, err := p.client.Client().Collection(collection).Retrieve(ctx)
	if err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "address", Type: "string"},
			{Name: "location", Type: "geopoint"},
			{Name: "rating", Type: "float"},
			{Name: "review_count", Type: "int32"},
			{Name: "price_level", Type: "int32"},
			{Name: "open_now", Type: "bool"},
			{Name: "types", Type: "string[]", Facet: pointer.True()},
		},
		DefaultSortingField: pointer.String("review_count"),
	}

	if _, err := p.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// Index upserts a place document
func (p *TypesenseProvider) Index(ctx context.Context, place *entities.Place) error {
	openNow := false
	if place.OpenNow != nil {
		openNow = *place.OpenNow
	}

	document := map[string]interface{}{
		"id":           place.ID,
		"name":         place.Name,
		"address":      place.Address,
		"location":     []float64{place.Location.Latitude, place.Location.Longitude},
		"rating":       place.Rating,
		"review_count": place.ReviewCount,
		"price_level":  place.PriceLevel,
		"open_now":     openNow,
		"types":        place.Types,
	}

	if _, err := p.client.Client().Collection(p.client.Collection()).Documents().Upsert(ctx, document); err != nil {
		return fmt.Errorf("failed to index place: %w", err)
	}
	return nil
}

// TextSearch runs a free-text search
func (p *TypesenseProvider) TextSearch(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	params := &api.SearchCollectionParams{
		Q:       pointer.String(q.Text),
		QueryBy: pointer.String("name,address"),
		PerPage: pointer.Int(20),
	}
	if q.OpenNow {
		params.FilterBy = pointer.String("open_now:=true")
	}
	return p.search(ctx, params, q.Location)
}

// Nearby runs a proximity search around q.Location
func (p *TypesenseProvider) Nearby(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	if q.Location == nil || q.Location.IsZero() {
		return nil, apperrors.NewValidationError("nearby search requires a location")
	}

	radius := q.RadiusM
	if radius <= 0 {
		radius = defaultNearbyRadiusM
	}

	filters := []string{fmt.Sprintf("location:(%f, %f, %f km)",
		q.Location.Latitude, q.Location.Longitude, float64(radius)/1000.0)}
	if q.OpenNow {
		filters = append(filters, "open_now:=true")
	}

	text := q.Text
	if strings.TrimSpace(text) == "" {
		text = "*"
	}

	params := &api.SearchCollectionParams{
		Q:        pointer.String(text),
		QueryBy:  pointer.String("name,address"),
		FilterBy: pointer.String(strings.Join(filters, " && ")),
		SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", q.Location.Latitude, q.Location.Longitude)),
		PerPage:  pointer.Int(20),
	}
	return p.search(ctx, params, q.Location)
}

// Landmark runs a search anchored on a named landmark. The collection has
// no landmark index, so the anchor is folded into the text query.
func (p *TypesenseProvider) Landmark(ctx context.Context, q providers.PlaceQuery) ([]*entities.Place, error) {
	if strings.TrimSpace(q.Landmark) == "" {
		return nil, apperrors.NewValidationError("landmark search requires a landmark")
	}

	anchored := q
	anchored.Text = q.Text + " " + q.Landmark
	return p.TextSearch(ctx, anchored)
}

func (p *TypesenseProvider) search(ctx context.Context, params *api.SearchCollectionParams, origin *entities.Location) ([]*entities.Place, error) {
	result, err := p.client.Client().Collection(p.client.Collection()).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewNetworkError("typesense search failed", err)
	}

	if result.Hits == nil {
		return nil, nil
	}

	places := make([]*entities.Place, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		place := mapTypesenseDocument(*hit.Document)
		if place == nil {
			continue
		}
		if origin != nil && !origin.IsZero() && !place.Location.IsZero() {
			place.DistanceKm = HaversineKm(*origin, place.Location)
		}
		places = append(places, place)
	}
	return places, nil
}

func mapTypesenseDocument(doc map[string]interface{}) *entities.Place {
	id, _ := doc["id"].(string)
	if id == "" {
		return nil
	}

	place := &entities.Place{ID: id}
	place.Name, _ = doc["name"].(string)
	place.Address, _ = doc["address"].(string)

	if rating, ok := doc["rating"].(float64); ok {
		place.Rating = rating
	}
	if reviews, ok := doc["review_count"].(float64); ok {
		place.ReviewCount = int(reviews)
	}
	if price, ok := doc["price_level"].(float64); ok {
		place.PriceLevel = int(price)
	}
	if open, ok := doc["open_now"].(bool); ok {
		place.OpenNow = &open
	}
	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		if lat, ok := loc[0].(float64); ok {
			place.Location.Latitude = lat
		}
		if lng, ok := loc[1].(float64); ok {
			place.Location.Longitude = lng
		}
	}
	if rawTypes, ok := doc["types"].([]interface{}); ok {
		for _, t := range rawTypes {
			if s, ok := t.(string); ok {
				place.Types = append(place.Types, s)
			}
		}
	}
	return place
}
