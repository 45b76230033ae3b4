package entities

import (
	"fmt"
	"strings"
)

// GateOutcome is the first-pass domain classification of a query.
type GateOutcome string

const (
	GateContinue   GateOutcome = "CONTINUE"
	GateStop       GateOutcome = "STOP"
	GateAskClarify GateOutcome = "ASK_CLARIFY"
)

// Route is the provider-query strategy chosen for a request.
type Route string

const (
	RouteTextSearch Route = "TEXTSEARCH"
	RouteNearby     Route = "NEARBY"
	RouteLandmark   Route = "LANDMARK"
	RouteStop       Route = "STOP"
	RouteClarify    Route = "CLARIFY"
)

// PriceIntent captures the price expectation expressed by a query.
type PriceIntent string

const (
	PriceIntentNone   PriceIntent = "none"
	PriceIntentCheap  PriceIntent = "cheap"
	PriceIntentLuxury PriceIntent = "luxury"
)

// IntentDecision is produced once per request by the gate/intent stages and
// is read-only afterward.
type IntentDecision struct {
	Route           Route   `json:"route"`
	Confidence      float64 `json:"confidence"`
	CityText        string  `json:"city_text,omitempty"`
	RegionCandidate string  `json:"region_candidate,omitempty"`
}

// OrderSignals are the intent signals the order profile resolver consumes.
// Language fields are deliberately absent: ranking never depends on them.
type OrderSignals struct {
	OpenNowRequested bool
	PriceIntent      PriceIntent
	QualityIntent    bool
	HasUserLocation  bool
}

// SearchConstraints are the hard post-filter constraints extracted from a
// query. All-nil constraints mean the post-filter stage is skipped.
type SearchConstraints struct {
	MinRating   *float64    `json:"min_rating,omitempty"`
	MaxPrice    *int        `json:"max_price,omitempty"`
	MinPrice    *int        `json:"min_price,omitempty"`
	OpenNow     *bool       `json:"open_now,omitempty"`
	QualityWant bool        `json:"quality_want,omitempty"`
	PriceIntent PriceIntent `json:"price_intent,omitempty"`
}

// Empty reports whether no hard constraint is set.
func (c *SearchConstraints) Empty() bool {
	if c == nil {
		return true
	}
	return c.MinRating == nil && c.MaxPrice == nil && c.MinPrice == nil && c.OpenNow == nil
}

// OpenNowRequested reports whether the query asked for currently-open places.
func (c *SearchConstraints) OpenNowRequested() bool {
	return c != nil && c.OpenNow != nil && *c.OpenNow
}

// MappingStrictness controls how literally the provider should take the
// mapped query.
type MappingStrictness string

const (
	StrictnessLoose  MappingStrictness = "loose"
	StrictnessNormal MappingStrictness = "normal"
	StrictnessStrict MappingStrictness = "strict"
)

// QueryMapping is the provider-ready query object produced by the
// route-mapping stage. Its content is trusted as-is by later stages.
type QueryMapping struct {
	QueryText  string            `json:"query_text"` // canonical text in searchLanguage
	Route      Route             `json:"route"`
	CuisineKey string            `json:"cuisine_key,omitempty"`
	Strictness MappingStrictness `json:"strictness"`
	OpenNow    bool              `json:"open_now"`
	Region     string            `json:"region,omitempty"`
	Landmark   string            `json:"landmark,omitempty"`
	RadiusM    int               `json:"radius_m,omitempty"`
	Fallback   bool              `json:"fallback,omitempty"` // derived deterministically after a mapping failure
}

// CacheKey returns a normalized key identifying this mapping for the
// provider result cache.
func (m *QueryMapping) CacheKey() string {
	parts := []string{
		"search",
		string(m.Route),
		strings.ToLower(strings.Join(strings.Fields(m.QueryText), " ")),
		strings.ToLower(m.CuisineKey),
		string(m.Strictness),
		strings.ToUpper(m.Region),
		strings.ToLower(m.Landmark),
		fmt.Sprintf("open=%t", m.OpenNow),
	}
	if m.RadiusM > 0 {
		parts = append(parts, fmt.Sprintf("r=%d", m.RadiusM))
	}
	return strings.Join(parts, ":")
}
