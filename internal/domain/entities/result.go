package entities

import "time"

// Place is the internal shape a provider result is mapped into.
type Place struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Location    Location `json:"location"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	PriceLevel  int      `json:"price_level"` // 0 = unknown, 1-4
	OpenNow     *bool    `json:"open_now,omitempty"`
	Types       []string `json:"types,omitempty"`
	DistanceKm  float64  `json:"distance_km,omitempty"`
}

// RankedPlace is a place with its ranking score attached.
type RankedPlace struct {
	Place          *Place             `json:"place"`
	Score          float64            `json:"score"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown,omitempty"`
}

// TerminalReason explains a zero-result response.
type TerminalReason string

const (
	TerminalNone       TerminalReason = ""
	TerminalOutOfScope TerminalReason = "out_of_scope"
	TerminalClarify    TerminalReason = "clarify"
	TerminalFailed     TerminalReason = "failed"
)

// ResponseMeta carries response metadata. Order is always present, even on
// early-exit responses.
type ResponseMeta struct {
	Order    OrderProfile    `json:"order"`
	Language LanguageContext `json:"language"`
	Terminal TerminalReason  `json:"terminal,omitempty"`
	Cached   bool            `json:"cached,omitempty"`
}

// SearchResponse is the final assembled payload for a request.
type SearchResponse struct {
	RequestID string        `json:"request_id"`
	Results   []RankedPlace `json:"results"`
	Meta      ResponseMeta  `json:"meta"`
	CreatedAt time.Time     `json:"created_at"`
}

// AssistantMessage is a free-text assistant message broadcast to the
// request's subscribers.
type AssistantMessage struct {
	Text         string   `json:"text"`
	Language     Language `json:"language"`
	BlocksSearch bool     `json:"blocks_search"`
}
