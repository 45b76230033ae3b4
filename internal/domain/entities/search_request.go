package entities

import (
	"strings"
	"time"
)

// Location represents a geographic coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the location carries no coordinates.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// SearchRequest is an accepted free-text search request. It is immutable
// once accepted and identified by RequestID.
type SearchRequest struct {
	RequestID      string    `json:"request_id"`
	Query          string    `json:"query"`
	ClientLocation *Location `json:"client_location,omitempty"`
	UILanguageHint Language  `json:"ui_language_hint,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	AcceptedAt     time.Time `json:"accepted_at"`
}

// Validate checks the request is well-formed.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}
