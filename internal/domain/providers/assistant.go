package providers

import (
	"context"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// GateResult is the first-pass classification of a query.
type GateResult struct {
	Outcome       entities.GateOutcome `json:"outcome"`
	QueryLanguage entities.Language    `json:"query_language"`
	Reason        string               `json:"reason,omitempty"`
}

// MessageKind selects which assistant message to generate.
type MessageKind string

const (
	MessageSummary      MessageKind = "summary"
	MessageOutOfScope   MessageKind = "out_of_scope"
	MessageClarify      MessageKind = "clarify"
	MessageNeedLocation MessageKind = "need_location"
	MessageFailure      MessageKind = "failure"
)

// MessageRequest describes one deferred assistant message. Language is an
// immutable snapshot captured before the deferred task is scheduled.
type MessageRequest struct {
	Kind       MessageKind
	Query      string
	Language   entities.Language
	ResultTops []string // names of the top-ranked results, for summaries
	ErrorCode  string   // taxonomy code, for failure messages
}

// AssistantProvider is the external text-generation collaborator. Every
// structured call is bound to a fixed JSON schema where all properties are
// required and nullable fields are typed [T, null].
type AssistantProvider interface {
	// Gate classifies whether the query is in-domain and detects its language
	Gate(ctx context.Context, query string) (*GateResult, error)

	// ClassifyIntent chooses a route and extracts location hints
	ClassifyIntent(ctx context.Context, query string, hasLocation bool) (*entities.IntentDecision, error)

	// MapQuery produces the provider-ready query object
	MapQuery(ctx context.Context, query string, lang entities.LanguageContext, route entities.Route) (*entities.QueryMapping, error)

	// ExtractConstraints pulls hard filter constraints out of the query
	ExtractConstraints(ctx context.Context, query string) (*entities.SearchConstraints, error)

	// GenerateMessage produces one free-text assistant message
	GenerateMessage(ctx context.Context, req MessageRequest) (string, error)
}
