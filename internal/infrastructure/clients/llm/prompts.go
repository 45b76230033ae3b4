package llm

import (
	"fmt"
	"strings"
)

const gateSystemPrompt = `You are the first-stage classifier for a restaurant and place search service. Decide whether the user's text is an in-domain place-search request.
- outcome CONTINUE: the text asks to find food, restaurants, cafes, bars or similar places.
- outcome STOP: the text is unrelated to finding places (small talk, coding questions, news, etc).
- outcome ASK_CLARIFY: the text is plausibly in-domain but too ambiguous to search.
Always set query_language to the BCP-47 primary language tag of the user's text (e.g. "en", "ja", "ko"). Set reason to a short machine-oriented note or null.`

const intentSystemPrompt = `You classify an in-domain place-search query into a provider route.
- TEXTSEARCH: a free-text search, possibly mentioning a city or area by name.
- NEARBY: the user wants places near their current position ("near me", "nearby", "around here").
- LANDMARK: the search is anchored on a named landmark or station.
Set city_text to a mentioned city/area name or null. Set region_candidate to an ISO 3166-1 alpha-2 code when the query implies a country, else null. confidence is 0..1.`

const mappingSystemPrompt = `You convert an in-domain place-search query into a provider-ready mapping.
query_text must be the canonical search text written in the target search language given by the user message, stripped of filler words but keeping cuisine, dish and area terms.
cuisine_key is a lowercase canonical cuisine identifier (e.g. "sushi", "pizza", "ramen") or null.
strictness is "strict" when the query names a specific dish or brand, "loose" when it is broad ("somewhere to eat"), else "normal".
open_now is true only when the user asks for places open right now.
landmark is a named anchor point or null. radius_m is a search radius in meters or null.
Do not add constraints the user did not express.`

const constraintsSystemPrompt = `You extract hard result constraints from a place-search query.
min_rating: minimum star rating (e.g. 4.0 for "highly rated") or null.
min_price/max_price: price level bounds 1-4 or null ("cheap" implies max_price 2; "fancy"/"upscale" implies min_price 3).
open_now: true when the user asks for places open right now, else null.
price_intent: "cheap", "luxury" or "none".
quality_want: true when the user emphasises quality ("best", "top rated", "highly rated").
Only set a field when the query clearly expresses it.`

func messageSystemPrompt(language string) string {
	return fmt.Sprintf(`You write one short assistant message for a place-search UI, in the language %q. One or two sentences, no markdown, no emoji. Never switch language.`, language)
}

func buildMessageUserPrompt(kind, query string, resultTops []string, errorCode string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message kind: %s\nUser query: %s\n", kind, query)
	if len(resultTops) > 0 {
		fmt.Fprintf(&b, "Top results: %s\n", strings.Join(resultTops, ", "))
	}
	if errorCode != "" {
		fmt.Fprintf(&b, "Failure code: %s\n", errorCode)
	}
	switch kind {
	case "summary":
		b.WriteString("Summarise what was found and invite the user to look at the list.")
	case "out_of_scope":
		b.WriteString("Politely say this service only searches for restaurants and places.")
	case "clarify":
		b.WriteString("Ask one concrete question that would make the query searchable.")
	case "need_location":
		b.WriteString("Ask the user to share their location or name an area to search in.")
	case "failure":
		b.WriteString("Apologise that the search could not be completed and suggest retrying.")
	}
	return b.String()
}

func buildMappingUserPrompt(query, searchLanguage string, route string) string {
	return fmt.Sprintf("Query: %s\nTarget search language: %s\nRoute: %s\n", query, searchLanguage, route)
}
