package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	"github.com/obafela/venuescout/backend/pkg/config"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is the external text-generation collaborator, implemented against
// an OpenAI-compatible chat-completions API with structured outputs.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

var _ providers.AssistantProvider = (*Client)(nil)

// NewClient creates a new assistant client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}

	if err := SelfCheck(); err != nil {
		return nil, fmt.Errorf("structured-output schema self-check failed: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// NewClientWithOptions allows overriding base URL and HTTP client (used for tests).
func NewClientWithOptions(cfg *config.LLMConfig, baseURL string, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(baseURL) != "" {
		c.baseURL = baseURL
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

// Close releases the client's rate-limiter resources.
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Gate classifies whether the query is in-domain and detects its language.
func (c *Client) Gate(ctx context.Context, query string) (*providers.GateResult, error) {
	var dto struct {
		Outcome       string  `json:"outcome"`
		QueryLanguage *string `json:"query_language"`
		Reason        *string `json:"reason"`
	}
	if err := c.structuredCall(ctx, "gate", gateSystemPrompt, query, &dto); err != nil {
		return nil, err
	}

	result := &providers.GateResult{
		Outcome: entities.GateOutcome(dto.Outcome),
	}
	if dto.QueryLanguage != nil {
		result.QueryLanguage = entities.Language(*dto.QueryLanguage)
	}
	if dto.Reason != nil {
		result.Reason = *dto.Reason
	}

	switch result.Outcome {
	case entities.GateContinue, entities.GateStop, entities.GateAskClarify:
	default:
		return nil, apperrors.NewSchemaInvalidError(
			fmt.Sprintf("gate returned unknown outcome %q", dto.Outcome), nil)
	}

	return result, nil
}

// ClassifyIntent chooses a route and extracts location hints.
func (c *Client) ClassifyIntent(ctx context.Context, query string, hasLocation bool) (*entities.IntentDecision, error) {
	var dto struct {
		Route           string  `json:"route"`
		Confidence      float64 `json:"confidence"`
		CityText        *string `json:"city_text"`
		RegionCandidate *string `json:"region_candidate"`
	}
	user := query
	if hasLocation {
		user = query + "\n(The client shared a usable device location.)"
	}
	if err := c.structuredCall(ctx, "intent", intentSystemPrompt, user, &dto); err != nil {
		return nil, err
	}

	decision := &entities.IntentDecision{
		Route:      entities.Route(dto.Route),
		Confidence: dto.Confidence,
	}
	if dto.CityText != nil {
		decision.CityText = *dto.CityText
	}
	if dto.RegionCandidate != nil {
		decision.RegionCandidate = strings.ToUpper(*dto.RegionCandidate)
	}

	switch decision.Route {
	case entities.RouteTextSearch, entities.RouteNearby, entities.RouteLandmark:
	default:
		return nil, apperrors.NewSchemaInvalidError(
			fmt.Sprintf("intent returned unknown route %q", dto.Route), nil)
	}

	return decision, nil
}

// MapQuery produces the provider-ready query object.
func (c *Client) MapQuery(ctx context.Context, query string, lang entities.LanguageContext, route entities.Route) (*entities.QueryMapping, error) {
	var dto struct {
		QueryText  string  `json:"query_text"`
		CuisineKey *string `json:"cuisine_key"`
		Strictness string  `json:"strictness"`
		OpenNow    bool    `json:"open_now"`
		Landmark   *string `json:"landmark"`
		RadiusM    *int    `json:"radius_m"`
	}
	user := buildMappingUserPrompt(query, string(lang.SearchLanguage), string(route))
	if err := c.structuredCall(ctx, "mapping", mappingSystemPrompt, user, &dto); err != nil {
		return nil, err
	}

	if strings.TrimSpace(dto.QueryText) == "" {
		return nil, apperrors.NewSchemaInvalidError("mapping returned empty query_text", nil)
	}

	mapping := &entities.QueryMapping{
		QueryText:  dto.QueryText,
		Route:      route,
		Strictness: entities.MappingStrictness(dto.Strictness),
		OpenNow:    dto.OpenNow,
	}
	if dto.CuisineKey != nil {
		mapping.CuisineKey = *dto.CuisineKey
	}
	if dto.Landmark != nil {
		mapping.Landmark = *dto.Landmark
	}
	if dto.RadiusM != nil {
		mapping.RadiusM = *dto.RadiusM
	}

	return mapping, nil
}

// ExtractConstraints pulls hard filter constraints out of the query.
func (c *Client) ExtractConstraints(ctx context.Context, query string) (*entities.SearchConstraints, error) {
	var dto struct {
		MinRating   *float64 `json:"min_rating"`
		MinPrice    *int     `json:"min_price"`
		MaxPrice    *int     `json:"max_price"`
		OpenNow     *bool    `json:"open_now"`
		PriceIntent string   `json:"price_intent"`
		QualityWant bool     `json:"quality_want"`
	}
	if err := c.structuredCall(ctx, "constraints", constraintsSystemPrompt, query, &dto); err != nil {
		return nil, err
	}

	return &entities.SearchConstraints{
		MinRating:   dto.MinRating,
		MinPrice:    dto.MinPrice,
		MaxPrice:    dto.MaxPrice,
		OpenNow:     dto.OpenNow,
		PriceIntent: entities.PriceIntent(dto.PriceIntent),
		QualityWant: dto.QualityWant,
	}, nil
}

// GenerateMessage produces one free-text assistant message.
func (c *Client) GenerateMessage(ctx context.Context, req providers.MessageRequest) (string, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: messageSystemPrompt(string(req.Language))},
			{Role: "user", Content: buildMessageUserPrompt(string(req.Kind), req.Query, req.ResultTops, req.ErrorCode)},
		},
		"temperature": 0.7,
		"max_tokens":  200,
	}

	text, err := c.call(ctx, "message", payload)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewSchemaInvalidError("assistant returned an empty message", nil)
	}
	return text, nil
}

// structuredCall runs one schema-bound call and unmarshals the result.
func (c *Client) structuredCall(ctx context.Context, schemaName, system, user string, out interface{}) error {
	schema, ok := schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature": 0.1,
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schemaName,
				"strict": true,
				"schema": schema,
			},
		},
	}

	text, err := c.call(ctx, schemaName, payload)
	if err != nil {
		return err
	}

	cleaned := stripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return apperrors.NewSchemaInvalidError(
			fmt.Sprintf("response for %q does not match the contract", schemaName), err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, callName string, payload map[string]interface{}) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordLLMMetric(ctx, c.model, callName, 0, 0, err)
			return "", err
		}
		recordLLMRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordLLMMetric(ctx, c.model, callName, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordLLMMetric(ctx, c.model, callName, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", apperrors.NewRateLimitError(fmt.Sprintf("llm call %q rejected for quota", callName))
		}
		return "", apperrors.NewNetworkError(
			fmt.Sprintf("llm call %q failed with status %d", callName, resp.StatusCode), nil)
	}

	var envelope chatEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordLLMMetric(ctx, c.model, callName, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		err := errors.New("llm response missing content")
		recordLLMMetric(ctx, c.model, callName, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	recordLLMMetric(ctx, c.model, callName, resp.StatusCode, time.Since(start), nil)
	return envelope.Choices[0].Message.Content, nil
}

func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
