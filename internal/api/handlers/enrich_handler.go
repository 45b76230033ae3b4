package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/obafela/venuescout/backend/internal/application/services"
	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// EnrichHandler handles availability enrichment requests
type EnrichHandler struct {
	enrichment *services.EnrichmentService
	provider   string
}

// NewEnrichHandler creates a new enrichment handler
func NewEnrichHandler(enrichment *services.EnrichmentService, provider string) *EnrichHandler {
	return &EnrichHandler{enrichment: enrichment, provider: provider}
}

type enrichRequestBody struct {
	PlaceID   string `json:"place_id"`
	RequestID string `json:"request_id"`
}

// Enrich handles POST /api/enrich. The patch itself arrives over the
// broadcast channel; this endpoint only accepts the request.
func (h *EnrichHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var body enrichRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PlaceID == "" || body.RequestID == "" {
		respondWithError(w, http.StatusBadRequest, "place_id and request_id are required")
		return
	}

	job := entities.EnrichmentJob{
		Provider:  h.provider,
		PlaceID:   body.PlaceID,
		RequestID: body.RequestID,
	}
	if err := h.enrichment.Request(r.Context(), job); err != nil {
		respondWithError(w, http.StatusInternalServerError, "enrichment request failed")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"provider": job.Provider,
		"place_id": job.PlaceID,
		"status":   "accepted",
	})
}
