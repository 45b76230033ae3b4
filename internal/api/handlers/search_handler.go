package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/obafela/venuescout/backend/internal/application/services"
	"github.com/obafela/venuescout/backend/internal/broadcast"
	"github.com/obafela/venuescout/backend/internal/domain/entities"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	pipeline *services.PipelineService
	manager  *broadcast.Manager
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(pipeline *services.PipelineService, manager *broadcast.Manager) *SearchHandler {
	return &SearchHandler{
		pipeline: pipeline,
		manager:  manager,
	}
}

type searchRequestBody struct {
	Query          string             `json:"query"`
	ClientLocation *entities.Location `json:"client_location,omitempty"`
	UILanguage     string             `json:"ui_language,omitempty"`
	SessionID      string             `json:"session_id,omitempty"`
}

// Search handles POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := &entities.SearchRequest{
		RequestID:      uuid.New().String(),
		Query:          body.Query,
		ClientLocation: body.ClientLocation,
		UILanguageHint: entities.Language(body.UILanguage),
		SessionID:      body.SessionID,
		AcceptedAt:     time.Now().UTC(),
	}
	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Register ownership before the pipeline publishes anything, so an
	// early subscriber on this request ID passes validation.
	h.manager.GrantOwnership(req.RequestID, req.SessionID)

	resp, err := h.pipeline.Execute(r.Context(), req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			switch appErr.Type {
			case apperrors.ErrorTypeValidation:
				respondWithError(w, http.StatusBadRequest, appErr.Message)
			case apperrors.ErrorTypeRateLimit:
				respondWithError(w, http.StatusTooManyRequests, appErr.Message)
			case apperrors.ErrorTypeTimeoutGate, apperrors.ErrorTypeTimeoutIntent,
				apperrors.ErrorTypeTimeoutMapping, apperrors.ErrorTypeTimeoutSearch:
				respondWithError(w, http.StatusGatewayTimeout, appErr.Message)
			default:
				respondWithError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
