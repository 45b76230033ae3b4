package handlers

import (
	"errors"
	"net/http"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

// StatusHandler handles job status polling requests
type StatusHandler struct {
	jobs providers.JobStore
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(jobs providers.JobStore) *StatusHandler {
	return &StatusHandler{jobs: jobs}
}

// GetStatus handles GET /api/status/{requestId}
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")
	if requestID == "" {
		respondWithError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	job, err := h.jobs.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, providers.ErrJobNotFound) {
			respondWithError(w, http.StatusNotFound, "unknown request")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, entities.StatusPayload{
		RequestID: job.RequestID,
		Status:    job.Status,
		Progress:  job.Progress,
	})
}
