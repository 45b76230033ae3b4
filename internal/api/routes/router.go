package routes

import (
	"net/http"

	"github.com/obafela/venuescout/backend/internal/api/handlers"
	"github.com/obafela/venuescout/backend/internal/api/middleware"
	"github.com/obafela/venuescout/backend/internal/broadcast"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler *handlers.SearchHandler
	statusHandler *handlers.StatusHandler
	enrichHandler *handlers.EnrichHandler

	manager *broadcast.Manager
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	statusHandler *handlers.StatusHandler,
	enrichHandler *handlers.EnrichHandler,
	manager *broadcast.Manager,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		searchHandler: searchHandler,
		statusHandler: statusHandler,
		enrichHandler: enrichHandler,
		manager:       manager,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("POST /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/status/{requestId}", r.statusHandler.GetStatus)

	// Enrichment endpoint
	r.mux.HandleFunc("POST /api/enrich", r.enrichHandler.Enrich)

	// Broadcast connection
	r.mux.HandleFunc("GET /ws", r.manager.HandleWS)

	// Apply middleware chain
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
