package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (all-jobs event feed)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Categorization jobs
	mux.HandleFunc("/api/jobs/categorize", s.app.JobHandler.StartCategorizationHandler) // POST - start a batch job
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobRoutesHandler)                     // GET /{id}, POST /{id}/pause|resume|cancel, GET /{id}/stream

	// API routes - Video library
	mux.HandleFunc("/api/videos/import", s.app.VideoHandler.ImportHandler) // POST - import liked videos
	mux.HandleFunc("/api/videos/stats", s.app.VideoHandler.StatsHandler)   // GET - library counts
	mux.HandleFunc("/api/videos", s.app.VideoHandler.ListHandler)          // GET - list videos
	mux.HandleFunc("/api/videos/", s.app.VideoHandler.VideoRoutesHandler)  // GET/DELETE /{id}

	// API routes - Taxonomy
	mux.HandleFunc("/api/categories", s.app.TaxonomyHandler.ListCategoriesHandler)
	mux.HandleFunc("/api/tags", s.app.TaxonomyHandler.ListTagsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
