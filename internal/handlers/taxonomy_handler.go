package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/services/taxonomy"
)

// TaxonomyHandler serves the category taxonomy and accumulated tags
type TaxonomyHandler struct {
	storage  interfaces.StorageManager
	taxonomy *taxonomy.Service
	logger   arbor.ILogger
}

// NewTaxonomyHandler creates a new taxonomy handler
func NewTaxonomyHandler(storage interfaces.StorageManager, taxonomyService *taxonomy.Service, logger arbor.ILogger) *TaxonomyHandler {
	return &TaxonomyHandler{
		storage:  storage,
		taxonomy: taxonomyService,
		logger:   logger,
	}
}

// ListCategoriesHandler returns the categories that classification has
// actually produced, plus the configured allowed list
// GET /api/categories
func (h *TaxonomyHandler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	categories, err := h.storage.TaxonomyStorage().ListCategories(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list categories: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"allowed":    h.taxonomy.Categories(),
		"count":      len(categories),
	})
}

// ListTagsHandler returns all tags accumulated from classifications
// GET /api/tags
func (h *TaxonomyHandler) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	tags, err := h.storage.TaxonomyStorage().ListTags(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list tags: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}
