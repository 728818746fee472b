package handlers

import (
	"net/http"
	"time"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
	timeout time.Duration
}

func NewCatalogHandler(catalog *services.CatalogService, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, timeout: timeout}
}

func (h *CatalogHandler) Tags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	tags, err := h.catalog.Tags(ctx)
	if err != nil {
		writeError(w, r, "ListTags", err, "Failed to list tags")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(tags))
}

func (h *CatalogHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	anns, err := h.catalog.Announcements(ctx)
	if err != nil {
		writeError(w, r, "ListAnnouncements", err, "Failed to list announcements")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(anns))
}

func (h *CatalogHandler) AnnouncementCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.catalog.AnnouncementCount(ctx)
	if err != nil {
		writeError(w, r, "CountAnnouncements", err, "Failed to count announcements")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.CountResult{Count: n}))
}
