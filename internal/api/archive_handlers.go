package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"log/slog"
)

// ArchiveHandler serves the archived event endpoints.
type ArchiveHandler struct {
	archiveRepo *database.PostgresArchiveRepository
	logger      *slog.Logger
}

func NewArchiveHandler(archiveRepo *database.PostgresArchiveRepository, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiveRepo: archiveRepo,
		logger:      logger,
	}
}

// ListArchivedEventsHandler handles GET /api/archive
func (h *ArchiveHandler) ListArchivedEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	query := models.ArchivedEventQuery{}

	if cityID := q.Get("city_id"); cityID != "" {
		query.CityID = &cityID
	}
	if communityID := q.Get("community_id"); communityID != "" {
		query.CommunityID = &communityID
	}
	if featured := q.Get("featured"); featured != "" {
		if b, err := strconv.ParseBool(featured); err == nil {
			query.Featured = &b
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.Limit = n
		}
	}

	events, err := h.archiveRepo.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list archived events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetArchivedEventHandler handles GET /api/archive/:id
func (h *ArchiveHandler) GetArchivedEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Archived event ID required", http.StatusBadRequest)
		return
	}

	event, err := h.archiveRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Archived event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get archived event", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateCurationRequest toggles the featured flag on an archived event.
type UpdateCurationRequest struct {
	Featured bool `json:"featured"`
}

// UpdateCurationHandler handles PUT /api/archive/:id/featured
func (h *ArchiveHandler) UpdateCurationHandler(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Archived event ID required", http.StatusBadRequest)
		return
	}

	var req UpdateCurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.archiveRepo.UpdateCuration(r.Context(), id, req.Featured); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Archived event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update curation", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"featured": req.Featured})
}

// TrackArchivedClickHandler handles POST /api/archive/:id/click
func (h *ArchiveHandler) TrackArchivedClickHandler(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Archived event ID required", http.StatusBadRequest)
		return
	}

	if err := h.archiveRepo.IncrementRegistrationClicks(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Archived event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to track archived click", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
