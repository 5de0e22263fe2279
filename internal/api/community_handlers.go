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

// CommunityHandler serves the community endpoints.
type CommunityHandler struct {
	communityRepo *database.PostgresCommunityRepository
	logger        *slog.Logger
}

func NewCommunityHandler(communityRepo *database.PostgresCommunityRepository, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{
		communityRepo: communityRepo,
		logger:        logger,
	}
}

// ListCommunitiesHandler handles GET /api/communities
func (h *CommunityHandler) ListCommunitiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	communities, err := h.communityRepo.List(r.Context(),
		q.Get("city_id"),
		models.VerificationStatus(q.Get("status")),
		limit)
	if err != nil {
		h.logger.Error("failed to list communities", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"communities": communities,
		"count":       len(communities),
	})
}

// GetCommunityHandler handles GET /api/communities/:id
func (h *CommunityHandler) GetCommunityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Community ID required", http.StatusBadRequest)
		return
	}

	community, err := h.communityRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Community not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get community", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, community)
}

// CreateCommunityHandler handles POST /api/communities. New communities
// start with pending verification.
func (h *CommunityHandler) CreateCommunityHandler(w http.ResponseWriter, r *http.Request) {
	var community models.Community
	if err := json.NewDecoder(r.Body).Decode(&community); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if community.Name == "" || community.CityID == "" {
		http.Error(w, "name and city_id are required", http.StatusBadRequest)
		return
	}

	community.VerificationStatus = models.VerificationPending
	community.EventCount = 0

	if err := h.communityRepo.Create(r.Context(), community); err != nil {
		h.logger.Error("failed to create community", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "pending"})
}

// UpdateCommunityHandler handles PUT /api/communities/:id
func (h *CommunityHandler) UpdateCommunityHandler(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Community ID required", http.StatusBadRequest)
		return
	}

	var community models.Community
	if err := json.NewDecoder(r.Body).Decode(&community); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	community.ID = id

	if err := h.communityRepo.Update(r.Context(), community); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Community not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update community", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteCommunityHandler handles DELETE /api/communities/:id
func (h *CommunityHandler) DeleteCommunityHandler(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 3)
	if id == "" {
		http.Error(w, "Community ID required", http.StatusBadRequest)
		return
	}

	if err := h.communityRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Community not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete community", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CommunityLeaderboardHandler handles GET /api/communities/leaderboard
func (h *CommunityHandler) CommunityLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	leaders, err := h.communityRepo.Leaderboard(r.Context(), q.Get("city_id"), limit)
	if err != nil {
		h.logger.Error("failed to load community leaderboard", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": leaders,
		"count":       len(leaders),
	})
}
