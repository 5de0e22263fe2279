package api

import (
	"net/http"
	"strconv"

	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"log/slog"
)

// VenueHandler serves the venue endpoints.
type VenueHandler struct {
	venueRepo *database.PostgresVenueRepository
	logger    *slog.Logger
}

func NewVenueHandler(venueRepo *database.PostgresVenueRepository, logger *slog.Logger) *VenueHandler {
	return &VenueHandler{
		venueRepo: venueRepo,
		logger:    logger,
	}
}

// ListVenuesHandler handles GET /api/venues
func (h *VenueHandler) ListVenuesHandler(w http.ResponseWriter, r *http.Request) {
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

	venues, err := h.venueRepo.List(r.Context(), q.Get("city_id"), limit)
	if err != nil {
		h.logger.Error("failed to list venues", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"venues": venues,
		"count":  len(venues),
	})
}

// VenueLeaderboardHandler handles GET /api/venues/leaderboard
func (h *VenueHandler) VenueLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
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

	leaders, err := h.venueRepo.Leaderboard(r.Context(), q.Get("city_id"), limit)
	if err != nil {
		h.logger.Error("failed to load venue leaderboard", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": leaders,
		"count":       len(leaders),
	})
}
