package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Loopin-city/loopin-city-sub001/internal/auth"
	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/dedup"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"log/slog"
)

// DuplicateHandler serves the duplicate community review endpoints.
type DuplicateHandler struct {
	workflow      *dedup.Workflow
	duplicateRepo *database.PostgresDuplicateRepository
	logger        *slog.Logger
}

func NewDuplicateHandler(workflow *dedup.Workflow, duplicateRepo *database.PostgresDuplicateRepository, logger *slog.Logger) *DuplicateHandler {
	return &DuplicateHandler{
		workflow:      workflow,
		duplicateRepo: duplicateRepo,
		logger:        logger,
	}
}

// ListPendingHandler handles GET /api/admin/duplicates
func (h *DuplicateHandler) ListPendingHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	candidates, err := h.workflow.ListPending(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list duplicate candidates", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// CreateCandidateHandler handles POST /api/admin/duplicates, used by the
// external detector to register a flagged pair.
func (h *DuplicateHandler) CreateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	var candidate models.DuplicateCandidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if candidate.OriginalCommunityID == "" || candidate.DuplicateCommunityID == "" {
		http.Error(w, "original_community_id and duplicate_community_id are required", http.StatusBadRequest)
		return
	}
	if candidate.OriginalCommunityID == candidate.DuplicateCommunityID {
		http.Error(w, "a community cannot duplicate itself", http.StatusBadRequest)
		return
	}

	if err := h.duplicateRepo.Create(r.Context(), candidate); err != nil {
		h.logger.Error("failed to create duplicate candidate", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "pending"})
}

// DecisionRequest carries the optional admin notes for a review decision.
type DecisionRequest struct {
	Notes string `json:"notes"`
}

// MergeHandler handles POST /api/admin/duplicates/:id/merge
func (h *DuplicateHandler) MergeHandler(w http.ResponseWriter, r *http.Request) {
	candidateID := pathSegment(r.URL.Path, 4)
	if candidateID == "" {
		http.Error(w, "Candidate ID required", http.StatusBadRequest)
		return
	}

	var req DecisionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.workflow.Merge(r.Context(), candidateID, req.Notes, h.reviewer(r))
	if err != nil {
		h.writeDecisionError(w, candidateID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// KeepSeparateHandler handles POST /api/admin/duplicates/:id/keep-separate
func (h *DuplicateHandler) KeepSeparateHandler(w http.ResponseWriter, r *http.Request) {
	candidateID := pathSegment(r.URL.Path, 4)
	if candidateID == "" {
		http.Error(w, "Candidate ID required", http.StatusBadRequest)
		return
	}

	if err := h.workflow.KeepSeparate(r.Context(), candidateID, h.reviewer(r)); err != nil {
		h.writeDecisionError(w, candidateID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.DuplicateStatusKeepSeparate)})
}

// InvestigateHandler handles POST /api/admin/duplicates/:id/investigate
func (h *DuplicateHandler) InvestigateHandler(w http.ResponseWriter, r *http.Request) {
	candidateID := pathSegment(r.URL.Path, 4)
	if candidateID == "" {
		http.Error(w, "Candidate ID required", http.StatusBadRequest)
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.workflow.Investigate(r.Context(), candidateID, req.Notes, h.reviewer(r)); err != nil {
		h.writeDecisionError(w, candidateID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.DuplicateStatusNeedsInvestigation)})
}

func (h *DuplicateHandler) reviewer(r *http.Request) string {
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		return userID
	}
	return "admin"
}

func (h *DuplicateHandler) writeDecisionError(w http.ResponseWriter, candidateID string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, "Candidate not found", http.StatusNotFound)
	case errors.Is(err, database.ErrAlreadyReviewed):
		http.Error(w, "Candidate already reviewed", http.StatusConflict)
	default:
		h.logger.Error("duplicate decision failed", "candidate_id", candidateID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
