package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/scheduler"
	"log/slog"
)

// CleanupHandler serves the admin archival endpoints.
type CleanupHandler struct {
	scheduler *scheduler.CleanupScheduler
	logRepo   *database.CleanupLogRepository
	logger    *slog.Logger
}

func NewCleanupHandler(sched *scheduler.CleanupScheduler, logRepo *database.CleanupLogRepository, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{
		scheduler: sched,
		logRepo:   logRepo,
		logger:    logger,
	}
}

// TriggerCleanupHandler handles POST /api/admin/cleanup
func (h *CleanupHandler) TriggerCleanupHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual cleanup failed", "error", err)
		http.Error(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListCleanupLogsHandler handles GET /api/admin/cleanup-logs
func (h *CleanupHandler) ListCleanupLogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	logs, err := h.logRepo.List(r.Context(), limit, q.Get("action"))
	if err != nil {
		h.logger.Error("failed to list cleanup logs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// LatestCleanupLogHandler handles GET /api/admin/cleanup-logs/latest
func (h *CleanupHandler) LatestCleanupLogHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.logRepo.Latest(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "No cleanup runs recorded", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load latest cleanup log", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
