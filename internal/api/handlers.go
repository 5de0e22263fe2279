package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/archiver"
	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/lifecycle"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"log/slog"
)

// Handler serves the live event endpoints.
type Handler struct {
	eventRepo   *database.PostgresEventRepository
	venueRepo   *database.PostgresVenueRepository
	manager     *lifecycle.Manager
	archiver    *archiver.Archiver
	cleanupLogs *database.CleanupLogRepository
	logger      *slog.Logger
	startTime   time.Time
}

func NewHandler(eventRepo *database.PostgresEventRepository, venueRepo *database.PostgresVenueRepository, manager *lifecycle.Manager, arch *archiver.Archiver, cleanupLogs *database.CleanupLogRepository, logger *slog.Logger) *Handler {
	return &Handler{
		eventRepo:   eventRepo,
		venueRepo:   venueRepo,
		manager:     manager,
		archiver:    arch,
		cleanupLogs: cleanupLogs,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// GetEventsHandler handles GET /api/events
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := h.parseQueryParams(r)

	response, err := h.eventRepo.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// CreateEventRequest is the public event submission payload.
type CreateEventRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	BannerURL       *string          `json:"banner_url,omitempty"`
	Date            time.Time        `json:"date"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	Venue           string           `json:"venue"`
	IsOnline        bool             `json:"is_online"`
	EventType       models.EventType `json:"event_type"`
	CommunityID     string           `json:"community_id"`
	CityID          string           `json:"city_id"`
	OrganizerName   string           `json:"organizer_name"`
	OrganizerEmail  string           `json:"organizer_email"`
	OrganizerPhone  string           `json:"organizer_phone"`
	RegistrationURL string           `json:"registration_url"`
	Sponsors        []models.Sponsor `json:"sponsors,omitempty"`
}

// CreateEventHandler handles POST /api/events. Submissions always enter the
// moderation queue as pending.
func (h *Handler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := ValidateEventSubmission(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event := models.Event{
		Title:           req.Title,
		Description:     req.Description,
		BannerURL:       req.BannerURL,
		Date:            req.Date,
		EndDate:         req.EndDate,
		Venue:           req.Venue,
		IsOnline:        req.IsOnline,
		EventType:       req.EventType,
		CommunityID:     req.CommunityID,
		CityID:          req.CityID,
		OrganizerName:   req.OrganizerName,
		OrganizerEmail:  req.OrganizerEmail,
		OrganizerPhone:  req.OrganizerPhone,
		RegistrationURL: req.RegistrationURL,
		Status:          models.EventStatusPending,
		Sponsors:        req.Sponsors,
	}

	// Physical events get a venue row so venue stats survive event churn
	if !req.IsOnline && req.Venue != "" {
		venue, err := h.venueRepo.FindOrCreate(r.Context(), req.Venue, req.CityID)
		if err != nil {
			h.logger.Error("failed to resolve venue", "venue", req.Venue, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		event.VenueID = &venue.ID
	}

	if err := h.eventRepo.Create(r.Context(), event); err != nil {
		h.logger.Error("failed to create event", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("event submitted", "title", event.Title, "community_id", event.CommunityID)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "pending"})
}

// GetEventByIDHandler handles GET /api/events/:id
func (h *Handler) GetEventByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventID := pathSegment(r.URL.Path, 3)
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	event, err := h.eventRepo.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get event", "id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEventStatusRequest is the admin moderation payload.
type UpdateEventStatusRequest struct {
	Status models.EventStatus `json:"status"`
}

// UpdateEventStatusHandler handles PUT /api/events/:id/status
func (h *Handler) UpdateEventStatusHandler(w http.ResponseWriter, r *http.Request) {
	eventID := pathSegment(r.URL.Path, 3)
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	var req UpdateEventStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.manager.SetStatus(r.Context(), eventID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			http.Error(w, "Event not found", http.StatusNotFound)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, lifecycle.ErrPastEvent):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("failed to update event status", "id", eventID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteEventHandler handles DELETE /api/events/:id
func (h *Handler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := pathSegment(r.URL.Path, 3)
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	result, err := h.manager.DeleteEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete event", "id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ArchiveEventHandler handles POST /api/events/:id/archive, retiring a
// single event ahead of its scheduled cleanup.
func (h *Handler) ArchiveEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := pathSegment(r.URL.Path, 3)
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	result, err := h.archiver.ArchiveOne(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to archive event", "id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	entry := models.CleanupLog{
		Action: models.CleanupActionSingleArchive,
		Result: map[string]interface{}{
			"event_id":       eventID,
			"deleted_events": result.DeletedEvents,
			"warnings":       result.Warnings,
		},
	}
	if err := h.cleanupLogs.Log(r.Context(), entry); err != nil {
		h.logger.Error("failed to record cleanup log", "event_id", eventID, "error", err)
	}

	writeJSON(w, http.StatusOK, result)
}

// TrackEventClickHandler handles POST /api/events/:id/click
func (h *Handler) TrackEventClickHandler(w http.ResponseWriter, r *http.Request) {
	eventID := pathSegment(r.URL.Path, 3)
	if eventID == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}

	if err := h.eventRepo.IncrementRegistrationClicks(r.Context(), eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to track registration click", "id", eventID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseQueryParams converts URL query parameters to EventQuery
func (h *Handler) parseQueryParams(r *http.Request) models.EventQuery {
	q := r.URL.Query()
	query := models.EventQuery{}

	query.Search = q.Get("search")

	if status := q.Get("status"); status != "" {
		s := models.EventStatus(status)
		query.Status = &s
	}
	if communityID := q.Get("community_id"); communityID != "" {
		query.CommunityID = &communityID
	}
	if venueID := q.Get("venue_id"); venueID != "" {
		query.VenueID = &venueID
	}
	if cityID := q.Get("city_id"); cityID != "" {
		query.CityID = &cityID
	}
	if eventType := q.Get("event_type"); eventType != "" {
		et := models.EventType(eventType)
		query.EventType = &et
	}

	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query.To = &t
		}
	}

	if upcoming := q.Get("upcoming"); upcoming != "" {
		query.UpcomingOnly, _ = strconv.ParseBool(upcoming)
	}

	if page := q.Get("page"); page != "" {
		if n, err := strconv.Atoi(page); err == nil {
			query.Page = n
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.Limit = n
		}
	}

	query.SortBy = models.EventSortField(q.Get("sort_by"))
	query.SortOrder = models.SortOrder(q.Get("sort_order"))

	return query
}

// pathSegment returns the nth slash-separated segment of the path, e.g.
// segment 3 of /api/events/:id/status is the event ID.
func pathSegment(path string, n int) string {
	parts := strings.Split(path, "/")
	if len(parts) <= n {
		return ""
	}
	return parts[n]
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
