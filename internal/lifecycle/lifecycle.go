package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the moderation state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrPastEvent is returned when a cancelled event cannot be reinstated
// because it has already ended.
var ErrPastEvent = errors.New("event is in the past")

// EventRepository is the event storage needed by the lifecycle manager.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	Delete(ctx context.Context, id string) error
}

// CounterStore maintains the lifetime event counters on communities and
// venues.
type CounterStore interface {
	IncrementCommunityEventCount(ctx context.Context, communityID string) error
	DecrementCommunityEventCount(ctx context.Context, communityID string) error
	IncrementVenueEventCount(ctx context.Context, venueID string) error
	DecrementVenueEventCount(ctx context.Context, venueID string) error
}

// TransitionResult reports the outcome of a status change. Warnings carry
// counter failures that were logged but did not fail the transition.
type TransitionResult struct {
	EventID    string             `json:"event_id"`
	FromStatus models.EventStatus `json:"from_status"`
	ToStatus   models.EventStatus `json:"to_status"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// DeleteResult reports the outcome of an event deletion.
type DeleteResult struct {
	EventID  string   `json:"event_id"`
	Warnings []string `json:"warnings,omitempty"`
}

// allowedTransitions is the moderation state machine. A cancelled event can
// only return to approved while it is still upcoming; that guard lives in
// SetStatus.
var allowedTransitions = map[models.EventStatus][]models.EventStatus{
	models.EventStatusPending:   {models.EventStatusApproved, models.EventStatusRejected},
	models.EventStatusApproved:  {models.EventStatusCancelled, models.EventStatusRejected},
	models.EventStatusRejected:  {models.EventStatusApproved},
	models.EventStatusCancelled: {models.EventStatusApproved},
}

// Manager applies moderation status changes to events and keeps community
// and venue counters in sync with the approved set.
type Manager struct {
	eventRepo EventRepository
	counters  CounterStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a lifecycle manager.
func NewManager(eventRepo EventRepository, counters CounterStore, logger *slog.Logger) *Manager {
	return &Manager{
		eventRepo: eventRepo,
		counters:  counters,
		logger:    logger,
		now:       time.Now,
	}
}

// CanTransition reports whether the state machine allows the change.
func CanTransition(from, to models.EventStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SetStatus moves an event to a new moderation status. The status write is
// the primary effect: it either succeeds or the whole call fails. Counter
// updates happen after the write when the event crosses the approved
// boundary; their failures are logged and surfaced as warnings only, so the
// already-persisted status change is never rolled back.
func (m *Manager) SetStatus(ctx context.Context, id string, newStatus models.EventStatus) (*TransitionResult, error) {
	event, err := m.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	if !CanTransition(event.Status, newStatus) {
		return nil, fmt.Errorf("%s -> %s: %w", event.Status, newStatus, ErrInvalidTransition)
	}

	// A cancelled event that already ended stays cancelled; the archiver
	// owns past events.
	if event.Status == models.EventStatusCancelled && newStatus == models.EventStatusApproved {
		if event.IsPast(m.now()) {
			return nil, fmt.Errorf("cannot reinstate event %s: %w", id, ErrPastEvent)
		}
	}

	if err := m.eventRepo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	result := &TransitionResult{
		EventID:    id,
		FromStatus: event.Status,
		ToStatus:   newStatus,
	}

	wasApproved := event.Status == models.EventStatusApproved
	isApproved := newStatus == models.EventStatusApproved

	switch {
	case !wasApproved && isApproved:
		result.Warnings = m.creditCounters(ctx, event)
	case wasApproved && !isApproved:
		result.Warnings = m.debitCounters(ctx, event)
	}

	m.logger.Info("event status changed",
		"event_id", id,
		"from", event.Status,
		"to", newStatus,
		"warnings", len(result.Warnings))

	return result, nil
}

// DeleteEvent removes an event. Deleting an approved event debits the
// counters it was credited for; counter failures are warnings, not errors.
func (m *Manager) DeleteEvent(ctx context.Context, id string) (*DeleteResult, error) {
	event, err := m.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	if err := m.eventRepo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	result := &DeleteResult{EventID: id}
	if event.Status == models.EventStatusApproved {
		result.Warnings = m.debitCounters(ctx, event)
	}

	m.logger.Info("event deleted",
		"event_id", id,
		"status", event.Status,
		"warnings", len(result.Warnings))

	return result, nil
}

// creditCounters runs when an event enters the approved set.
func (m *Manager) creditCounters(ctx context.Context, event *models.Event) []string {
	warnings := []string{}

	if err := m.counters.IncrementCommunityEventCount(ctx, event.CommunityID); err != nil {
		m.logger.Error("failed to increment community event count",
			"event_id", event.ID,
			"community_id", event.CommunityID,
			"error", err)
		warnings = append(warnings, fmt.Sprintf("community counter update failed: %v", err))
	}

	if event.VenueID != nil {
		if err := m.counters.IncrementVenueEventCount(ctx, *event.VenueID); err != nil {
			m.logger.Error("failed to increment venue event count",
				"event_id", event.ID,
				"venue_id", *event.VenueID,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("venue counter update failed: %v", err))
		}
	}

	return warnings
}

// debitCounters runs when an event leaves the approved set.
func (m *Manager) debitCounters(ctx context.Context, event *models.Event) []string {
	warnings := []string{}

	if err := m.counters.DecrementCommunityEventCount(ctx, event.CommunityID); err != nil {
		m.logger.Error("failed to decrement community event count",
			"event_id", event.ID,
			"community_id", event.CommunityID,
			"error", err)
		warnings = append(warnings, fmt.Sprintf("community counter update failed: %v", err))
	}

	if event.VenueID != nil {
		if err := m.counters.DecrementVenueEventCount(ctx, *event.VenueID); err != nil {
			m.logger.Error("failed to decrement venue event count",
				"event_id", event.ID,
				"venue_id", *event.VenueID,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("venue counter update failed: %v", err))
		}
	}

	return warnings
}
