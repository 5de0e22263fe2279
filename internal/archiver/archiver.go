package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/assets"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// EventRepository is the live-event storage needed by the archiver.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]models.Event, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ArchiveRepository receives the immutable snapshots.
type ArchiveRepository interface {
	InsertBatch(ctx context.Context, snapshots []models.ArchivedEvent) (int, error)
}

// CommunityRepository resolves community names for denormalized snapshots.
type CommunityRepository interface {
	GetByID(ctx context.Context, id string) (*models.Community, error)
}

// CounterStore credits lifetime counters when CreditCountsOnArchive is
// enabled.
type CounterStore interface {
	IncrementCommunityEventCount(ctx context.Context, communityID string) error
	IncrementVenueEventCount(ctx context.Context, venueID string) error
}

// Config controls archiver behavior.
type Config struct {
	// CreditCountsOnArchive credits community and venue event counters
	// during archival. Off by default: approval already credits them,
	// and crediting twice would double-count approved events.
	CreditCountsOnArchive bool
}

// ArchiveResult summarizes one archival run.
type ArchiveResult struct {
	DeletedEvents      int           `json:"deleted_events"`
	SuccessfulEvents   int           `json:"successful_events"`
	UpdatedCommunities int           `json:"updated_communities"`
	UpdatedVenues      int           `json:"updated_venues"`
	Duration           time.Duration `json:"duration_ms"`
	Warnings           []string      `json:"warnings,omitempty"`
}

// Archiver moves expired events into the archive: snapshot first, delete
// after, so a crash between the two steps loses nothing. Snapshot inserts
// skip IDs already archived, which makes re-runs safe.
type Archiver struct {
	events      EventRepository
	archive     ArchiveRepository
	communities CommunityRepository
	counters    CounterStore
	cleaner     assets.Cleaner
	config      Config
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an archiver.
func New(events EventRepository, archive ArchiveRepository, communities CommunityRepository, counters CounterStore, cleaner assets.Cleaner, config Config, logger *slog.Logger) *Archiver {
	if cleaner == nil {
		cleaner = assets.NopCleaner{}
	}
	return &Archiver{
		events:      events,
		archive:     archive,
		communities: communities,
		counters:    counters,
		cleaner:     cleaner,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// ArchiveExpired archives every event whose end has passed. A run with no
// expired events is a successful no-op.
func (a *Archiver) ArchiveExpired(ctx context.Context) (*ArchiveResult, error) {
	cutoff := a.now()

	expired, err := a.events.ListExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired events: %w", err)
	}

	return a.archiveBatch(ctx, expired)
}

// ArchiveOne archives a single event by ID regardless of its date. Used by
// admins to retire an event early.
func (a *Archiver) ArchiveOne(ctx context.Context, id string) (*ArchiveResult, error) {
	event, err := a.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	return a.archiveBatch(ctx, []models.Event{*event})
}

func (a *Archiver) archiveBatch(ctx context.Context, events []models.Event) (*ArchiveResult, error) {
	start := a.now()
	result := &ArchiveResult{}

	if len(events) == 0 {
		a.logger.Info("no events to archive")
		result.Duration = a.now().Sub(start)
		return result, nil
	}

	archivedAt := a.now()
	snapshots := make([]models.ArchivedEvent, 0, len(events))
	ids := make([]string, 0, len(events))
	communityNames := map[string]string{}

	for i := range events {
		event := &events[i]

		result.Warnings = append(result.Warnings, a.cleanupAssets(ctx, event)...)

		name, ok := communityNames[event.CommunityID]
		if !ok {
			name = a.resolveCommunityName(ctx, event)
			communityNames[event.CommunityID] = name
		}

		snapshots = append(snapshots, buildSnapshot(event, name, archivedAt))
		ids = append(ids, event.ID)
	}

	inserted, err := a.archive.InsertBatch(ctx, snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to insert archive snapshots: %w", err)
	}
	result.SuccessfulEvents = inserted

	if a.config.CreditCountsOnArchive {
		communities, venues, warnings := a.creditCounters(ctx, events)
		result.UpdatedCommunities = communities
		result.UpdatedVenues = venues
		result.Warnings = append(result.Warnings, warnings...)
	}

	deleted, err := a.events.DeleteByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to delete archived events: %w", err)
	}
	result.DeletedEvents = int(deleted)
	result.Duration = a.now().Sub(start)

	a.logger.Info("archival run completed",
		"candidates", len(events),
		"archived", result.SuccessfulEvents,
		"deleted", result.DeletedEvents,
		"warnings", len(result.Warnings),
		"duration", result.Duration)

	return result, nil
}

// cleanupAssets deletes sponsor banner images from external storage. The
// event's own banner is kept because the snapshot still references it.
// Failures are warnings: a dangling asset is cheaper than a stuck
// archival run.
func (a *Archiver) cleanupAssets(ctx context.Context, event *models.Event) []string {
	warnings := []string{}

	urls := []string{}
	for _, sponsor := range event.Sponsors {
		if sponsor.BannerURL != nil && *sponsor.BannerURL != "" {
			urls = append(urls, *sponsor.BannerURL)
		}
	}

	for _, url := range urls {
		if err := a.cleaner.DeleteAsset(ctx, url); err != nil {
			a.logger.Warn("failed to delete asset",
				"event_id", event.ID,
				"url", url,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("asset cleanup failed for event %s: %v", event.ID, err))
		}
	}

	return warnings
}

// resolveCommunityName looks up the community for the snapshot, falling
// back to whatever name the event row carries.
func (a *Archiver) resolveCommunityName(ctx context.Context, event *models.Event) string {
	community, err := a.communities.GetByID(ctx, event.CommunityID)
	if err != nil {
		a.logger.Warn("failed to resolve community name for snapshot",
			"event_id", event.ID,
			"community_id", event.CommunityID,
			"error", err)
		return event.CommunityName
	}
	return community.Name
}

// creditCounters issues one increment per archived approved event, so a
// community with three expired events gets credited three times. Events
// that were never approved earn no credit.
func (a *Archiver) creditCounters(ctx context.Context, events []models.Event) (int, int, []string) {
	warnings := []string{}
	communities := map[string]bool{}
	venues := map[string]bool{}

	for i := range events {
		event := &events[i]

		if event.Status != models.EventStatusApproved {
			continue
		}

		if err := a.counters.IncrementCommunityEventCount(ctx, event.CommunityID); err != nil {
			warnings = append(warnings, fmt.Sprintf("community counter update failed: %v", err))
		} else {
			communities[event.CommunityID] = true
		}

		if event.VenueID != nil {
			if err := a.counters.IncrementVenueEventCount(ctx, *event.VenueID); err != nil {
				warnings = append(warnings, fmt.Sprintf("venue counter update failed: %v", err))
			} else {
				venues[*event.VenueID] = true
			}
		}
	}

	return len(communities), len(venues), warnings
}

// buildSnapshot produces the archive row for a live event. Featured status
// and the banner URL carry over so curated past events keep their look in
// the archive.
func buildSnapshot(event *models.Event, communityName string, archivedAt time.Time) models.ArchivedEvent {
	venue := event.Venue
	if event.IsOnline || venue == "" {
		venue = "Online"
	}

	return models.ArchivedEvent{
		ID:                 event.ID,
		Title:              event.Title,
		Date:               event.Date,
		EndDate:            event.EndDate,
		Venue:              venue,
		IsOnline:           event.IsOnline,
		EventType:          event.EventType,
		CommunityID:        event.CommunityID,
		CommunityName:      communityName,
		CityID:             event.CityID,
		BannerURL:          event.BannerURL,
		Featured:           event.Featured,
		RegistrationClicks: event.RegistrationClicks,
		CreatedAt:          event.CreatedAt,
		ArchivedAt:         archivedAt,
	}
}
