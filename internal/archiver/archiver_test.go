package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/assets"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

var testNow = time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)

func newTestArchiver(events *mockEventRepo, archive *mockArchiveRepo, config Config, cleaner *mockCleaner) (*Archiver, *mockCounterStore) {
	counters := newMockCounterStore()
	communities := &mockCommunityRepo{names: map[string]string{
		"community-1": "Pune Gophers",
		"community-2": "Cloud Native Pune",
	}}

	var c assets.Cleaner
	if cleaner != nil {
		c = cleaner
	}

	a := New(events, archive, communities, counters, c, config, slog.Default())
	a.now = func() time.Time { return testNow }
	return a, counters
}

func expiredEvent(id, communityID string) models.Event {
	venueID := "venue-1"
	return models.Event{
		ID:          id,
		Title:       "Past Meetup",
		Date:        testNow.Add(-48 * time.Hour),
		Venue:       "Tech Hub",
		VenueID:     &venueID,
		CommunityID: communityID,
		CityID:      "city-1",
		EventType:   models.EventTypeMeetup,
		Status:      models.EventStatusApproved,
	}
}

func TestArchiveExpired_MovesExpiredEventsOnly(t *testing.T) {
	upcoming := expiredEvent("evt-upcoming", "community-1")
	upcoming.Date = testNow.Add(72 * time.Hour)

	events := newMockEventRepo(
		expiredEvent("evt-1", "community-1"),
		expiredEvent("evt-2", "community-1"),
		expiredEvent("evt-3", "community-2"),
		upcoming,
	)
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if result.SuccessfulEvents != 3 {
		t.Errorf("SuccessfulEvents = %d, want 3", result.SuccessfulEvents)
	}
	if result.DeletedEvents != 3 {
		t.Errorf("DeletedEvents = %d, want 3", result.DeletedEvents)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
	if !events.exists("evt-upcoming") {
		t.Error("upcoming event was deleted")
	}
	if events.exists("evt-1") || events.exists("evt-2") || events.exists("evt-3") {
		t.Error("expired events still present after archival")
	}

	snapshot := archive.get("evt-1")
	if snapshot == nil {
		t.Fatal("snapshot for evt-1 missing")
	}
	if snapshot.CommunityName != "Pune Gophers" {
		t.Errorf("CommunityName = %q, want %q", snapshot.CommunityName, "Pune Gophers")
	}
	if snapshot.Featured {
		t.Error("snapshot featured without the live event being featured")
	}
	if snapshot.BannerURL != nil {
		t.Error("snapshot carries a banner the live event never had")
	}
	if !snapshot.ArchivedAt.Equal(testNow) {
		t.Errorf("ArchivedAt = %v, want %v", snapshot.ArchivedAt, testNow)
	}
}

func TestArchiveExpired_SkipsUnapprovedEvents(t *testing.T) {
	pending := expiredEvent("evt-pending", "community-1")
	pending.Status = models.EventStatusPending
	cancelled := expiredEvent("evt-cancelled", "community-1")
	cancelled.Status = models.EventStatusCancelled

	events := newMockEventRepo(
		expiredEvent("evt-approved", "community-1"),
		pending,
		cancelled,
	)
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if result.SuccessfulEvents != 1 || result.DeletedEvents != 1 {
		t.Errorf("expected only the approved event archived, got %+v", result)
	}
	if !events.exists("evt-pending") {
		t.Error("pending event removed from the moderation queue")
	}
	if !events.exists("evt-cancelled") {
		t.Error("cancelled event deleted by the sweep")
	}
	if archive.get("evt-pending") != nil || archive.get("evt-cancelled") != nil {
		t.Error("unapproved events got archive snapshots")
	}
	if archive.get("evt-approved") == nil {
		t.Error("approved expired event was not archived")
	}
}

func TestArchiveExpired_OnlineEventGetsDefaultVenue(t *testing.T) {
	event := expiredEvent("evt-1", "community-1")
	event.IsOnline = true
	event.Venue = ""
	event.VenueID = nil

	events := newMockEventRepo(event)
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	if _, err := archiver.ArchiveExpired(context.Background()); err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	snapshot := archive.get("evt-1")
	if snapshot.Venue != "Online" {
		t.Errorf("Venue = %q, want %q", snapshot.Venue, "Online")
	}
}

func TestArchiveExpired_NoCandidatesIsSuccessfulNoop(t *testing.T) {
	events := newMockEventRepo()
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}
	if result.SuccessfulEvents != 0 || result.DeletedEvents != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestArchiveExpired_RerunIsIdempotent(t *testing.T) {
	events := newMockEventRepo(expiredEvent("evt-1", "community-1"))
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	ctx := context.Background()
	if _, err := archiver.ArchiveExpired(ctx); err != nil {
		t.Fatalf("first run returned error: %v", err)
	}

	result, err := archiver.ArchiveExpired(ctx)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if result.SuccessfulEvents != 0 || result.DeletedEvents != 0 {
		t.Errorf("second run archived something: %+v", result)
	}
	if archive.count() != 1 {
		t.Errorf("archive has %d snapshots, want 1", archive.count())
	}
}

func TestArchiveExpired_RetryAfterPartialRunSkipsExistingSnapshots(t *testing.T) {
	// Simulates a crash after the snapshot insert but before the delete:
	// evt-1 is already in the archive while both live rows remain.
	events := newMockEventRepo(
		expiredEvent("evt-1", "community-1"),
		expiredEvent("evt-2", "community-1"),
	)
	archive := newMockArchiveRepo()
	archive.seed(models.ArchivedEvent{ID: "evt-1", Title: "Past Meetup"})
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if result.SuccessfulEvents != 1 {
		t.Errorf("SuccessfulEvents = %d, want 1 (evt-1 already archived)", result.SuccessfulEvents)
	}
	if result.DeletedEvents != 2 {
		t.Errorf("DeletedEvents = %d, want 2", result.DeletedEvents)
	}
	if archive.count() != 2 {
		t.Errorf("archive has %d snapshots, want 2", archive.count())
	}
}

func TestArchiveOne_CountersUnchangedByDefault(t *testing.T) {
	events := newMockEventRepo(expiredEvent("evt-1", "community-1"))
	archive := newMockArchiveRepo()
	archiver, counters := newTestArchiver(events, archive, Config{}, nil)
	counters.communityCounts["community-1"] = 1
	counters.venueCounts["venue-1"] = 1

	result, err := archiver.ArchiveOne(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("ArchiveOne returned error: %v", err)
	}

	if result.UpdatedCommunities != 0 || result.UpdatedVenues != 0 {
		t.Errorf("counters credited with CreditCountsOnArchive off: %+v", result)
	}
	if counters.communityCounts["community-1"] != 1 {
		t.Errorf("community count = %d, want 1", counters.communityCounts["community-1"])
	}
	if counters.venueCounts["venue-1"] != 1 {
		t.Errorf("venue count = %d, want 1", counters.venueCounts["venue-1"])
	}
}

func TestArchiveExpired_CreditsCountersWhenEnabled(t *testing.T) {
	events := newMockEventRepo(
		expiredEvent("evt-1", "community-1"),
		expiredEvent("evt-2", "community-1"),
		expiredEvent("evt-3", "community-2"),
	)
	archive := newMockArchiveRepo()
	archiver, counters := newTestArchiver(events, archive, Config{CreditCountsOnArchive: true}, nil)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if result.UpdatedCommunities != 2 {
		t.Errorf("UpdatedCommunities = %d, want 2", result.UpdatedCommunities)
	}
	if result.UpdatedVenues != 1 {
		t.Errorf("UpdatedVenues = %d, want 1", result.UpdatedVenues)
	}
	// One credit per archived event: community-1 had two, community-2 one,
	// and all three shared venue-1.
	if counters.communityCounts["community-1"] != 2 {
		t.Errorf("community-1 credited %d times, want 2", counters.communityCounts["community-1"])
	}
	if counters.communityCounts["community-2"] != 1 {
		t.Errorf("community-2 credited %d times, want 1", counters.communityCounts["community-2"])
	}
	if counters.venueCounts["venue-1"] != 3 {
		t.Errorf("venue-1 credited %d times, want 3", counters.venueCounts["venue-1"])
	}
}

func TestArchiveOne_UnapprovedEventDoesNotCreditCounters(t *testing.T) {
	event := expiredEvent("evt-1", "community-1")
	event.Status = models.EventStatusPending

	events := newMockEventRepo(event)
	archive := newMockArchiveRepo()
	archiver, counters := newTestArchiver(events, archive, Config{CreditCountsOnArchive: true}, nil)

	result, err := archiver.ArchiveOne(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("ArchiveOne returned error: %v", err)
	}

	if result.SuccessfulEvents != 1 || result.DeletedEvents != 1 {
		t.Errorf("pending event was not archived: %+v", result)
	}
	if result.UpdatedCommunities != 0 || result.UpdatedVenues != 0 {
		t.Errorf("counters credited for an unapproved event: %+v", result)
	}
	if counters.communityCounts["community-1"] != 0 {
		t.Errorf("community count = %d, want 0", counters.communityCounts["community-1"])
	}
	if counters.venueCounts["venue-1"] != 0 {
		t.Errorf("venue count = %d, want 0", counters.venueCounts["venue-1"])
	}
}

func TestArchiveOne_NotFoundIsFatal(t *testing.T) {
	archiver, _ := newTestArchiver(newMockEventRepo(), newMockArchiveRepo(), Config{}, nil)

	if _, err := archiver.ArchiveOne(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing event")
	}
}

func TestArchiveExpired_InsertFailureIsFatal(t *testing.T) {
	events := newMockEventRepo(expiredEvent("evt-1", "community-1"))
	archive := newMockArchiveRepo()
	archive.failInsert = true
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	if _, err := archiver.ArchiveExpired(context.Background()); err == nil {
		t.Fatal("expected error when snapshot insert fails")
	}
	if !events.exists("evt-1") {
		t.Error("live event deleted after failed snapshot insert")
	}
}

func TestArchiveExpired_DeleteFailureIsFatal(t *testing.T) {
	events := newMockEventRepo(expiredEvent("evt-1", "community-1"))
	events.failDelete = true
	archive := newMockArchiveRepo()
	archiver, _ := newTestArchiver(events, archive, Config{}, nil)

	if _, err := archiver.ArchiveExpired(context.Background()); err == nil {
		t.Fatal("expected error when delete fails")
	}
	// The snapshot survives the failed delete; the retry skips it.
	if archive.count() != 1 {
		t.Errorf("archive has %d snapshots, want 1", archive.count())
	}
}

func TestArchiveExpired_CleanerFailuresAreWarnings(t *testing.T) {
	sponsorBanner := "https://storage.example.com/sponsors/sp-1.png"
	event := expiredEvent("evt-1", "community-1")
	event.Sponsors = []models.Sponsor{
		{ID: "sp-1", EventID: "evt-1", Name: "Acme", BannerURL: &sponsorBanner},
	}

	events := newMockEventRepo(event)
	archive := newMockArchiveRepo()
	cleaner := &mockCleaner{fail: true}
	archiver, _ := newTestArchiver(events, archive, Config{}, cleaner)

	result, err := archiver.ArchiveExpired(context.Background())
	if err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if len(result.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(result.Warnings), result.Warnings)
	}
	if result.SuccessfulEvents != 1 || result.DeletedEvents != 1 {
		t.Errorf("archival did not complete despite cleaner failures: %+v", result)
	}
}

func TestArchiveExpired_DeletesSponsorBannersOnly(t *testing.T) {
	eventBanner := "https://storage.example.com/banners/evt-1.png"
	sponsorBanner := "https://storage.example.com/sponsors/sp-1.png"
	event := expiredEvent("evt-1", "community-1")
	event.BannerURL = &eventBanner
	event.Sponsors = []models.Sponsor{
		{ID: "sp-1", EventID: "evt-1", Name: "Acme", BannerURL: &sponsorBanner},
	}

	events := newMockEventRepo(event)
	archive := newMockArchiveRepo()
	cleaner := &mockCleaner{}
	archiver, _ := newTestArchiver(events, archive, Config{}, cleaner)

	if _, err := archiver.ArchiveExpired(context.Background()); err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	if len(cleaner.deleted) != 1 || cleaner.deleted[0] != sponsorBanner {
		t.Errorf("deleted assets = %v, want [%s]", cleaner.deleted, sponsorBanner)
	}
}

func TestArchiveExpired_FeaturedEventKeepsBannerInSnapshot(t *testing.T) {
	eventBanner := "https://storage.example.com/banners/evt-1.png"
	event := expiredEvent("evt-1", "community-1")
	event.Featured = true
	event.BannerURL = &eventBanner

	events := newMockEventRepo(event)
	archive := newMockArchiveRepo()
	cleaner := &mockCleaner{}
	archiver, _ := newTestArchiver(events, archive, Config{}, cleaner)

	if _, err := archiver.ArchiveExpired(context.Background()); err != nil {
		t.Fatalf("ArchiveExpired returned error: %v", err)
	}

	snapshot := archive.get("evt-1")
	if snapshot == nil {
		t.Fatal("snapshot for evt-1 missing")
	}
	if !snapshot.Featured {
		t.Error("featured flag lost in the snapshot")
	}
	if snapshot.BannerURL == nil || *snapshot.BannerURL != eventBanner {
		t.Errorf("snapshot banner = %v, want %s", snapshot.BannerURL, eventBanner)
	}
	if len(cleaner.deleted) != 0 {
		t.Errorf("event banner deleted during archival: %v", cleaner.deleted)
	}
}

// Mock implementations

type mockEventRepo struct {
	mu         sync.Mutex
	events     map[string]models.Event
	failDelete bool
}

func newMockEventRepo(events ...models.Event) *mockEventRepo {
	repo := &mockEventRepo{events: make(map[string]models.Event)}
	for _, event := range events {
		repo.events[event.ID] = event
	}
	return repo
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, exists := m.events[id]
	if !exists {
		return nil, fmt.Errorf("event %s not found", id)
	}
	return &event, nil
}

func (m *mockEventRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := []models.Event{}
	for _, event := range m.events {
		if event.EndsAt().Before(cutoff) && event.Status == models.EventStatusApproved {
			expired = append(expired, event)
		}
	}
	return expired, nil
}

func (m *mockEventRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDelete {
		return 0, fmt.Errorf("delete unavailable")
	}

	var deleted int64
	for _, id := range ids {
		if _, exists := m.events[id]; exists {
			delete(m.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockEventRepo) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[id]
	return ok
}

type mockArchiveRepo struct {
	mu         sync.Mutex
	snapshots  map[string]models.ArchivedEvent
	failInsert bool
}

func newMockArchiveRepo() *mockArchiveRepo {
	return &mockArchiveRepo{snapshots: make(map[string]models.ArchivedEvent)}
}

func (m *mockArchiveRepo) InsertBatch(ctx context.Context, snapshots []models.ArchivedEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInsert {
		return 0, fmt.Errorf("archive unavailable")
	}

	inserted := 0
	for _, snapshot := range snapshots {
		if _, exists := m.snapshots[snapshot.ID]; exists {
			continue
		}
		m.snapshots[snapshot.ID] = snapshot
		inserted++
	}
	return inserted, nil
}

func (m *mockArchiveRepo) seed(snapshot models.ArchivedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.ID] = snapshot
}

func (m *mockArchiveRepo) get(id string) *models.ArchivedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, exists := m.snapshots[id]
	if !exists {
		return nil
	}
	return &snapshot
}

func (m *mockArchiveRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

type mockCommunityRepo struct {
	mu    sync.Mutex
	names map[string]string
}

func (m *mockCommunityRepo) GetByID(ctx context.Context, id string) (*models.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, exists := m.names[id]
	if !exists {
		return nil, fmt.Errorf("community %s not found", id)
	}
	return &models.Community{ID: id, Name: name}, nil
}

type mockCounterStore struct {
	mu              sync.Mutex
	communityCounts map[string]int
	venueCounts     map[string]int
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{
		communityCounts: make(map[string]int),
		venueCounts:     make(map[string]int),
	}
}

func (m *mockCounterStore) IncrementCommunityEventCount(ctx context.Context, communityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.communityCounts[communityID]++
	return nil
}

func (m *mockCounterStore) IncrementVenueEventCount(ctx context.Context, venueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venueCounts[venueID]++
	return nil
}

type mockCleaner struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (m *mockCleaner) DeleteAsset(ctx context.Context, assetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return fmt.Errorf("storage unavailable")
	}
	m.deleted = append(m.deleted, assetURL)
	return nil
}
