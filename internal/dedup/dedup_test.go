package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

func newTestWorkflow(config Config) (*Workflow, *mockEventRepo, *mockCommunityRepo, *mockDuplicateRepo, *mockCounterStore) {
	events := newMockEventRepo(map[string]string{
		"evt-1": "community-dup",
		"evt-2": "community-dup",
		"evt-3": "community-dup",
		"evt-4": "community-orig",
	})
	communities := newMockCommunityRepo("community-orig", "community-dup")
	duplicates := newMockDuplicateRepo(models.DuplicateCandidate{
		ID:                     "cand-1",
		OriginalCommunityID:    "community-orig",
		OriginalCommunityName:  "Pune Gophers",
		DuplicateCommunityID:   "community-dup",
		DuplicateCommunityName: "Pune Gophers Meetup",
		SimilarityScore:        0.93,
		AdminStatus:            models.DuplicateStatusPending,
	})
	counters := newMockCounterStore()

	w := NewWorkflow(events, communities, duplicates, counters, config, slog.Default())
	return w, events, communities, duplicates, counters
}

func TestMerge_ReassignsEventsAndDeletesDuplicate(t *testing.T) {
	w, events, communities, duplicates, _ := newTestWorkflow(Config{})

	result, err := w.Merge(context.Background(), "cand-1", "Same organizer on both pages", "admin@loopin.city")
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	if result.ReassignedEvents != 3 {
		t.Errorf("ReassignedEvents = %d, want 3", result.ReassignedEvents)
	}
	if result.CanonicalCommunityID != "community-orig" {
		t.Errorf("CanonicalCommunityID = %s, want community-orig", result.CanonicalCommunityID)
	}

	for _, eventID := range []string{"evt-1", "evt-2", "evt-3", "evt-4"} {
		if got := events.communityOf(eventID); got != "community-orig" {
			t.Errorf("event %s belongs to %s, want community-orig", eventID, got)
		}
	}
	if communities.exists("community-dup") {
		t.Error("duplicate community still exists after merge")
	}
	if !communities.exists("community-orig") {
		t.Error("canonical community was deleted")
	}

	candidate := duplicates.get("cand-1")
	if candidate.AdminStatus != models.DuplicateStatusMergeApproved {
		t.Errorf("AdminStatus = %s, want merge_approved", candidate.AdminStatus)
	}
	if candidate.ReviewedBy != "admin@loopin.city" {
		t.Errorf("ReviewedBy = %s, want admin@loopin.city", candidate.ReviewedBy)
	}
	if !strings.Contains(candidate.AdminNotes, "Same organizer on both pages") {
		t.Errorf("admin notes lost: %q", candidate.AdminNotes)
	}
	if !strings.Contains(candidate.AdminNotes, "Merged 3 events") {
		t.Errorf("audit note missing from %q", candidate.AdminNotes)
	}
}

func TestMerge_CountersUntouchedByDefault(t *testing.T) {
	w, _, _, _, counters := newTestWorkflow(Config{})

	if _, err := w.Merge(context.Background(), "cand-1", "", "admin"); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	if len(counters.adjustments) != 0 {
		t.Errorf("counters adjusted with ReconcileCountsOnMerge off: %v", counters.adjustments)
	}
}

func TestMerge_ReconcilesCountersWhenEnabled(t *testing.T) {
	w, _, _, _, counters := newTestWorkflow(Config{ReconcileCountsOnMerge: true})

	if _, err := w.Merge(context.Background(), "cand-1", "", "admin"); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	if got := counters.adjustments["community-orig"]; got != 3 {
		t.Errorf("canonical community adjusted by %d, want 3", got)
	}
}

func TestMerge_CommunityDeleteFailureLeavesCandidatePending(t *testing.T) {
	w, events, communities, duplicates, _ := newTestWorkflow(Config{})
	communities.failDelete = true

	_, err := w.Merge(context.Background(), "cand-1", "", "admin")
	if err == nil {
		t.Fatal("expected error when community delete fails")
	}

	// Events were already moved, but the decision was not recorded, so
	// the merge can be retried.
	if got := events.communityOf("evt-1"); got != "community-orig" {
		t.Errorf("event evt-1 belongs to %s, want community-orig", got)
	}
	if duplicates.get("cand-1").AdminStatus != models.DuplicateStatusPending {
		t.Error("candidate no longer pending after failed merge")
	}
}

func TestMerge_AlreadyReviewedCandidateIsRejected(t *testing.T) {
	w, events, _, duplicates, _ := newTestWorkflow(Config{})
	duplicates.setStatus("cand-1", models.DuplicateStatusKeepSeparate)

	_, err := w.Merge(context.Background(), "cand-1", "", "admin")
	if !errors.Is(err, database.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if got := events.communityOf("evt-1"); got != "community-dup" {
		t.Errorf("events reassigned despite reviewed candidate")
	}
}

func TestMerge_UnknownCandidate(t *testing.T) {
	w, _, _, _, _ := newTestWorkflow(Config{})

	_, err := w.Merge(context.Background(), "missing", "", "admin")
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeepSeparate_RecordsFixedNote(t *testing.T) {
	w, events, communities, duplicates, _ := newTestWorkflow(Config{})

	if err := w.KeepSeparate(context.Background(), "cand-1", "admin"); err != nil {
		t.Fatalf("KeepSeparate returned error: %v", err)
	}

	candidate := duplicates.get("cand-1")
	if candidate.AdminStatus != models.DuplicateStatusKeepSeparate {
		t.Errorf("AdminStatus = %s, want keep_separate", candidate.AdminStatus)
	}
	if candidate.AdminNotes != keepSeparateNote {
		t.Errorf("AdminNotes = %q, want %q", candidate.AdminNotes, keepSeparateNote)
	}
	if !communities.exists("community-dup") {
		t.Error("keep_separate deleted a community")
	}
	if got := events.communityOf("evt-1"); got != "community-dup" {
		t.Error("keep_separate reassigned events")
	}
}

func TestInvestigate_KeepsAdminNotes(t *testing.T) {
	w, _, _, duplicates, _ := newTestWorkflow(Config{})

	if err := w.Investigate(context.Background(), "cand-1", "Waiting for organizer reply", "admin"); err != nil {
		t.Fatalf("Investigate returned error: %v", err)
	}

	candidate := duplicates.get("cand-1")
	if candidate.AdminStatus != models.DuplicateStatusNeedsInvestigation {
		t.Errorf("AdminStatus = %s, want needs_investigation", candidate.AdminStatus)
	}
	if candidate.AdminNotes != "Waiting for organizer reply" {
		t.Errorf("AdminNotes = %q", candidate.AdminNotes)
	}
}

func TestDecisions_SecondDecisionFails(t *testing.T) {
	w, _, _, _, _ := newTestWorkflow(Config{})

	ctx := context.Background()
	if err := w.KeepSeparate(ctx, "cand-1", "admin"); err != nil {
		t.Fatalf("first decision returned error: %v", err)
	}

	err := w.Investigate(ctx, "cand-1", "second thoughts", "admin")
	if !errors.Is(err, database.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestListPending_DelegatesToRepository(t *testing.T) {
	w, _, _, _, _ := newTestWorkflow(Config{})

	pending, err := w.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "cand-1" {
		t.Errorf("pending = %v, want [cand-1]", pending)
	}
}

// Mock implementations

type mockEventRepo struct {
	mu          sync.Mutex
	communities map[string]string
}

func newMockEventRepo(eventCommunities map[string]string) *mockEventRepo {
	return &mockEventRepo{communities: eventCommunities}
}

func (m *mockEventRepo) ReassignCommunity(ctx context.Context, fromID, toID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var moved int64
	for eventID, communityID := range m.communities {
		if communityID == fromID {
			m.communities[eventID] = toID
			moved++
		}
	}
	return moved, nil
}

func (m *mockEventRepo) communityOf(eventID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.communities[eventID]
}

type mockCommunityRepo struct {
	mu          sync.Mutex
	communities map[string]bool
	failDelete  bool
}

func newMockCommunityRepo(ids ...string) *mockCommunityRepo {
	repo := &mockCommunityRepo{communities: make(map[string]bool)}
	for _, id := range ids {
		repo.communities[id] = true
	}
	return repo
}

func (m *mockCommunityRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDelete {
		return fmt.Errorf("delete unavailable")
	}
	if !m.communities[id] {
		return fmt.Errorf("community %s: %w", id, database.ErrNotFound)
	}
	delete(m.communities, id)
	return nil
}

func (m *mockCommunityRepo) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.communities[id]
}

type mockDuplicateRepo struct {
	mu         sync.Mutex
	candidates map[string]models.DuplicateCandidate
}

func newMockDuplicateRepo(candidates ...models.DuplicateCandidate) *mockDuplicateRepo {
	repo := &mockDuplicateRepo{candidates: make(map[string]models.DuplicateCandidate)}
	for _, candidate := range candidates {
		repo.candidates[candidate.ID] = candidate
	}
	return repo
}

func (m *mockDuplicateRepo) GetByID(ctx context.Context, id string) (*models.DuplicateCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, exists := m.candidates[id]
	if !exists {
		return nil, fmt.Errorf("duplicate candidate %s: %w", id, database.ErrNotFound)
	}
	return &candidate, nil
}

func (m *mockDuplicateRepo) ListPending(ctx context.Context, limit int) ([]models.DuplicateCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := []models.DuplicateCandidate{}
	for _, candidate := range m.candidates {
		if candidate.AdminStatus == models.DuplicateStatusPending {
			pending = append(pending, candidate)
		}
	}
	return pending, nil
}

func (m *mockDuplicateRepo) UpdateDecision(ctx context.Context, id string, status models.DuplicateStatus, notes, reviewedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, exists := m.candidates[id]
	if !exists {
		return fmt.Errorf("duplicate candidate %s: %w", id, database.ErrNotFound)
	}
	if candidate.AdminStatus != models.DuplicateStatusPending {
		return database.ErrAlreadyReviewed
	}

	now := time.Now()
	candidate.AdminStatus = status
	candidate.AdminNotes = notes
	candidate.ReviewedBy = reviewedBy
	candidate.ReviewedAt = &now
	m.candidates[id] = candidate
	return nil
}

func (m *mockDuplicateRepo) get(id string) models.DuplicateCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidates[id]
}

func (m *mockDuplicateRepo) setStatus(id string, status models.DuplicateStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.candidates[id]
	candidate.AdminStatus = status
	m.candidates[id] = candidate
}

type mockCounterStore struct {
	mu          sync.Mutex
	adjustments map[string]int
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{adjustments: make(map[string]int)}
}

func (m *mockCounterStore) AddCommunityEventCount(ctx context.Context, communityID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[communityID] += delta
	return nil
}
