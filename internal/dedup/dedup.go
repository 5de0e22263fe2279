// Package dedup implements the admin review workflow for duplicate
// community candidates: merge into the canonical community, keep the pair
// separate, or flag it for further investigation.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// EventRepository moves events between communities during a merge.
type EventRepository interface {
	ReassignCommunity(ctx context.Context, fromID, toID string) (int64, error)
}

// CommunityRepository deletes the duplicate community after its events
// have been moved.
type CommunityRepository interface {
	Delete(ctx context.Context, id string) error
}

// DuplicateRepository is the candidate storage behind the workflow.
type DuplicateRepository interface {
	GetByID(ctx context.Context, id string) (*models.DuplicateCandidate, error)
	ListPending(ctx context.Context, limit int) ([]models.DuplicateCandidate, error)
	UpdateDecision(ctx context.Context, id string, status models.DuplicateStatus, notes, reviewedBy string) error
}

// CounterStore reconciles community event counters after a merge.
type CounterStore interface {
	AddCommunityEventCount(ctx context.Context, communityID string, delta int) error
}

// Config controls workflow behavior.
type Config struct {
	// ReconcileCountsOnMerge credits the canonical community's event
	// counter with the number of reassigned events. Off by default: the
	// counter tracks approvals, and the reassigned events were credited
	// to the duplicate at approval time, so bulk-crediting the canonical
	// community can overstate its history. Enable it when counters
	// should follow current ownership instead.
	ReconcileCountsOnMerge bool
}

// MergeResult summarizes a completed merge.
type MergeResult struct {
	CandidateID          string   `json:"candidate_id"`
	CanonicalCommunityID string   `json:"canonical_community_id"`
	MergedCommunityID    string   `json:"merged_community_id"`
	ReassignedEvents     int64    `json:"reassigned_events"`
	Warnings             []string `json:"warnings,omitempty"`
}

const keepSeparateNote = "Communities confirmed as separate entities"

// Workflow executes admin decisions on duplicate candidates. Merge is
// deliberately ordered so a mid-sequence failure leaves the candidate
// pending and the merge retryable: events move first, the duplicate
// community goes second, and the decision is recorded last.
type Workflow struct {
	events      EventRepository
	communities CommunityRepository
	duplicates  DuplicateRepository
	counters    CounterStore
	config      Config
	logger      *slog.Logger
}

// NewWorkflow creates a duplicate resolution workflow.
func NewWorkflow(events EventRepository, communities CommunityRepository, duplicates DuplicateRepository, counters CounterStore, config Config, logger *slog.Logger) *Workflow {
	return &Workflow{
		events:      events,
		communities: communities,
		duplicates:  duplicates,
		counters:    counters,
		config:      config,
		logger:      logger,
	}
}

// ListPending returns unreviewed candidates for the admin queue.
func (w *Workflow) ListPending(ctx context.Context, limit int) ([]models.DuplicateCandidate, error) {
	return w.duplicates.ListPending(ctx, limit)
}

// Merge folds the duplicate community into the original: all its events
// are reassigned, the duplicate community row is deleted, and the
// candidate is marked merge_approved with an audit note describing what
// moved.
func (w *Workflow) Merge(ctx context.Context, candidateID, notes, reviewedBy string) (*MergeResult, error) {
	candidate, err := w.duplicates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch duplicate candidate: %w", err)
	}
	if candidate.AdminStatus != models.DuplicateStatusPending {
		return nil, database.ErrAlreadyReviewed
	}

	reassigned, err := w.events.ReassignCommunity(ctx, candidate.DuplicateCommunityID, candidate.OriginalCommunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign events: %w", err)
	}

	result := &MergeResult{
		CandidateID:          candidateID,
		CanonicalCommunityID: candidate.OriginalCommunityID,
		MergedCommunityID:    candidate.DuplicateCommunityID,
		ReassignedEvents:     reassigned,
	}

	if w.config.ReconcileCountsOnMerge && reassigned > 0 {
		if err := w.counters.AddCommunityEventCount(ctx, candidate.OriginalCommunityID, int(reassigned)); err != nil {
			w.logger.Error("failed to reconcile event count after merge",
				"candidate_id", candidateID,
				"community_id", candidate.OriginalCommunityID,
				"error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("counter reconciliation failed: %v", err))
		}
	}

	if err := w.communities.Delete(ctx, candidate.DuplicateCommunityID); err != nil {
		return nil, fmt.Errorf("failed to delete duplicate community: %w", err)
	}

	auditNote := fmt.Sprintf("Merged %d events from %q into %q",
		reassigned, candidate.DuplicateCommunityName, candidate.OriginalCommunityName)
	if notes != "" {
		auditNote = notes + "\n" + auditNote
	}

	if err := w.duplicates.UpdateDecision(ctx, candidateID, models.DuplicateStatusMergeApproved, auditNote, reviewedBy); err != nil {
		return nil, fmt.Errorf("failed to record merge decision: %w", err)
	}

	w.logger.Info("duplicate communities merged",
		"candidate_id", candidateID,
		"canonical", candidate.OriginalCommunityID,
		"merged", candidate.DuplicateCommunityID,
		"reassigned_events", reassigned,
		"reviewed_by", reviewedBy)

	return result, nil
}

// KeepSeparate records that the two communities are genuinely distinct.
func (w *Workflow) KeepSeparate(ctx context.Context, candidateID, reviewedBy string) error {
	if err := w.duplicates.UpdateDecision(ctx, candidateID, models.DuplicateStatusKeepSeparate, keepSeparateNote, reviewedBy); err != nil {
		return err
	}

	w.logger.Info("duplicate candidate kept separate",
		"candidate_id", candidateID,
		"reviewed_by", reviewedBy)

	return nil
}

// Investigate parks the candidate with the admin's notes until more
// information is available.
func (w *Workflow) Investigate(ctx context.Context, candidateID, notes, reviewedBy string) error {
	if err := w.duplicates.UpdateDecision(ctx, candidateID, models.DuplicateStatusNeedsInvestigation, notes, reviewedBy); err != nil {
		return err
	}

	w.logger.Info("duplicate candidate flagged for investigation",
		"candidate_id", candidateID,
		"reviewed_by", reviewedBy)

	return nil
}
