package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"github.com/google/uuid"
)

// ErrAlreadyReviewed is returned when an admin decision targets a candidate
// that is no longer pending.
var ErrAlreadyReviewed = fmt.Errorf("duplicate candidate already reviewed")

const duplicateColumns = `id, original_community_id, original_community_name,
	       duplicate_community_id, duplicate_community_name, similarity_score,
	       score_breakdown, website_match, organizer_email_match,
	       organizer_phone_match, social_media_match, admin_status, admin_notes,
	       reviewed_by, reviewed_at, detected_at`

// PostgresDuplicateRepository stores duplicate-community candidates flagged
// by the external detector.
type PostgresDuplicateRepository struct {
	db *sql.DB
}

// NewPostgresDuplicateRepository creates a new duplicate candidate repository.
func NewPostgresDuplicateRepository(db *sql.DB) *PostgresDuplicateRepository {
	return &PostgresDuplicateRepository{db: db}
}

// Create stores a candidate produced by the detector.
func (r *PostgresDuplicateRepository) Create(ctx context.Context, candidate models.DuplicateCandidate) error {
	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	if candidate.DetectedAt.IsZero() {
		candidate.DetectedAt = time.Now()
	}
	if candidate.AdminStatus == "" {
		candidate.AdminStatus = models.DuplicateStatusPending
	}

	breakdownJSON, err := json.Marshal(candidate.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal score breakdown: %w", err)
	}

	query := `
		INSERT INTO duplicate_communities (
			id, original_community_id, original_community_name,
			duplicate_community_id, duplicate_community_name, similarity_score,
			score_breakdown, website_match, organizer_email_match,
			organizer_phone_match, social_media_match, admin_status, admin_notes,
			detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		candidate.ID,
		candidate.OriginalCommunityID,
		candidate.OriginalCommunityName,
		candidate.DuplicateCommunityID,
		candidate.DuplicateCommunityName,
		candidate.SimilarityScore,
		breakdownJSON,
		candidate.WebsiteMatch,
		candidate.OrganizerEmailMatch,
		candidate.OrganizerPhoneMatch,
		candidate.SocialMediaMatch,
		candidate.AdminStatus,
		candidate.AdminNotes,
		candidate.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert duplicate candidate: %w", err)
	}

	return nil
}

// GetByID retrieves one candidate. Returns ErrNotFound when missing.
func (r *PostgresDuplicateRepository) GetByID(ctx context.Context, id string) (*models.DuplicateCandidate, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM duplicate_communities
		WHERE id = $1
	`, duplicateColumns)

	candidate, err := scanDuplicateCandidate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("duplicate candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidate: %w", err)
	}

	return candidate, nil
}

// ListPending returns unreviewed candidates, highest similarity first.
func (r *PostgresDuplicateRepository) ListPending(ctx context.Context, limit int) ([]models.DuplicateCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM duplicate_communities
		WHERE admin_status = $1
		ORDER BY similarity_score DESC, detected_at ASC
		LIMIT $2
	`, duplicateColumns)

	rows, err := r.db.QueryContext(ctx, query, models.DuplicateStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.DuplicateCandidate{}
	for rows.Next() {
		candidate, err := scanDuplicateCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duplicate candidate: %w", err)
		}
		candidates = append(candidates, *candidate)
	}

	return candidates, rows.Err()
}

// UpdateDecision records an admin decision on a pending candidate. The
// status guard makes the update race-safe: the first decision wins and any
// later one gets ErrAlreadyReviewed.
func (r *PostgresDuplicateRepository) UpdateDecision(ctx context.Context, id string, status models.DuplicateStatus, notes, reviewedBy string) error {
	query := `
		UPDATE duplicate_communities
		SET admin_status = $1, admin_notes = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $5 AND admin_status = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		status, notes, reviewedBy, time.Now(), id, models.DuplicateStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update duplicate decision: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing candidate from one already decided
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyReviewed
	}

	return nil
}

func scanDuplicateCandidate(row rowScanner) (*models.DuplicateCandidate, error) {
	var candidate models.DuplicateCandidate
	var breakdownJSON []byte
	var adminNotes, reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&candidate.ID,
		&candidate.OriginalCommunityID,
		&candidate.OriginalCommunityName,
		&candidate.DuplicateCommunityID,
		&candidate.DuplicateCommunityName,
		&candidate.SimilarityScore,
		&breakdownJSON,
		&candidate.WebsiteMatch,
		&candidate.OrganizerEmailMatch,
		&candidate.OrganizerPhoneMatch,
		&candidate.SocialMediaMatch,
		&candidate.AdminStatus,
		&adminNotes,
		&reviewedBy,
		&reviewedAt,
		&candidate.DetectedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &candidate.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
		}
	}
	candidate.AdminNotes = adminNotes.String
	candidate.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		candidate.ReviewedAt = &t
	}

	return &candidate, nil
}
