package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const communityColumns = `id, name, logo_url, city_id, website, size, year_founded,
	       organizer_email, organizer_phone, social_links, verification_status,
	       event_count, created_at, updated_at`

// PostgresCommunityRepository implements community storage using PostgreSQL.
type PostgresCommunityRepository struct {
	db *sql.DB
}

// NewPostgresCommunityRepository creates a new community repository.
func NewPostgresCommunityRepository(db *sql.DB) *PostgresCommunityRepository {
	return &PostgresCommunityRepository{db: db}
}

// Create inserts a new community.
func (r *PostgresCommunityRepository) Create(ctx context.Context, community models.Community) error {
	if community.ID == "" {
		community.ID = uuid.New().String()
	}
	now := time.Now()
	if community.CreatedAt.IsZero() {
		community.CreatedAt = now
	}
	if community.UpdatedAt.IsZero() {
		community.UpdatedAt = now
	}

	query := `
		INSERT INTO communities (
			id, name, logo_url, city_id, website, size, year_founded,
			organizer_email, organizer_phone, social_links, verification_status,
			event_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		community.ID,
		community.Name,
		community.LogoURL,
		community.CityID,
		community.Website,
		community.Size,
		community.YearFounded,
		community.OrganizerEmail,
		community.OrganizerPhone,
		pq.Array(community.SocialLinks),
		community.VerificationStatus,
		community.EventCount,
		community.CreatedAt,
		community.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert community: %w", err)
	}

	return nil
}

// GetByID retrieves a community. Returns ErrNotFound when no row exists.
func (r *PostgresCommunityRepository) GetByID(ctx context.Context, id string) (*models.Community, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM communities
		WHERE id = $1
	`, communityColumns)

	community, err := scanCommunity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("community %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query community: %w", err)
	}

	return community, nil
}

// Update updates an existing community.
func (r *PostgresCommunityRepository) Update(ctx context.Context, community models.Community) error {
	query := `
		UPDATE communities SET
			name = $2, logo_url = $3, city_id = $4, website = $5, size = $6,
			year_founded = $7, organizer_email = $8, organizer_phone = $9,
			social_links = $10, verification_status = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		community.ID,
		community.Name,
		community.LogoURL,
		community.CityID,
		community.Website,
		community.Size,
		community.YearFounded,
		community.OrganizerEmail,
		community.OrganizerPhone,
		pq.Array(community.SocialLinks),
		community.VerificationStatus,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update community: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("community %s: %w", community.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a community.
func (r *PostgresCommunityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM communities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete community: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("community %s: %w", id, ErrNotFound)
	}

	return nil
}

// List retrieves communities with optional filters.
func (r *PostgresCommunityRepository) List(ctx context.Context, cityID string, status models.VerificationStatus, limit int) ([]models.Community, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	if cityID != "" {
		conditions = append(conditions, fmt.Sprintf("city_id = $%d", argIdx))
		args = append(args, cityID)
		argIdx++
	}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("verification_status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM communities
		%s
		ORDER BY name ASC
		LIMIT $%d
	`, communityColumns, whereClause, argIdx)
	args = append(args, limit)

	return r.queryCommunities(ctx, query, args...)
}

// Leaderboard returns verified communities ordered by lifetime event count.
func (r *PostgresCommunityRepository) Leaderboard(ctx context.Context, cityID string, limit int) ([]models.Community, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	args := []interface{}{models.VerificationVerified}
	argIdx := 2

	query := `
		SELECT %s
		FROM communities
		WHERE verification_status = $1
	`
	if cityID != "" {
		query += fmt.Sprintf(" AND city_id = $%d", argIdx)
		args = append(args, cityID)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY event_count DESC, name ASC LIMIT $%d", argIdx)
	args = append(args, limit)

	return r.queryCommunities(ctx, fmt.Sprintf(query, communityColumns), args...)
}

func (r *PostgresCommunityRepository) queryCommunities(ctx context.Context, query string, args ...interface{}) ([]models.Community, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}
	defer rows.Close()

	communities := []models.Community{}
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		communities = append(communities, *community)
	}

	return communities, rows.Err()
}

func scanCommunity(row rowScanner) (*models.Community, error) {
	var community models.Community
	var logoURL, website sql.NullString
	var organizerEmail, organizerPhone sql.NullString
	var size, yearFounded sql.NullInt64
	var socialLinks pq.StringArray

	err := row.Scan(
		&community.ID,
		&community.Name,
		&logoURL,
		&community.CityID,
		&website,
		&size,
		&yearFounded,
		&organizerEmail,
		&organizerPhone,
		&socialLinks,
		&community.VerificationStatus,
		&community.EventCount,
		&community.CreatedAt,
		&community.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if logoURL.Valid {
		community.LogoURL = &logoURL.String
	}
	if website.Valid {
		community.Website = &website.String
	}
	if size.Valid {
		v := int(size.Int64)
		community.Size = &v
	}
	if yearFounded.Valid {
		v := int(yearFounded.Int64)
		community.YearFounded = &v
	}
	community.OrganizerEmail = organizerEmail.String
	community.OrganizerPhone = organizerPhone.String
	community.SocialLinks = socialLinks

	return &community, nil
}
