package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
	"github.com/google/uuid"
)

const venueColumns = `id, name, address, city_id, capacity, website, contact_email,
	       contact_phone, verification_status, event_count, created_at, updated_at`

// PostgresVenueRepository implements venue storage using PostgreSQL.
type PostgresVenueRepository struct {
	db *sql.DB
}

// NewPostgresVenueRepository creates a new venue repository.
func NewPostgresVenueRepository(db *sql.DB) *PostgresVenueRepository {
	return &PostgresVenueRepository{db: db}
}

// Create inserts a new venue.
func (r *PostgresVenueRepository) Create(ctx context.Context, venue models.Venue) error {
	if venue.ID == "" {
		venue.ID = uuid.New().String()
	}
	now := time.Now()
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	if venue.UpdatedAt.IsZero() {
		venue.UpdatedAt = now
	}

	query := `
		INSERT INTO venues (
			id, name, address, city_id, capacity, website, contact_email,
			contact_phone, verification_status, event_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		venue.ID,
		venue.Name,
		venue.Address,
		venue.CityID,
		venue.Capacity,
		venue.Website,
		venue.ContactEmail,
		venue.ContactPhone,
		venue.VerificationStatus,
		venue.EventCount,
		venue.CreatedAt,
		venue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert venue: %w", err)
	}

	return nil
}

// GetByID retrieves a venue. Returns ErrNotFound when no row exists.
func (r *PostgresVenueRepository) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM venues
		WHERE id = $1
	`, venueColumns)

	venue, err := scanVenue(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query venue: %w", err)
	}

	return venue, nil
}

// FindOrCreate looks up a venue by name within a city and creates it when
// missing. Venue names are unique per city, so concurrent submissions of the
// same venue resolve to one row.
func (r *PostgresVenueRepository) FindOrCreate(ctx context.Context, name, cityID string) (*models.Venue, error) {
	now := time.Now()
	query := fmt.Sprintf(`
		INSERT INTO venues (id, name, city_id, verification_status, event_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (name, city_id) DO UPDATE SET updated_at = venues.updated_at
		RETURNING %s
	`, venueColumns)

	venue, err := scanVenue(r.db.QueryRowContext(ctx, query,
		uuid.New().String(), name, cityID, models.VerificationPending, now))
	if err != nil {
		return nil, fmt.Errorf("failed to find or create venue: %w", err)
	}

	return venue, nil
}

// List retrieves venues for a city.
func (r *PostgresVenueRepository) List(ctx context.Context, cityID string, limit int) ([]models.Venue, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM venues
		WHERE ($1 = '' OR city_id = $1)
		ORDER BY name ASC
		LIMIT $2
	`, venueColumns)

	return r.queryVenues(ctx, query, cityID, limit)
}

// Leaderboard returns venues ordered by lifetime event count.
func (r *PostgresVenueRepository) Leaderboard(ctx context.Context, cityID string, limit int) ([]models.Venue, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM venues
		WHERE ($1 = '' OR city_id = $1)
		ORDER BY event_count DESC, name ASC
		LIMIT $2
	`, venueColumns)

	return r.queryVenues(ctx, query, cityID, limit)
}

// Delete removes a venue.
func (r *PostgresVenueRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM venues WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete venue: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *PostgresVenueRepository) queryVenues(ctx context.Context, query string, args ...interface{}) ([]models.Venue, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	venues := []models.Venue{}
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, *venue)
	}

	return venues, rows.Err()
}

func scanVenue(row rowScanner) (*models.Venue, error) {
	var venue models.Venue
	var address, website, contactEmail, contactPhone sql.NullString
	var capacity sql.NullInt64

	err := row.Scan(
		&venue.ID,
		&venue.Name,
		&address,
		&venue.CityID,
		&capacity,
		&website,
		&contactEmail,
		&contactPhone,
		&venue.VerificationStatus,
		&venue.EventCount,
		&venue.CreatedAt,
		&venue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	venue.Address = address.String
	if website.Valid {
		venue.Website = &website.String
	}
	if capacity.Valid {
		v := int(capacity.Int64)
		venue.Capacity = &v
	}
	venue.ContactEmail = contactEmail.String
	venue.ContactPhone = contactPhone.String

	return &venue, nil
}
