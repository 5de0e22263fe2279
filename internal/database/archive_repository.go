package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// PostgresArchiveRepository stores immutable snapshots of expired events.
type PostgresArchiveRepository struct {
	db *sql.DB
}

// NewPostgresArchiveRepository creates a new archive repository.
func NewPostgresArchiveRepository(db *sql.DB) *PostgresArchiveRepository {
	return &PostgresArchiveRepository{db: db}
}

// InsertBatch writes archive snapshots in a single transaction. Rows whose
// ID already exists in the archive are skipped, which makes a retried
// archival run safe. Returns the number of rows actually inserted.
func (r *PostgresArchiveRepository) InsertBatch(ctx context.Context, snapshots []models.ArchivedEvent) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO archived_events (
			id, title, date, end_date, venue, is_online, event_type,
			community_id, community_name, city_id, banner_url, featured,
			registration_clicks, created_at, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`

	inserted := 0
	for _, snapshot := range snapshots {
		result, err := tx.ExecContext(ctx, query,
			snapshot.ID,
			snapshot.Title,
			snapshot.Date,
			snapshot.EndDate,
			snapshot.Venue,
			snapshot.IsOnline,
			snapshot.EventType,
			snapshot.CommunityID,
			snapshot.CommunityName,
			snapshot.CityID,
			snapshot.BannerURL,
			snapshot.Featured,
			snapshot.RegistrationClicks,
			snapshot.CreatedAt,
			snapshot.ArchivedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert archived event %s: %w", snapshot.ID, err)
		}

		rows, _ := result.RowsAffected()
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive batch: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves one archived event. Returns ErrNotFound when missing.
func (r *PostgresArchiveRepository) GetByID(ctx context.Context, id string) (*models.ArchivedEvent, error) {
	query := `
		SELECT id, title, date, end_date, venue, is_online, event_type,
		       community_id, community_name, city_id, banner_url, featured,
		       registration_clicks, created_at, archived_at
		FROM archived_events
		WHERE id = $1
	`

	snapshot, err := scanArchivedEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("archived event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query archived event: %w", err)
	}

	return snapshot, nil
}

// List retrieves archived events most recent first.
func (r *PostgresArchiveRepository) List(ctx context.Context, query models.ArchivedEventQuery) ([]models.ArchivedEvent, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	if query.CityID != nil {
		conditions = append(conditions, fmt.Sprintf("city_id = $%d", argIdx))
		args = append(args, *query.CityID)
		argIdx++
	}
	if query.CommunityID != nil {
		conditions = append(conditions, fmt.Sprintf("community_id = $%d", argIdx))
		args = append(args, *query.CommunityID)
		argIdx++
	}
	if query.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIdx))
		args = append(args, *query.Featured)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	sqlQuery := fmt.Sprintf(`
		SELECT id, title, date, end_date, venue, is_online, event_type,
		       community_id, community_name, city_id, banner_url, featured,
		       registration_clicks, created_at, archived_at
		FROM archived_events
		%s
		ORDER BY date DESC
		LIMIT $%d
	`, whereClause, argIdx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived events: %w", err)
	}
	defer rows.Close()

	snapshots := []models.ArchivedEvent{}
	for rows.Next() {
		snapshot, err := scanArchivedEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived event: %w", err)
		}
		snapshots = append(snapshots, *snapshot)
	}

	return snapshots, rows.Err()
}

// UpdateCuration updates the admin-editable fields of an archived event.
// Everything else in the snapshot stays immutable.
func (r *PostgresArchiveRepository) UpdateCuration(ctx context.Context, id string, featured bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE archived_events SET featured = $1 WHERE id = $2", featured, id)
	if err != nil {
		return fmt.Errorf("failed to update archived event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("archived event %s: %w", id, ErrNotFound)
	}

	return nil
}

// IncrementRegistrationClicks atomically bumps the click counter on a
// snapshot, used when visitors open historical event pages.
func (r *PostgresArchiveRepository) IncrementRegistrationClicks(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE archived_events SET registration_clicks = registration_clicks + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment registration clicks: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("archived event %s: %w", id, ErrNotFound)
	}

	return nil
}

func scanArchivedEvent(row rowScanner) (*models.ArchivedEvent, error) {
	var snapshot models.ArchivedEvent
	var endDate sql.NullTime
	var bannerURL sql.NullString

	err := row.Scan(
		&snapshot.ID,
		&snapshot.Title,
		&snapshot.Date,
		&endDate,
		&snapshot.Venue,
		&snapshot.IsOnline,
		&snapshot.EventType,
		&snapshot.CommunityID,
		&snapshot.CommunityName,
		&snapshot.CityID,
		&bannerURL,
		&snapshot.Featured,
		&snapshot.RegistrationClicks,
		&snapshot.CreatedAt,
		&snapshot.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		t := endDate.Time
		snapshot.EndDate = &t
	}
	if bannerURL.Valid {
		snapshot.BannerURL = &bannerURL.String
	}

	return &snapshot, nil
}
