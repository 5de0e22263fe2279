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

const eventColumns = `id, title, description, banner_url, date, end_date, venue, venue_id,
	       is_online, event_type, community_id, city_id, organizer_name, organizer_email,
	       organizer_phone, registration_url, registration_clicks, featured, status,
	       created_at, updated_at`

// PostgresEventRepository implements event storage using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Create inserts a new event and its sponsors.
func (r *PostgresEventRepository) Create(ctx context.Context, event models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (
			id, title, description, banner_url, date, end_date, venue, venue_id,
			is_online, event_type, community_id, city_id, organizer_name, organizer_email,
			organizer_phone, registration_url, registration_clicks, featured, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = tx.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.BannerURL,
		event.Date,
		event.EndDate,
		event.Venue,
		event.VenueID,
		event.IsOnline,
		event.EventType,
		event.CommunityID,
		event.CityID,
		event.OrganizerName,
		event.OrganizerEmail,
		event.OrganizerPhone,
		event.RegistrationURL,
		event.RegistrationClicks,
		event.Featured,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := r.insertSponsors(ctx, tx, event.ID, event.Sponsors); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an event with its sponsors. Returns ErrNotFound when no
// row exists.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE id = $1
	`, eventColumns)

	event, err := r.scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}

	if err := r.loadSponsors(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// Update updates an existing event.
func (r *PostgresEventRepository) Update(ctx context.Context, event models.Event) error {
	query := `
		UPDATE events SET
			title = $2, description = $3, banner_url = $4, date = $5, end_date = $6,
			venue = $7, venue_id = $8, is_online = $9, event_type = $10,
			organizer_name = $11, organizer_email = $12, organizer_phone = $13,
			registration_url = $14, featured = $15, updated_at = $16
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.BannerURL,
		event.Date,
		event.EndDate,
		event.Venue,
		event.VenueID,
		event.IsOnline,
		event.EventType,
		event.OrganizerName,
		event.OrganizerEmail,
		event.OrganizerPhone,
		event.RegistrationURL,
		event.Featured,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event %s: %w", event.ID, ErrNotFound)
	}

	return nil
}

// UpdateStatus updates only the moderation status of an event.
func (r *PostgresEventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	query := "UPDATE events SET status = $1, updated_at = $2 WHERE id = $3"
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}

	return nil
}

// Delete removes an event. Sponsors are removed by the FK cascade.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteByIDs removes a batch of events and returns the number deleted.
func (r *PostgresEventRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}

	return result.RowsAffected()
}

// ListExpired returns approved events whose effective end date is before
// the cutoff. Only approved events are sweep candidates; pending and
// rejected rows stay in the moderation queue and cancelled ones stay put
// until an admin retires them.
func (r *PostgresEventRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE COALESCE(end_date, date) < $1 AND status = $2
		ORDER BY date ASC
	`, eventColumns)

	return r.queryEvents(ctx, query, cutoff, models.EventStatusApproved)
}

// ListByCommunity returns all events belonging to a community.
func (r *PostgresEventRepository) ListByCommunity(ctx context.Context, communityID string) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE community_id = $1
		ORDER BY date ASC
	`, eventColumns)

	return r.queryEvents(ctx, query, communityID)
}

// ReassignCommunity moves every event of one community to another and
// returns the number of events moved.
func (r *PostgresEventRepository) ReassignCommunity(ctx context.Context, fromID, toID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE events SET community_id = $1, updated_at = $2 WHERE community_id = $3",
		toID, time.Now(), fromID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign events: %w", err)
	}

	return result.RowsAffected()
}

// IncrementRegistrationClicks atomically bumps the click counter for an event.
func (r *PostgresEventRepository) IncrementRegistrationClicks(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE events SET registration_clicks = registration_clicks + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment registration clicks: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}

	return nil
}

// List retrieves events based on filter criteria.
func (r *PostgresEventRepository) List(ctx context.Context, query models.EventQuery) (*models.EventResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	whereClause, args := r.buildConditions(query)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereClause, query.SortBy, query.SortOrder, len(args)+1, len(args)+2)
	args = append(args, query.Limit, query.GetOffset())

	events, err := r.queryEvents(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}

	return &models.EventResponse{
		Events:  events,
		Page:    query.Page,
		Limit:   query.Limit,
		Total:   total,
		HasMore: (query.Page * query.Limit) < total,
	}, nil
}

// buildConditions constructs the WHERE clause from EventQuery.
func (r *PostgresEventRepository) buildConditions(q models.EventQuery) (string, []interface{}) {
	args := []interface{}{}
	argIdx := 1
	conditions := []string{}

	// Default public listings to approved events
	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *q.Status)
		argIdx++
	} else {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, models.EventStatusApproved)
		argIdx++
	}

	if q.Search != "" {
		conditions = append(conditions, fmt.Sprintf("to_tsvector('english', title || ' ' || description) @@ plainto_tsquery('english', $%d)", argIdx))
		args = append(args, q.Search)
		argIdx++
	}

	if q.CommunityID != nil {
		conditions = append(conditions, fmt.Sprintf("community_id = $%d", argIdx))
		args = append(args, *q.CommunityID)
		argIdx++
	}
	if q.VenueID != nil {
		conditions = append(conditions, fmt.Sprintf("venue_id = $%d", argIdx))
		args = append(args, *q.VenueID)
		argIdx++
	}
	if q.CityID != nil {
		conditions = append(conditions, fmt.Sprintf("city_id = $%d", argIdx))
		args = append(args, *q.CityID)
		argIdx++
	}
	if q.EventType != nil {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, *q.EventType)
		argIdx++
	}

	if q.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIdx))
		args = append(args, *q.From)
		argIdx++
	}
	if q.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIdx))
		args = append(args, *q.To)
		argIdx++
	}
	if q.UpcomingOnly {
		conditions = append(conditions, fmt.Sprintf("COALESCE(end_date, date) >= $%d", argIdx))
		args = append(args, time.Now())
		argIdx++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range events {
		if err := r.loadSponsors(ctx, &events[i]); err != nil {
			return nil, err
		}
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresEventRepository) scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var endDate sql.NullTime
	var bannerURL, venueID sql.NullString
	var organizerName, organizerEmail, organizerPhone, registrationURL sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&bannerURL,
		&event.Date,
		&endDate,
		&event.Venue,
		&venueID,
		&event.IsOnline,
		&event.EventType,
		&event.CommunityID,
		&event.CityID,
		&organizerName,
		&organizerEmail,
		&organizerPhone,
		&registrationURL,
		&event.RegistrationClicks,
		&event.Featured,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bannerURL.Valid {
		event.BannerURL = &bannerURL.String
	}
	if endDate.Valid {
		t := endDate.Time
		event.EndDate = &t
	}
	if venueID.Valid {
		event.VenueID = &venueID.String
	}
	event.OrganizerName = organizerName.String
	event.OrganizerEmail = organizerEmail.String
	event.OrganizerPhone = organizerPhone.String
	event.RegistrationURL = registrationURL.String

	return &event, nil
}

func (r *PostgresEventRepository) insertSponsors(ctx context.Context, tx *sql.Tx, eventID string, sponsors []models.Sponsor) error {
	for _, sponsor := range sponsors {
		if sponsor.ID == "" {
			sponsor.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_sponsors (id, event_id, name, banner_url, website_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, sponsor.ID, eventID, sponsor.Name, sponsor.BannerURL, sponsor.WebsiteURL)
		if err != nil {
			return fmt.Errorf("failed to insert sponsor: %w", err)
		}
	}

	return nil
}

func (r *PostgresEventRepository) loadSponsors(ctx context.Context, event *models.Event) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, name, banner_url, website_url
		FROM event_sponsors
		WHERE event_id = $1
	`, event.ID)
	if err != nil {
		return fmt.Errorf("failed to load sponsors: %w", err)
	}
	defer rows.Close()

	event.Sponsors = []models.Sponsor{}
	for rows.Next() {
		var sponsor models.Sponsor
		var bannerURL, websiteURL sql.NullString

		if err := rows.Scan(&sponsor.ID, &sponsor.EventID, &sponsor.Name, &bannerURL, &websiteURL); err != nil {
			return fmt.Errorf("failed to scan sponsor: %w", err)
		}

		if bannerURL.Valid {
			sponsor.BannerURL = &bannerURL.String
		}
		if websiteURL.Valid {
			sponsor.WebsiteURL = &websiteURL.String
		}

		event.Sponsors = append(event.Sponsors, sponsor)
	}

	return rows.Err()
}
