package database

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresCounterStore maintains the denormalized lifetime event counters on
// communities and venues. Every mutation is a single UPDATE so concurrent
// callers cannot lose increments; decrements floor at zero.
type PostgresCounterStore struct {
	db *sql.DB
}

// NewPostgresCounterStore creates a new counter store.
func NewPostgresCounterStore(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

// IncrementCommunityEventCount adds one to a community's event counter.
func (s *PostgresCounterStore) IncrementCommunityEventCount(ctx context.Context, communityID string) error {
	return s.adjust(ctx, "communities", "event_count + 1", communityID)
}

// DecrementCommunityEventCount subtracts one from a community's event
// counter, never going below zero.
func (s *PostgresCounterStore) DecrementCommunityEventCount(ctx context.Context, communityID string) error {
	return s.adjust(ctx, "communities", "GREATEST(event_count - 1, 0)", communityID)
}

// IncrementVenueEventCount adds one to a venue's event counter.
func (s *PostgresCounterStore) IncrementVenueEventCount(ctx context.Context, venueID string) error {
	return s.adjust(ctx, "venues", "event_count + 1", venueID)
}

// DecrementVenueEventCount subtracts one from a venue's event counter,
// never going below zero.
func (s *PostgresCounterStore) DecrementVenueEventCount(ctx context.Context, venueID string) error {
	return s.adjust(ctx, "venues", "GREATEST(event_count - 1, 0)", venueID)
}

// AddCommunityEventCount adds delta to a community's event counter, flooring
// at zero. Used when a merge moves a block of events between communities.
func (s *PostgresCounterStore) AddCommunityEventCount(ctx context.Context, communityID string, delta int) error {
	query := `UPDATE communities SET event_count = GREATEST(event_count + $2, 0), updated_at = NOW() WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, communityID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust event count: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("communities row %s: %w", communityID, ErrNotFound)
	}

	return nil
}

func (s *PostgresCounterStore) adjust(ctx context.Context, table, expr, id string) error {
	query := fmt.Sprintf("UPDATE %s SET event_count = %s, updated_at = NOW() WHERE id = $1", table, expr)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to adjust event count: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%s row %s: %w", table, id, ErrNotFound)
	}

	return nil
}
