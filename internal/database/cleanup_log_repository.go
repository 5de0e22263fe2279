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

// CleanupLogRepository handles the audit trail of archival runs.
type CleanupLogRepository struct {
	db *sql.DB
}

// NewCleanupLogRepository creates a new cleanup log repository.
func NewCleanupLogRepository(db *sql.DB) *CleanupLogRepository {
	return &CleanupLogRepository{db: db}
}

// Log stores a new cleanup log entry.
func (r *CleanupLogRepository) Log(ctx context.Context, entry models.CleanupLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	var resultJSON []byte
	var err error
	if entry.Result != nil {
		resultJSON, err = json.Marshal(entry.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	query := `
		INSERT INTO cleanup_logs (id, action, result, error, executed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Action,
		resultJSON,
		entry.Error,
		entry.ExecutedAt,
	)

	return err
}

// List retrieves cleanup logs, most recent first.
func (r *CleanupLogRepository) List(ctx context.Context, limit int, action string) ([]models.CleanupLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, action, result, error, executed_at
		FROM cleanup_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if action != "" {
		query += fmt.Sprintf(" AND action = $%d", argPos)
		args = append(args, action)
		argPos++
	}

	query += " ORDER BY executed_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.CleanupLog{}
	for rows.Next() {
		var entry models.CleanupLog
		var resultJSON []byte
		var errMsg sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&resultJSON,
			&errMsg,
			&entry.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(resultJSON) > 0 {
			if err := json.Unmarshal(resultJSON, &entry.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result: %w", err)
			}
		}
		entry.Error = errMsg.String

		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// Latest returns the most recent cleanup log, or ErrNotFound when the
// audit trail is empty.
func (r *CleanupLogRepository) Latest(ctx context.Context) (*models.CleanupLog, error) {
	logs, err := r.List(ctx, 1, "")
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("cleanup logs: %w", ErrNotFound)
	}
	return &logs[0], nil
}

// DeleteOlderThan prunes cleanup logs older than the specified duration.
func (r *CleanupLogRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `DELETE FROM cleanup_logs WHERE executed_at < $1`
	cutoff := time.Now().Add(-age)

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
