// Package store provides data access for the browser call history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/browser-bridge/backend/internal/model"
)

// CallRepository persists and queries browser call records.
type CallRepository struct {
	db *sql.DB
}

// NewCallRepository creates a new CallRepository.
func NewCallRepository(db *sql.DB) *CallRepository {
	return &CallRepository{db: db}
}

// Record inserts a completed call into the history.
func (r *CallRepository) Record(ctx context.Context, rec *model.CallRecord) error {
	query := `
		INSERT INTO calls (id, action, success, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Action,
		rec.Success,
		rec.Error,
		rec.DurationMS,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}

	return nil
}

// GetByID retrieves a call record by its ID.
func (r *CallRepository) GetByID(ctx context.Context, id string) (*model.CallRecord, error) {
	query := `
		SELECT id, action, success, error, duration_ms, created_at
		FROM calls
		WHERE id = ?
	`

	rec := &model.CallRecord{}
	var errMsg sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Action,
		&rec.Success,
		&errMsg,
		&rec.DurationMS,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrCallNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	if errMsg.Valid {
		rec.Error = errMsg.String
	}

	return rec, nil
}

// Recent retrieves the most recent calls, newest first.
func (r *CallRepository) Recent(ctx context.Context, limit int) ([]*model.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, action, success, error, duration_ms, created_at
		FROM calls
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var records []*model.CallRecord
	for rows.Next() {
		rec := &model.CallRecord{}
		var errMsg sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.Action,
			&rec.Success,
			&errMsg,
			&rec.DurationMS,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}

		if errMsg.Valid {
			rec.Error = errMsg.String
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}

	return records, nil
}

// CountByAction returns the number of recorded calls for an action.
func (r *CallRepository) CountByAction(ctx context.Context, action string) (int, error) {
	query := `SELECT COUNT(*) FROM calls WHERE action = ?`

	var count int
	err := r.db.QueryRowContext(ctx, query, action).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count calls: %w", err)
	}

	return count, nil
}

// Purge deletes call records older than the given cutoff and returns how
// many were removed.
func (r *CallRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM calls WHERE created_at < ?`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge calls: %w", err)
	}

	return result.RowsAffected()
}
