package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

type OperatorEventRepository struct {
	db *sql.DB
}

// NewOperatorEventRepository constructs a repository backed by MySQL.
func NewOperatorEventRepository(db *sql.DB) *OperatorEventRepository {
	return &OperatorEventRepository{db: db}
}

// Create inserts a new operator event.
func (r *OperatorEventRepository) Create(ctx context.Context, ev entity.OperatorEvent) error {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}

	const query = `
		INSERT INTO operator_events (event, detail, occurred_at)
		VALUES (?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, ev.Event, string(detail), ev.OccurredAt)
	return err
}

// ListRecent returns the newest events first.
func (r *OperatorEventRepository) ListRecent(ctx context.Context, limit int) ([]entity.OperatorEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT event, detail, occurred_at
		FROM operator_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []entity.OperatorEvent
	for rows.Next() {
		var ev entity.OperatorEvent
		var detail string
		if err := rows.Scan(&ev.Event, &detail, &ev.OccurredAt); err != nil {
			return nil, err
		}
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &ev.Detail); err != nil {
				return nil, fmt.Errorf("decode detail: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteBefore removes events older than the cutoff and returns how many
// rows were deleted.
func (r *OperatorEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM operator_events
		WHERE occurred_at < ?
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
