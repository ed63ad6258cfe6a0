package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"practice-planner/internal/plan"
)

// Repository is a database-backed store for plan history entries, one row per
// plan. Upserts are atomic and keyed by plan id so concurrent writers to
// different plans never race on a shared collection.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new history Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Upsert inserts or replaces the history entry for its plan.
func (r *Repository) Upsert(ctx context.Context, userID string, entry plan.PlanHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry for plan %s: %w", entry.PlanID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO plan_history (plan_id, user_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		entry.PlanID, userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert history for plan %s: %w", entry.PlanID, err)
	}
	return nil
}

// Get retrieves the history entry for a plan. Returns (nil, nil) when the
// plan has never been tracked.
func (r *Repository) Get(ctx context.Context, planID string) (*plan.PlanHistoryEntry, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM plan_history WHERE plan_id = ?`, planID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history for plan %s: %w", planID, err)
	}

	var entry plan.PlanHistoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history for plan %s: %w", planID, err)
	}
	return &entry, nil
}

// ListByUser retrieves all of a user's history entries, oldest week first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]plan.PlanHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM plan_history WHERE user_id = ? ORDER BY updated_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []plan.PlanHistoryEntry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		var entry plan.PlanHistoryEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("Warning: failed to unmarshal stored history JSON: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SetStatus marks a plan's history entry completed or abandoned. Transitions
// are terminal by convention only; further feedback appends are not blocked.
func (r *Repository) SetStatus(ctx context.Context, userID, planID string, status plan.Status) error {
	entry, err := r.Get(ctx, planID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no history entry for plan %s", planID)
	}
	entry.Status = status
	return r.Upsert(ctx, userID, *entry)
}
