package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredPlan pairs a plan with the user it belongs to, for operations that
// span all users (batch migration).
type StoredPlan struct {
	UserID string
	Plan   WeeklyPracticePlan
}

// Repository is a database-backed store for weekly practice plans. Writes are
// atomic per-plan upserts keyed by plan id, so two writers touching different
// plans can never clobber each other.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Upsert inserts the plan or replaces the existing row with the same id.
func (r *Repository) Upsert(ctx context.Context, userID string, p WeeklyPracticePlan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal plan %s: %w", p.ID, err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO plans (id, user_id, week_start, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			week_start = excluded.week_start,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		p.ID, userID, p.WeekStart.UTC(), string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert plan %s: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a plan by its id. Returns (nil, nil) when no plan exists.
func (r *Repository) Get(ctx context.Context, id string) (*WeeklyPracticePlan, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM plans WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan %s: %w", id, err)
	}

	var p WeeklyPracticePlan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %s: %w", id, err)
	}
	return &p, nil
}

// Latest retrieves the user's plan with the most recent week start.
// Returns (nil, nil) when the user has no plans.
func (r *Repository) Latest(ctx context.Context, userID string) (*WeeklyPracticePlan, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM plans WHERE user_id = ?
		ORDER BY week_start DESC, updated_at DESC LIMIT 1`, userID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest plan for user %s: %w", userID, err)
	}

	var p WeeklyPracticePlan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest plan: %w", err)
	}
	return &p, nil
}

// ListByUser retrieves all plans for a user, oldest week first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]WeeklyPracticePlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM plans WHERE user_id = ? ORDER BY week_start ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []WeeklyPracticePlan
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		var p WeeklyPracticePlan
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			fmt.Printf("Warning: failed to unmarshal stored plan JSON: %v\n", err)
			continue
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// All retrieves every stored plan across users, for batch maintenance.
func (r *Repository) All(ctx context.Context) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, data FROM plans ORDER BY week_start ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list all plans: %w", err)
	}
	defer rows.Close()

	var stored []StoredPlan
	for rows.Next() {
		var userID, data string
		if err := rows.Scan(&userID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		var p WeeklyPracticePlan
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			fmt.Printf("Warning: failed to unmarshal stored plan JSON: %v\n", err)
			continue
		}
		stored = append(stored, StoredPlan{UserID: userID, Plan: p})
	}
	return stored, rows.Err()
}

// ExistsForWeek reports whether the user already has a plan for the given
// week start.
func (r *Repository) ExistsForWeek(ctx context.Context, userID string, weekStart time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM plans WHERE user_id = ? AND week_start = ?`,
		userID, weekStart.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check plan for week: %w", err)
	}
	return count > 0, nil
}
