package plan

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			week_start DATETIME NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testDB(t))

	p := legacyPlan()

	if err := repo.Upsert(ctx, "user-1", p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected plan, got nil")
	}
	if got.Goal != p.Goal {
		t.Errorf("Expected goal %q, got %q", p.Goal, got.Goal)
	}

	// Second upsert with the same id replaces the row instead of failing.
	p.Goal = "Revised goal"
	if err := repo.Upsert(ctx, "user-1", p); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	got, err = repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Goal != "Revised goal" {
		t.Errorf("Expected updated goal, got %q", got.Goal)
	}

	plans, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 {
		t.Errorf("Expected 1 plan after re-upsert, got %d", len(plans))
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := NewRepository(testDB(t))
	got, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected no error for missing plan, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing plan, got %+v", got)
	}
}

func TestRepositoryLatestAndExistsForWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testDB(t))

	week1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	week2 := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	p1 := legacyPlan()
	p1.ID = "plan-w1"
	p1.WeekStart = week1
	p2 := legacyPlan()
	p2.ID = "plan-w2"
	p2.WeekStart = week2

	if err := repo.Upsert(ctx, "user-1", p1); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, "user-1", p2); err != nil {
		t.Fatal(err)
	}

	latest, err := repo.Latest(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != "plan-w2" {
		t.Errorf("Expected latest plan plan-w2, got %+v", latest)
	}

	exists, err := repo.ExistsForWeek(ctx, "user-1", week1)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("Expected plan to exist for week 1")
	}

	exists, err = repo.ExistsForWeek(ctx, "user-1", week2.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("Expected no plan for an unplanned week")
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 stored plans, got %d", len(all))
	}
	if all[0].UserID != "user-1" {
		t.Errorf("Expected stored user id, got %q", all[0].UserID)
	}
}
