package database

import (
	"path/filepath"
	"testing"
)

func TestOpenConfiguresConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRow(`PRAGMA busy_timeout`).Scan(&busy); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(
		`INSERT INTO meal_plans (id, user_id, date, notes, created_at, updated_at, synced)
		 VALUES ('plan-1', 'user-1', '2026-09-01', '', datetime('now'), datetime('now'), 0)`,
	); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO meals (id, meal_plan_id, meal_type, time_of_day, notes,
		   is_completed, synced_to_fitbit, fitbit_sync_time, created_at, updated_at, synced)
		 VALUES ('meal-1', 'plan-1', 'breakfast', '', '', 0, 0, NULL, datetime('now'), datetime('now'), 0)`,
	); err != nil {
		t.Fatalf("insert meal: %v", err)
	}

	// A dangling plan reference must be rejected.
	if _, err := db.Exec(
		`INSERT INTO meals (id, meal_plan_id, meal_type, time_of_day, notes,
		   is_completed, synced_to_fitbit, fitbit_sync_time, created_at, updated_at, synced)
		 VALUES ('meal-2', 'no-such-plan', 'lunch', '', '', 0, 0, NULL, datetime('now'), datetime('now'), 0)`,
	); err == nil {
		t.Error("insert with dangling plan reference should fail")
	}

	if _, err := db.Exec(`DELETE FROM meal_plans WHERE id = 'plan-1'`); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM meals WHERE meal_plan_id = 'plan-1'`).Scan(&n); err != nil {
		t.Fatalf("count meals: %v", err)
	}
	if n != 0 {
		t.Errorf("meals after plan delete = %d, want cascade to 0", n)
	}
}
