package store

import (
	"testing"
	"time"

	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/model"
)

func setupSyncTestDB(t *testing.T) *SyncStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSyncStore(db)
}

func TestEnqueueRejectsUnknownTable(t *testing.T) {
	queue := setupSyncTestDB(t)

	if _, err := queue.Enqueue("not_a_table", "x", model.OpInsert, nil); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestListPendingIsFIFO(t *testing.T) {
	queue := setupSyncTestDB(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := queue.Enqueue("food_items", id, model.OpInsert, nil); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	pending, err := queue.ListPending(time.Now())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(pending))
	}
	for i, want := range []string{"a", "b", "c"} {
		if pending[i].RecordID != want {
			t.Errorf("pending[%d] = %q, want %q", i, pending[i].RecordID, want)
		}
	}
}

func TestRecordFailureDefersEntry(t *testing.T) {
	queue := setupSyncTestDB(t)

	entry, err := queue.Enqueue("food_items", "a", model.OpInsert, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := queue.RecordFailure(entry.ID, "remote 500", future, false); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	due, err := queue.ListPending(time.Now())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("deferred entry should not be due, got %d", len(due))
	}

	later, err := queue.ListPending(time.Now().Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(later) != 1 {
		t.Fatalf("entry should be due after backoff, got %d", len(later))
	}
	if later[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", later[0].Attempts)
	}
	if later[0].LastError != "remote 500" {
		t.Errorf("last_error = %q", later[0].LastError)
	}

	// Failure deferral still counts toward the pending total.
	n, err := queue.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if n != 1 {
		t.Errorf("pending count = %d, want 1", n)
	}
}

func TestDeadLetterAndRequeue(t *testing.T) {
	queue := setupSyncTestDB(t)

	entry, err := queue.Enqueue("food_items", "a", model.OpInsert, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := queue.RecordFailure(entry.ID, "gone", time.Now(), true); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	pending, _ := queue.ListPending(time.Now().Add(time.Minute))
	if len(pending) != 0 {
		t.Error("dead entry must not be listed as pending")
	}

	dead, err := queue.ListDead()
	if err != nil || len(dead) != 1 {
		t.Fatalf("list dead: %v (%d)", err, len(dead))
	}
	if dead[0].Status != model.SyncStatusDead {
		t.Errorf("status = %q", dead[0].Status)
	}

	if err := queue.Requeue(entry.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	requeued, err := queue.GetByID(entry.ID)
	if err != nil || requeued == nil {
		t.Fatalf("get requeued: %v", err)
	}
	if requeued.Status != model.SyncStatusPending {
		t.Errorf("status = %q, want pending", requeued.Status)
	}
	if requeued.Attempts != 0 {
		t.Errorf("attempts = %d, want reset to 0", requeued.Attempts)
	}

	pending, _ = queue.ListPending(time.Now().Add(time.Minute))
	if len(pending) != 1 {
		t.Error("requeued entry should be due again")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	queue := setupSyncTestDB(t)

	entry, err := queue.Enqueue("food_items", "a", model.OpDelete, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Delete(entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := queue.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("entry should be gone")
	}
}
