package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/store"
)

// fakeAPI records calls and returns scripted results per record id.
type fakeAPI struct {
	inserts []string
	updates []string
	deletes []string

	failWith map[string]error
	nextID   int
}

func (f *fakeAPI) FoodByBarcode(ctx context.Context, barcode string) (*model.FoodItem, error) {
	return nil, nil
}

func (f *fakeAPI) InsertFood(ctx context.Context, item model.FoodItem) (*model.FoodItem, error) {
	return &item, nil
}

// Insert keys on the record name: temp ids are stripped from insert
// payloads before they reach the remote.
func (f *fakeAPI) Insert(ctx context.Context, table string, payload json.RawMessage) (string, error) {
	var rec map[string]any
	json.Unmarshal(payload, &rec)
	name, _ := rec["name"].(string)
	if err := f.failWith[name]; err != nil {
		return "", err
	}
	f.inserts = append(f.inserts, name)
	f.nextID++
	return fmt.Sprintf("canon-%d", f.nextID), nil
}

func (f *fakeAPI) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	if err := f.failWith[id]; err != nil {
		return err
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeAPI) Delete(ctx context.Context, table, id string) error {
	if err := f.failWith[id]; err != nil {
		return err
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func setupProcessor(t *testing.T) (*Processor, *store.SyncStore, *store.FoodStore, *fakeAPI) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	queue := store.NewSyncStore(db)
	foods := store.NewFoodStore(db)
	api := &fakeAPI{failWith: map[string]error{}}
	logger := slog.New(slog.DiscardHandler)
	p := NewProcessor(queue, store.NewMirror(db), api, logger)
	return p, queue, foods, api
}

func enqueue(t *testing.T, queue *store.SyncStore, foods *store.FoodStore, name string, op model.SyncOp) *model.FoodItem {
	t.Helper()
	food, err := foods.Create(model.FoodItem{
		Name: name, UserID: "user-1", Source: model.SourceUserCreated, InStock: true,
	})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	payload, _ := json.Marshal(food)
	if _, err := queue.Enqueue("food_items", food.ID, op, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return food
}

func TestProcessInsertRewritesTempID(t *testing.T) {
	p, queue, foods, api := setupProcessor(t)
	food := enqueue(t, queue, foods, "Oats", model.OpInsert)

	res, err := p.Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(api.inserts) != 1 || api.inserts[0] != "Oats" {
		t.Fatalf("inserts = %v", api.inserts)
	}

	// Temp id replaced by the canonical one the backend assigned.
	if got, _ := foods.GetByID(food.ID); got != nil {
		t.Error("temp row should be rewritten")
	}
	got, err := foods.GetByID("canon-1")
	if err != nil || got == nil {
		t.Fatalf("canonical row missing: %v", err)
	}
	if !got.Synced {
		t.Error("row should be marked synced")
	}

	n, _ := queue.CountPending()
	if n != 0 {
		t.Errorf("queue should be empty, %d pending", n)
	}
}

func TestProcessFailureIsIsolated(t *testing.T) {
	p, queue, foods, api := setupProcessor(t)
	enqueue(t, queue, foods, "Bad", model.OpInsert)
	enqueue(t, queue, foods, "Good", model.OpInsert)
	api.failWith["Bad"] = errors.New("remote 500")

	res, err := p.Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(api.inserts) != 1 || api.inserts[0] != "Good" {
		t.Fatalf("inserts = %v, want only the good entry", api.inserts)
	}

	// The failed entry stays queued with its error and a deferred retry.
	pending, _ := queue.ListPending(time.Now().Add(time.Hour))
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Attempts != 1 || pending[0].LastError != "remote 500" {
		t.Errorf("entry = %+v", pending[0])
	}
	due, _ := queue.ListPending(time.Now())
	if len(due) != 0 {
		t.Error("failed entry should be deferred by backoff")
	}
}

func TestProcessDeadLettersAfterMaxAttempts(t *testing.T) {
	p, queue, foods, api := setupProcessor(t)
	p.SetMaxAttempts(1)
	enqueue(t, queue, foods, "Oats", model.OpInsert)
	api.failWith["Oats"] = errors.New("always fails")

	if _, err := p.Process(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	dead, err := queue.ListDead()
	if err != nil {
		t.Fatalf("list dead: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("dead = %d, want 1", len(dead))
	}

	// A dead entry is never retried.
	before := len(api.inserts)
	if _, err := p.Process(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(api.inserts) != before {
		t.Error("dead entry must not be replayed")
	}
}

func TestProcessSkipsTempReferencesUntilInsert(t *testing.T) {
	p, queue, foods, api := setupProcessor(t)

	food, err := foods.Create(model.FoodItem{Name: "Oats", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	// An update addressed at a temp id with no insert ahead of it: nothing to
	// apply yet, nothing to fail.
	payload, _ := json.Marshal(food)
	if _, err := queue.Enqueue("food_items", food.ID, model.OpUpdate, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res, err := p.Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Skipped != 1 || res.Failed != 0 || res.Processed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(api.updates) != 0 {
		t.Error("temp-addressed update must not reach the remote")
	}
}

func TestProcessDelete(t *testing.T) {
	p, queue, _, api := setupProcessor(t)

	// A delete for a canonical id; the local row is already gone.
	if _, err := queue.Enqueue("food_items", "canon-3", model.OpDelete, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res, err := p.Process(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(api.deletes) != 1 || api.deletes[0] != "canon-3" {
		t.Fatalf("deletes = %v", api.deletes)
	}
}

// A kick that runs a pass synchronously is the worst-case interleaving: the
// processor fires the instant a queue entry becomes visible. A multi-step
// planner write must still come out of it with every identifier consistent.
func TestPlannerWriteIsProcessedAsOneUnit(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	queue := store.NewSyncStore(db)
	plans := store.NewPlanStore(db)
	api := &fakeAPI{failWith: map[string]error{}}
	p := NewProcessor(queue, store.NewMirror(db), api, slog.New(slog.DiscardHandler))

	pl := planner.New(planner.Config{
		Plans:      plans,
		Foods:      store.NewFoodStore(db),
		Recipes:    store.NewRecipeStore(db),
		ReadyMeals: store.NewReadyMealStore(db),
		Shopping:   store.NewShoppingStore(db),
		Ratings:    store.NewRatingStore(db),
		Queue:      queue,
		UserID:     "user-1",
		Gate:       p.Gate(),
		Logger:     slog.New(slog.DiscardHandler),
	})
	pl.OnWrite(func() {
		if _, err := p.Process(context.Background()); err != nil {
			t.Errorf("process: %v", err)
		}
	})

	if _, err := pl.CreatePlan("2026-09-01", ""); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	plan, err := plans.GetPlanByDate("user-1", "2026-09-01")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if plan == nil {
		t.Fatal("plan missing after sync pass")
	}
	if model.IsTempID(plan.ID) {
		t.Errorf("plan id %q still temporary", plan.ID)
	}
	if len(plan.Meals) != len(model.DefaultMealTypes) {
		t.Fatalf("meals = %d, want %d", len(plan.Meals), len(model.DefaultMealTypes))
	}
	for _, meal := range plan.Meals {
		if meal.MealPlanID != plan.ID {
			t.Errorf("meal %s references plan %q, want %q", meal.ID, meal.MealPlanID, plan.ID)
		}
		if model.IsTempID(meal.ID) {
			t.Errorf("meal id %q still temporary", meal.ID)
		}
	}

	pending, err := queue.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want a drained queue", pending)
	}
}
