package store

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/model"
)

func setupMirrorTestDB(t *testing.T) (*sql.DB, *Mirror) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, NewMirror(db)
}

func TestKnownTable(t *testing.T) {
	if !KnownTable("food_items") {
		t.Error("food_items should be mirrored")
	}
	if KnownTable("sync_queue") {
		t.Error("sync_queue is not an entity table")
	}
	if KnownTable("users; DROP TABLE food_items") {
		t.Error("arbitrary strings must not validate")
	}
}

func TestRewriteIDCascades(t *testing.T) {
	db, mirror := setupMirrorTestDB(t)
	foods := NewFoodStore(db)
	recipes := NewRecipeStore(db)
	plans := NewPlanStore(db)
	queue := NewSyncStore(db)

	food, err := foods.Create(testFood("5000157024671"))
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	tempID := food.ID

	recipe, err := recipes.Insert(model.Recipe{UserID: "user-1", Name: "Beans on Toast", Servings: 1})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	ing, err := recipes.InsertIngredient(model.RecipeIngredient{
		RecipeID: recipe.ID, FoodItemID: tempID, Quantity: 200, Unit: "g",
	})
	if err != nil {
		t.Fatalf("create ingredient: %v", err)
	}

	plan, err := plans.InsertPlan(model.MealPlan{UserID: "user-1", Date: "2026-09-01"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	meal, err := plans.InsertMeal(model.Meal{MealPlanID: plan.ID, MealType: model.MealTypeLunch})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	item, err := plans.InsertItem(model.MealItem{MealID: meal.ID, FoodItemID: &tempID, Servings: 1})
	if err != nil {
		t.Fatalf("create meal item: %v", err)
	}

	// A later queue entry carries the temp id inside its payload.
	payload, _ := json.Marshal(ing)
	if _, err := queue.Enqueue("recipe_ingredients", ing.ID, model.OpInsert, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := mirror.RewriteID("food_items", tempID, "canon-7"); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := foods.GetByID("canon-7")
	if err != nil || got == nil {
		t.Fatalf("canonical row missing: %v", err)
	}
	if !got.Synced {
		t.Error("rewritten row should be marked synced")
	}
	if old, _ := foods.GetByID(tempID); old != nil {
		t.Error("temp row should not survive the rewrite")
	}

	ings, err := recipes.ListIngredients(recipe.ID)
	if err != nil || len(ings) != 1 {
		t.Fatalf("list ingredients: %v (%d)", err, len(ings))
	}
	if ings[0].FoodItemID != "canon-7" {
		t.Errorf("ingredient food_item_id = %q, want canon-7", ings[0].FoodItemID)
	}

	items, err := plans.ListItemsForMeal(meal.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("list items: %v (%d)", err, len(items))
	}
	if items[0].FoodItemID == nil || *items[0].FoodItemID != "canon-7" {
		t.Errorf("meal item food ref not rewritten: %+v", items[0].FoodItemID)
	}
	_ = item

	pending, err := queue.ListPending(time.Now())
	if err != nil || len(pending) != 1 {
		t.Fatalf("list pending: %v (%d)", err, len(pending))
	}
	if strings.Contains(string(pending[0].Payload), tempID) {
		t.Error("queued payload still references the temp id")
	}
	if !strings.Contains(string(pending[0].Payload), "canon-7") {
		t.Error("queued payload should carry the canonical id")
	}
}

func TestRewriteIDUpdatesQueueRecordID(t *testing.T) {
	db, mirror := setupMirrorTestDB(t)
	foods := NewFoodStore(db)
	queue := NewSyncStore(db)

	food, err := foods.Create(testFood("5000157024671"))
	if err != nil {
		t.Fatalf("create food: %v", err)
	}

	if _, err := queue.Enqueue("food_items", food.ID, model.OpUpdate, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := mirror.RewriteID("food_items", food.ID, "canon-1"); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	pending, err := queue.ListPending(time.Now())
	if err != nil || len(pending) != 1 {
		t.Fatalf("list pending: %v (%d)", err, len(pending))
	}
	if pending[0].RecordID != "canon-1" {
		t.Errorf("record_id = %q, want canon-1", pending[0].RecordID)
	}
}

func TestDeleteRowAndMarkSynced(t *testing.T) {
	db, mirror := setupMirrorTestDB(t)
	foods := NewFoodStore(db)

	food, err := foods.Create(testFood("5000157024671"))
	if err != nil {
		t.Fatalf("create food: %v", err)
	}

	if err := mirror.MarkSynced("food_items", food.ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	got, _ := foods.GetByID(food.ID)
	if got == nil || !got.Synced {
		t.Error("row should be synced")
	}

	if err := mirror.DeleteRow("food_items", food.ID); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	if got, _ := foods.GetByID(food.ID); got != nil {
		t.Error("row should be gone")
	}

	if err := mirror.MarkSynced("nope", "x"); err == nil {
		t.Error("unknown table must be rejected")
	}
}
