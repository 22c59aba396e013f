package fitbit

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/store"
)

func setupFitbit(t *testing.T) (*Client, *planner.Planner) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	plans := store.NewPlanStore(db)
	pl := planner.New(planner.Config{
		Plans:      plans,
		Foods:      store.NewFoodStore(db),
		Recipes:    store.NewRecipeStore(db),
		ReadyMeals: store.NewReadyMealStore(db),
		Shopping:   store.NewShoppingStore(db),
		Ratings:    store.NewRatingStore(db),
		Queue:      store.NewSyncStore(db),
		UserID:     "user-1",
		Logger:     slog.New(slog.DiscardHandler),
	})
	c := NewClient(StaticToken("test-token"), plans, pl, slog.New(slog.DiscardHandler))
	return c, pl
}

func TestPushDay(t *testing.T) {
	c, pl := setupFitbit(t)

	var logged []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foods/log.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		logged = append(logged, r.URL.Query())
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	c.SetBaseURL(srv.URL)

	plan, err := pl.CreatePlan("2026-09-01", "")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	food, err := pl.CreateFood(model.FoodItem{
		Name: "Oats", CaloriesPer100g: 380, ProteinG: 13, ServingSizeGrams: 100,
	})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	breakfast := plan.Meals[0]
	if _, err := pl.AddItem(model.MealItem{
		MealID: breakfast.ID, FoodItemID: &food.ID, Quantity: 100,
	}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := pl.SetMealCompleted(breakfast.ID, true); err != nil {
		t.Fatalf("complete meal: %v", err)
	}

	pushed, err := c.PushDay(context.Background(), "2026-09-01")
	if err != nil {
		t.Fatalf("push day: %v", err)
	}
	if pushed != 1 {
		t.Fatalf("pushed = %d, want 1", pushed)
	}
	if len(logged) != 1 {
		t.Fatalf("requests = %d, want 1", len(logged))
	}
	q := logged[0]
	if q.Get("foodName") != "Larder breakfast" || q.Get("mealTypeId") != "1" {
		t.Errorf("form = %v", q)
	}
	if q.Get("calories") != "380" || q.Get("protein") != "13.0" {
		t.Errorf("nutrition = calories %s, protein %s", q.Get("calories"), q.Get("protein"))
	}
	if q.Get("date") != "2026-09-01" {
		t.Errorf("date = %s", q.Get("date"))
	}

	// A second push is a no-op: the meal is already marked as synced.
	pushed, err = c.PushDay(context.Background(), "2026-09-01")
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if pushed != 0 || len(logged) != 1 {
		t.Errorf("second push sent %d requests", len(logged)-1)
	}
}

func TestPushDaySkipsIncompleteMeals(t *testing.T) {
	c, pl := setupFitbit(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for incomplete meals")
	}))
	defer srv.Close()
	c.SetBaseURL(srv.URL)

	if _, err := pl.CreatePlan("2026-09-01", ""); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	pushed, err := c.PushDay(context.Background(), "2026-09-01")
	if err != nil {
		t.Fatalf("push day: %v", err)
	}
	if pushed != 0 {
		t.Errorf("pushed = %d, want 0", pushed)
	}
}

func TestPushDayNoPlan(t *testing.T) {
	c, _ := setupFitbit(t)

	pushed, err := c.PushDay(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("push day: %v", err)
	}
	if pushed != 0 {
		t.Errorf("pushed = %d, want 0", pushed)
	}
}
