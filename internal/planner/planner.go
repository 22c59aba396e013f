// Package planner implements the meal-planning operations on top of the
// local mirror. Every write lands locally first and is queued for sync; a
// registered kick callback nudges the sync processor afterwards.
package planner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/store"
)

// Planner owns plan, meal, and shopping-list operations for one user.
type Planner struct {
	plans      *store.PlanStore
	foods      *store.FoodStore
	recipes    *store.RecipeStore
	readyMeals *store.ReadyMealStore
	shopping   *store.ShoppingStore
	ratings    *store.RatingStore
	queue      *store.SyncStore
	userID     string
	gate       sync.Locker
	kick       func()
	logger     *slog.Logger
}

type Config struct {
	Plans      *store.PlanStore
	Foods      *store.FoodStore
	Recipes    *store.RecipeStore
	ReadyMeals *store.ReadyMealStore
	Shopping   *store.ShoppingStore
	Ratings    *store.RatingStore
	Queue      *store.SyncStore
	UserID     string

	// Gate, when set, is held for the duration of every mutating operation.
	// Wired to the sync processor's pass lock so a queue pass cannot rewrite
	// temporary identifiers an operation still holds in memory.
	Gate sync.Locker

	Logger *slog.Logger
}

func New(cfg Config) *Planner {
	return &Planner{
		plans:      cfg.Plans,
		foods:      cfg.Foods,
		recipes:    cfg.Recipes,
		readyMeals: cfg.ReadyMeals,
		shopping:   cfg.Shopping,
		ratings:    cfg.Ratings,
		queue:      cfg.Queue,
		userID:     cfg.UserID,
		gate:       cfg.Gate,
		kick:       nil,
		logger:     cfg.Logger,
	}
}

// OnWrite registers a callback fired once at the end of each mutating
// operation, used to trigger a sync pass when connectivity allows.
func (p *Planner) OnWrite(fn func()) {
	p.kick = fn
}

// begin takes the sync gate for a mutating operation. The returned function
// releases it and nudges the sync processor once, after every step of the
// operation has been queued.
func (p *Planner) begin() func() {
	if p.gate != nil {
		p.gate.Lock()
	}
	return func() {
		if p.gate != nil {
			p.gate.Unlock()
		}
		if p.kick != nil {
			p.kick()
		}
	}
}

// track queues a mutation for the sync processor. record may be nil for
// deletes.
func (p *Planner) track(table, id string, op model.SyncOp, record any) error {
	var payload json.RawMessage
	if record != nil {
		b, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", table, err)
		}
		payload = b
	}
	_, err := p.queue.Enqueue(table, id, op, payload)
	return err
}

// --- Plans ---

// PlanForDate returns the plan for a calendar date, creating it with the
// default meal slots if none exists yet.
func (p *Planner) PlanForDate(date string) (*model.MealPlan, error) {
	defer p.begin()()

	plan, err := p.plans.GetPlanByDate(p.userID, date)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}
	return p.createPlan(date, "")
}

// CreatePlan creates a plan for date with one meal slot per default meal
// type. The plan and each meal are queued individually so the rewrite
// cascade can fix up the meals' plan references after the plan's insert.
func (p *Planner) CreatePlan(date, notes string) (*model.MealPlan, error) {
	defer p.begin()()
	return p.createPlan(date, notes)
}

func (p *Planner) createPlan(date, notes string) (*model.MealPlan, error) {
	plan, err := p.plans.InsertPlan(model.MealPlan{
		UserID: p.userID,
		Date:   date,
		Notes:  notes,
	})
	if err != nil {
		return nil, err
	}
	if err := p.track("meal_plans", plan.ID, model.OpInsert, plan); err != nil {
		return nil, err
	}

	for _, mealType := range model.DefaultMealTypes {
		meal, err := p.plans.InsertMeal(model.Meal{
			MealPlanID: plan.ID,
			MealType:   mealType,
		})
		if err != nil {
			return nil, err
		}
		if err := p.track("meals", meal.ID, model.OpInsert, meal); err != nil {
			return nil, err
		}
		plan.Meals = append(plan.Meals, *meal)
	}
	return plan, nil
}

func (p *Planner) PlanByID(id string) (*model.MealPlan, error) {
	return p.plans.GetPlanByID(id)
}

func (p *Planner) PlansForRange(startDate, endDate string) ([]model.MealPlan, error) {
	return p.plans.ListPlansForRange(p.userID, startDate, endDate)
}

// CopyPlan duplicates the meals and items of the plan at fromDate onto
// toDate. The target date must not already have a plan.
func (p *Planner) CopyPlan(fromDate, toDate string) (*model.MealPlan, error) {
	defer p.begin()()

	src, err := p.plans.GetPlanByDate(p.userID, fromDate)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("no plan for %s", fromDate)
	}
	existing, err := p.plans.GetPlanByDate(p.userID, toDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("plan for %s already exists", toDate)
	}

	dst, err := p.plans.InsertPlan(model.MealPlan{
		UserID: p.userID,
		Date:   toDate,
		Notes:  src.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := p.track("meal_plans", dst.ID, model.OpInsert, dst); err != nil {
		return nil, err
	}

	for _, srcMeal := range src.Meals {
		meal, err := p.plans.InsertMeal(model.Meal{
			MealPlanID: dst.ID,
			MealType:   srcMeal.MealType,
			TimeOfDay:  srcMeal.TimeOfDay,
			Notes:      srcMeal.Notes,
		})
		if err != nil {
			return nil, err
		}
		if err := p.track("meals", meal.ID, model.OpInsert, meal); err != nil {
			return nil, err
		}

		for _, srcItem := range srcMeal.Items {
			item := srcItem
			item.ID = ""
			item.MealID = meal.ID
			item.Synced = false
			inserted, err := p.plans.InsertItem(item)
			if err != nil {
				return nil, err
			}
			if err := p.track("meal_items", inserted.ID, model.OpInsert, inserted); err != nil {
				return nil, err
			}
			meal.Items = append(meal.Items, *inserted)
		}
		dst.Meals = append(dst.Meals, *meal)
	}
	return dst, nil
}

// --- Meals and items ---

func (p *Planner) SetMealCompleted(mealID string, completed bool) (*model.Meal, error) {
	defer p.begin()()

	meal, err := p.plans.SetMealCompleted(mealID, completed)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, fmt.Errorf("meal %s not found", mealID)
	}
	if err := p.track("meals", meal.ID, model.OpUpdate, meal); err != nil {
		return nil, err
	}
	return meal, nil
}

// AddItem attaches exactly one of a food item, recipe, or ready meal to a
// meal slot.
func (p *Planner) AddItem(item model.MealItem) (*model.MealItem, error) {
	defer p.begin()()

	refs := 0
	for _, ref := range []*string{item.FoodItemID, item.RecipeID, item.ReadyMealID} {
		if ref != nil && *ref != "" {
			refs++
		}
	}
	if refs != 1 {
		return nil, fmt.Errorf("meal item must reference exactly one of food item, recipe, or ready meal")
	}
	if item.Servings <= 0 {
		item.Servings = 1
	}

	inserted, err := p.plans.InsertItem(item)
	if err != nil {
		return nil, err
	}
	if err := p.track("meal_items", inserted.ID, model.OpInsert, inserted); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (p *Planner) UpdateItem(id string, quantity float64, unit string, servings int, notes string) (*model.MealItem, error) {
	defer p.begin()()

	item, err := p.plans.UpdateItem(id, quantity, unit, servings, notes)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("meal item %s not found", id)
	}
	if err := p.track("meal_items", item.ID, model.OpUpdate, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (p *Planner) RemoveItem(id string) error {
	defer p.begin()()

	if err := p.plans.DeleteItem(id); err != nil {
		return err
	}
	return p.track("meal_items", id, model.OpDelete, nil)
}

// --- Nutrition ---

// DayNutrition sums the nutrition of every item planned for a date.
func (p *Planner) DayNutrition(date string) (model.NutritionTotals, error) {
	var totals model.NutritionTotals

	plan, err := p.plans.GetPlanByDate(p.userID, date)
	if err != nil || plan == nil {
		return totals, err
	}
	for _, meal := range plan.Meals {
		for _, item := range meal.Items {
			t, err := p.itemNutrition(item)
			if err != nil {
				return totals, err
			}
			totals.Add(t)
		}
	}
	return totals, nil
}

func (p *Planner) itemNutrition(item model.MealItem) (model.NutritionTotals, error) {
	servings := item.Servings
	if servings <= 0 {
		servings = 1
	}

	switch {
	case item.FoodItemID != nil && *item.FoodItemID != "":
		food, err := p.foods.GetByID(*item.FoodItemID)
		if err != nil || food == nil {
			return model.NutritionTotals{}, err
		}
		grams := item.Quantity
		if grams <= 0 {
			grams = food.ServingSizeGrams * float64(servings)
		}
		factor := grams / 100
		return model.NutritionTotals{
			Calories: food.CaloriesPer100g * factor,
			ProteinG: food.ProteinG * factor,
			CarbsG:   food.CarbsG * factor,
			FatG:     food.FatG * factor,
			FiberG:   food.FiberG * factor,
			SugarG:   food.SugarG * factor,
			SodiumMg: food.SodiumMg * factor,
		}, nil

	case item.RecipeID != nil && *item.RecipeID != "":
		return p.recipeNutrition(*item.RecipeID, servings)

	case item.ReadyMealID != nil && *item.ReadyMealID != "":
		meal, err := p.readyMeals.GetByID(*item.ReadyMealID)
		if err != nil || meal == nil {
			return model.NutritionTotals{}, err
		}
		n := float64(servings)
		return model.NutritionTotals{
			Calories: meal.CaloriesPerServing * n,
			ProteinG: meal.ProteinG * n,
			CarbsG:   meal.CarbsG * n,
			FatG:     meal.FatG * n,
		}, nil
	}
	return model.NutritionTotals{}, nil
}

// recipeNutrition sums a recipe's ingredients, scaled from its yield to the
// requested serving count.
func (p *Planner) recipeNutrition(recipeID string, servings int) (model.NutritionTotals, error) {
	var totals model.NutritionTotals

	recipe, err := p.recipes.GetByID(recipeID)
	if err != nil || recipe == nil {
		return totals, err
	}
	ingredients, err := p.recipes.ListIngredients(recipeID)
	if err != nil {
		return totals, err
	}
	for _, ing := range ingredients {
		food, err := p.foods.GetByID(ing.FoodItemID)
		if err != nil {
			return totals, err
		}
		if food == nil {
			continue
		}
		factor := ing.Quantity / 100
		totals.Add(model.NutritionTotals{
			Calories: food.CaloriesPer100g * factor,
			ProteinG: food.ProteinG * factor,
			CarbsG:   food.CarbsG * factor,
			FatG:     food.FatG * factor,
			FiberG:   food.FiberG * factor,
			SugarG:   food.SugarG * factor,
			SodiumMg: food.SodiumMg * factor,
		})
	}

	yield := recipe.Servings
	if yield <= 0 {
		yield = 1
	}
	scale := float64(servings) / float64(yield)
	return model.NutritionTotals{
		Calories: totals.Calories * scale,
		ProteinG: totals.ProteinG * scale,
		CarbsG:   totals.CarbsG * scale,
		FatG:     totals.FatG * scale,
		FiberG:   totals.FiberG * scale,
		SugarG:   totals.SugarG * scale,
		SodiumMg: totals.SodiumMg * scale,
	}, nil
}

// MealNutrition sums the nutrition of one meal's items.
func (p *Planner) MealNutrition(meal model.Meal) (model.NutritionTotals, error) {
	var totals model.NutritionTotals
	for _, item := range meal.Items {
		t, err := p.itemNutrition(item)
		if err != nil {
			return totals, err
		}
		totals.Add(t)
	}
	return totals, nil
}

// UserID returns the user this planner operates for.
func (p *Planner) UserID() string {
	return p.userID
}

// --- Suggestions ---

// Suggestions returns the user's best-rated recipes and ready meals for a
// meal type, for filling an empty slot.
func (p *Planner) Suggestions(mealType string, limit int) ([]model.RatedMeal, error) {
	if limit <= 0 {
		limit = 10
	}
	return p.ratings.TopRated(p.userID, mealType, limit)
}
