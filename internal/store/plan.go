package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

// --- Plan methods ---

func scanPlan(scanner interface{ Scan(...any) error }) (*model.MealPlan, error) {
	var p model.MealPlan
	var synced int
	err := scanner.Scan(&p.ID, &p.UserID, &p.Date, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &synced)
	if err != nil {
		return nil, err
	}
	p.Synced = synced != 0
	return &p, nil
}

const planCols = `id, user_id, date, notes, created_at, updated_at, synced`

func (s *PlanStore) GetPlanByID(id string) (*model.MealPlan, error) {
	row := s.db.QueryRow(`SELECT `+planCols+` FROM meal_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// GetPlanByDate returns the plan for a calendar date with its meals and
// items populated, or (nil, nil) when the date has no plan yet.
func (s *PlanStore) GetPlanByDate(userID, date string) (*model.MealPlan, error) {
	row := s.db.QueryRow(`SELECT `+planCols+` FROM meal_plans WHERE user_id = ? AND date = ?`, userID, date)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan by date: %w", err)
	}
	if err := s.loadMeals(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlanStore) ListPlansForRange(userID, startDate, endDate string) ([]model.MealPlan, error) {
	rows, err := s.db.Query(
		`SELECT `+planCols+` FROM meal_plans WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.MealPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range plans {
		if err := s.loadMeals(&plans[i]); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (s *PlanStore) InsertPlan(plan model.MealPlan) (*model.MealPlan, error) {
	if plan.ID == "" {
		plan.ID = model.NewTempID()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO meal_plans (`+planCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.Date, plan.Notes, plan.CreatedAt, plan.UpdatedAt, boolToInt(plan.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	return s.GetPlanByID(plan.ID)
}

func (s *PlanStore) loadMeals(p *model.MealPlan) error {
	meals, err := s.ListMealsForPlan(p.ID)
	if err != nil {
		return err
	}
	for i := range meals {
		items, err := s.ListItemsForMeal(meals[i].ID)
		if err != nil {
			return err
		}
		meals[i].Items = items
	}
	p.Meals = meals
	return nil
}

// --- Meal methods ---

func scanMeal(scanner interface{ Scan(...any) error }) (*model.Meal, error) {
	var m model.Meal
	var completed, toFitbit, synced int
	var fitbitTime sql.NullTime
	err := scanner.Scan(
		&m.ID, &m.MealPlanID, &m.MealType, &m.TimeOfDay, &m.Notes,
		&completed, &toFitbit, &fitbitTime, &m.CreatedAt, &m.UpdatedAt, &synced,
	)
	if err != nil {
		return nil, err
	}
	m.IsCompleted = completed != 0
	m.SyncedToFitbit = toFitbit != 0
	m.Synced = synced != 0
	if fitbitTime.Valid {
		m.FitbitSyncTime = &fitbitTime.Time
	}
	return &m, nil
}

const mealCols = `id, meal_plan_id, meal_type, time_of_day, notes, is_completed, synced_to_fitbit, fitbit_sync_time, created_at, updated_at, synced`

func (s *PlanStore) GetMealByID(id string) (*model.Meal, error) {
	row := s.db.QueryRow(`SELECT `+mealCols+` FROM meals WHERE id = ?`, id)
	m, err := scanMeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	return m, nil
}

func (s *PlanStore) ListMealsForPlan(planID string) ([]model.Meal, error) {
	rows, err := s.db.Query(`SELECT `+mealCols+` FROM meals WHERE meal_plan_id = ? ORDER BY created_at ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

func (s *PlanStore) InsertMeal(meal model.Meal) (*model.Meal, error) {
	if meal.ID == "" {
		meal.ID = model.NewTempID()
	}
	now := time.Now().UTC()
	meal.CreatedAt = now
	meal.UpdatedAt = now

	var fitbitTime any
	if meal.FitbitSyncTime != nil {
		fitbitTime = *meal.FitbitSyncTime
	}
	_, err := s.db.Exec(
		`INSERT INTO meals (`+mealCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meal.ID, meal.MealPlanID, meal.MealType, meal.TimeOfDay, meal.Notes,
		boolToInt(meal.IsCompleted), boolToInt(meal.SyncedToFitbit), fitbitTime,
		meal.CreatedAt, meal.UpdatedAt, boolToInt(meal.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal: %w", err)
	}
	return s.GetMealByID(meal.ID)
}

// SetMealCompleted toggles the completed flag and marks the row unsynced.
func (s *PlanStore) SetMealCompleted(id string, completed bool) (*model.Meal, error) {
	_, err := s.db.Exec(
		`UPDATE meals SET is_completed = ?, updated_at = ?, synced = 0 WHERE id = ?`,
		boolToInt(completed), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set meal completed: %w", err)
	}
	return s.GetMealByID(id)
}

// MarkFitbitSynced records a successful push of the meal to the fitness
// tracker. This is device-local state and does not touch the synced flag.
func (s *PlanStore) MarkFitbitSynced(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE meals SET synced_to_fitbit = 1, fitbit_sync_time = ? WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark fitbit synced: %w", err)
	}
	return nil
}

// --- Meal item methods ---

func scanMealItem(scanner interface{ Scan(...any) error }) (*model.MealItem, error) {
	var it model.MealItem
	var foodID, recipeID, readyMealID sql.NullString
	var synced int
	err := scanner.Scan(
		&it.ID, &it.MealID, &foodID, &recipeID, &readyMealID,
		&it.Quantity, &it.Unit, &it.Servings, &it.Notes, &synced,
	)
	if err != nil {
		return nil, err
	}
	it.FoodItemID = strPtr(foodID)
	it.RecipeID = strPtr(recipeID)
	it.ReadyMealID = strPtr(readyMealID)
	it.Synced = synced != 0
	return &it, nil
}

const mealItemCols = `id, meal_id, food_item_id, recipe_id, ready_meal_id, quantity, unit, servings, notes, synced`

func (s *PlanStore) GetItemByID(id string) (*model.MealItem, error) {
	row := s.db.QueryRow(`SELECT `+mealItemCols+` FROM meal_items WHERE id = ?`, id)
	it, err := scanMealItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal item: %w", err)
	}
	return it, nil
}

func (s *PlanStore) ListItemsForMeal(mealID string) ([]model.MealItem, error) {
	rows, err := s.db.Query(`SELECT `+mealItemCols+` FROM meal_items WHERE meal_id = ?`, mealID)
	if err != nil {
		return nil, fmt.Errorf("list meal items: %w", err)
	}
	defer rows.Close()

	var items []model.MealItem
	for rows.Next() {
		it, err := scanMealItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *PlanStore) InsertItem(item model.MealItem) (*model.MealItem, error) {
	if item.ID == "" {
		item.ID = model.NewTempID()
	}
	if item.Servings == 0 {
		item.Servings = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO meal_items (`+mealItemCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.MealID, nullString(item.FoodItemID), nullString(item.RecipeID), nullString(item.ReadyMealID),
		item.Quantity, item.Unit, item.Servings, item.Notes, boolToInt(item.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal item: %w", err)
	}
	return s.GetItemByID(item.ID)
}

func (s *PlanStore) UpdateItem(id string, quantity float64, unit string, servings int, notes string) (*model.MealItem, error) {
	_, err := s.db.Exec(
		`UPDATE meal_items SET quantity = ?, unit = ?, servings = ?, notes = ?, synced = 0 WHERE id = ?`,
		quantity, unit, servings, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update meal item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *PlanStore) DeleteItem(id string) error {
	if _, err := s.db.Exec(`DELETE FROM meal_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete meal item: %w", err)
	}
	return nil
}
