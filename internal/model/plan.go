package model

import "time"

// Meal types used across plans, suggestions, and food items.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// DefaultMealTypes is the set of meals created with a new plan, in display order.
var DefaultMealTypes = []string{MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack}

// MealPlan is one day of planned meals. Date is a calendar date in
// YYYY-MM-DD form.
type MealPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Synced    bool      `json:"synced"`

	Meals []Meal `json:"meals,omitempty"`
}

// Meal is a single meal slot within a plan.
type Meal struct {
	ID             string     `json:"id"`
	MealPlanID     string     `json:"meal_plan_id"`
	MealType       string     `json:"meal_type"`
	TimeOfDay      string     `json:"time_of_day"`
	Notes          string     `json:"notes"`
	IsCompleted    bool       `json:"is_completed"`
	SyncedToFitbit bool       `json:"synced_to_fitbit"`
	FitbitSyncTime *time.Time `json:"fitbit_sync_time"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Synced         bool       `json:"synced"`

	Items []MealItem `json:"items,omitempty"`
}

// MealItem links a meal to exactly one of a food item, a recipe, or a ready
// meal.
type MealItem struct {
	ID          string  `json:"id"`
	MealID      string  `json:"meal_id"`
	FoodItemID  *string `json:"food_item_id"`
	RecipeID    *string `json:"recipe_id"`
	ReadyMealID *string `json:"ready_meal_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Servings    int     `json:"servings"`
	Notes       string  `json:"notes"`
	Synced      bool    `json:"synced"`
}

// NutritionTotals aggregates per-day or per-meal nutrition for the tracker.
type NutritionTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
	SugarG   float64 `json:"sugar_g"`
	SodiumMg float64 `json:"sodium_mg"`
}

// Add accumulates other into t.
func (t *NutritionTotals) Add(other NutritionTotals) {
	t.Calories += other.Calories
	t.ProteinG += other.ProteinG
	t.CarbsG += other.CarbsG
	t.FatG += other.FatG
	t.FiberG += other.FiberG
	t.SugarG += other.SugarG
	t.SodiumMg += other.SodiumMg
}
