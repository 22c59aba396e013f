package model

import "time"

// Recipe is a user-authored recipe with per-recipe ingredient rows.
type Recipe struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Servings        int       `json:"servings"`
	PrepTimeMinutes int       `json:"prep_time_minutes"`
	CookTimeMinutes int       `json:"cook_time_minutes"`
	Instructions    string    `json:"instructions"`
	IsFavorite      bool      `json:"is_favorite"`
	ImageURL        string    `json:"image_url"`
	Tags            string    `json:"tags"`
	MealType        *string   `json:"meal_type"`
	Rating          *int      `json:"rating"`
	RatingCount     int       `json:"rating_count"`
	LastMadeDate    *string   `json:"last_made_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Synced          bool      `json:"synced"`

	Ingredients []RecipeIngredient `json:"ingredients,omitempty"`
}

// RecipeIngredient links a recipe to a food item with a quantity.
type RecipeIngredient struct {
	ID         string  `json:"id"`
	RecipeID   string  `json:"recipe_id"`
	FoodItemID string  `json:"food_item_id"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Notes      string  `json:"notes"`
	Synced     bool    `json:"synced"`
}
