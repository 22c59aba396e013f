package model

import "time"

// MealRating is a 1-5 star rating of a recipe or a ready meal.
type MealRating struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RecipeID    *string   `json:"recipe_id"`
	ReadyMealID *string   `json:"ready_meal_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Synced      bool      `json:"synced"`
}

// RatedMeal is a suggestion entry: a recipe or ready meal with its average
// rating.
type RatedMeal struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // "recipe" or "ready_meal"
	MealType    *string `json:"meal_type"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}
