package model

import "time"

// ReadyMeal is a pre-made meal product tracked per serving rather than per
// 100g.
type ReadyMeal struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Brand              string    `json:"brand"`
	Description        string    `json:"description"`
	MealType           *string   `json:"meal_type"`
	CaloriesPerServing float64   `json:"calories_per_serving"`
	ProteinG           float64   `json:"protein_g"`
	CarbsG             float64   `json:"carbs_g"`
	FatG               float64   `json:"fat_g"`
	ServingSize        string    `json:"serving_size"`
	ServingSizeGrams   float64   `json:"serving_size_grams"`
	InStock            bool      `json:"in_stock"`
	LastPurchasedDate  *string   `json:"last_purchased_date"`
	Barcode            string    `json:"barcode,omitempty"`
	ImageURL           string    `json:"image_url"`
	Rating             *int      `json:"rating"`
	RatingCount        int       `json:"rating_count"`
	LastMadeDate       *string   `json:"last_made_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Synced             bool      `json:"synced"`
}
