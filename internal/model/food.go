package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provenance values for FoodItem.Source.
const (
	SourceUserCreated   = "User Created"
	SourceOpenFoodFacts = "Open Food Facts"
	SourceRemote        = "Remote"
)

// TempIDPrefix marks identifiers assigned locally before the remote store
// has confirmed the record. They are rewritten to the canonical id on first
// successful sync.
const TempIDPrefix = "temp_"

// NewID returns a fresh canonical-shaped identifier.
func NewID() string {
	return uuid.NewString()
}

// NewTempID returns a fresh temporary identifier for a locally created record.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id is a temporary local identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// FoodItem mirrors a row of the remote food_items table. Nutrition fields
// are per 100g.
type FoodItem struct {
	ID                string    `json:"id"`
	Barcode           string    `json:"barcode,omitempty"`
	Name              string    `json:"name"`
	Brand             string    `json:"brand"`
	Description       string    `json:"description"`
	ServingSize       string    `json:"serving_size"`
	ServingSizeGrams  float64   `json:"serving_size_grams"`
	CaloriesPer100g   float64   `json:"calories_per_100g"`
	ProteinG          float64   `json:"protein_g"`
	CarbsG            float64   `json:"carbs_g"`
	FatG              float64   `json:"fat_g"`
	FiberG            float64   `json:"fiber_g"`
	SugarG            float64   `json:"sugar_g"`
	SodiumMg          float64   `json:"sodium_mg"`
	IsUserCreated     bool      `json:"is_user_created"`
	UserID            string    `json:"user_id,omitempty"`
	Source            string    `json:"source"`
	IsUKProduct       bool      `json:"is_uk_product"`
	ImageURL          string    `json:"image_url"`
	MealType          *string   `json:"meal_type"`
	InStock           bool      `json:"in_stock"`
	LastPurchasedDate *string   `json:"last_purchased_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Synced            bool      `json:"synced"`
}
