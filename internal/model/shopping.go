package model

import "time"

// ShoppingList groups items to buy, optionally covering a plan date range.
type ShoppingList struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	StartDate   *string   `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Synced      bool      `json:"synced"`

	Items []ShoppingListItem `json:"items,omitempty"`
}

// Item-type values for ShoppingListItem.FoodItemType.
const (
	ShoppingItemFood      = "food_item"
	ShoppingItemReadyMeal = "ready_meal"
)

// ShoppingListItem is a single line on a shopping list. It may reference a
// food item or a ready meal, or be free text.
type ShoppingListItem struct {
	ID             string  `json:"id"`
	ShoppingListID string  `json:"shopping_list_id"`
	FoodItemID     *string `json:"food_item_id"`
	ReadyMealID    *string `json:"ready_meal_id"`
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	IsPurchased    bool    `json:"is_purchased"`
	Category       string  `json:"category"`
	Notes          string  `json:"notes"`
	IsOutOfStock   bool    `json:"is_out_of_stock"`
	FoodItemType   string  `json:"food_item_type"`
	Synced         bool    `json:"synced"`
}
