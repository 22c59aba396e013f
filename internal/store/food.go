package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type FoodStore struct {
	db *sql.DB
}

func NewFoodStore(db *sql.DB) *FoodStore {
	return &FoodStore{db: db}
}

func scanFood(scanner interface{ Scan(...any) error }) (*model.FoodItem, error) {
	var f model.FoodItem
	var mealType, lastPurchased sql.NullString
	var isUserCreated, isUK, inStock, synced int

	err := scanner.Scan(
		&f.ID, &f.Barcode, &f.Name, &f.Brand, &f.Description,
		&f.ServingSize, &f.ServingSizeGrams, &f.CaloriesPer100g,
		&f.ProteinG, &f.CarbsG, &f.FatG, &f.FiberG, &f.SugarG, &f.SodiumMg,
		&isUserCreated, &f.UserID, &f.Source, &isUK, &f.ImageURL,
		&mealType, &inStock, &lastPurchased, &f.CreatedAt, &f.UpdatedAt, &synced,
	)
	if err != nil {
		return nil, err
	}

	f.IsUserCreated = isUserCreated != 0
	f.IsUKProduct = isUK != 0
	f.InStock = inStock != 0
	f.Synced = synced != 0
	if mealType.Valid {
		f.MealType = &mealType.String
	}
	if lastPurchased.Valid {
		f.LastPurchasedDate = &lastPurchased.String
	}
	return &f, nil
}

const foodCols = `id, barcode, name, brand, description, serving_size, serving_size_grams,
	calories_per_100g, protein_g, carbs_g, fat_g, fiber_g, sugar_g, sodium_mg,
	is_user_created, user_id, source, is_uk_product, image_url, meal_type,
	in_stock, last_purchased_date, created_at, updated_at, synced`

func (s *FoodStore) GetByID(id string) (*model.FoodItem, error) {
	row := s.db.QueryRow(`SELECT `+foodCols+` FROM food_items WHERE id = ?`, id)
	f, err := scanFood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food: %w", err)
	}
	return f, nil
}

// GetByBarcode looks a food item up by its natural key. Returns (nil, nil)
// when no row matches.
func (s *FoodStore) GetByBarcode(barcode string) (*model.FoodItem, error) {
	if barcode == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+foodCols+` FROM food_items WHERE barcode = ?`, barcode)
	f, err := scanFood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food by barcode: %w", err)
	}
	return f, nil
}

// Upsert inserts the item, or updates the existing row sharing its natural
// key (barcode when present, id otherwise). Applying the same item twice
// leaves the store in the same state. The existing row's id is preserved on
// a barcode match unless the incoming id is canonical and the stored one is
// temporary.
func (s *FoodStore) Upsert(item model.FoodItem) (*model.FoodItem, error) {
	var existing *model.FoodItem
	var err error
	if item.Barcode != "" {
		existing, err = s.GetByBarcode(item.Barcode)
	} else {
		existing, err = s.GetByID(item.ID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		if item.ID == "" {
			item.ID = model.NewTempID()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		if err := s.insert(item); err != nil {
			return nil, err
		}
		return s.GetByID(item.ID)
	}

	keepID := existing.ID
	if model.IsTempID(existing.ID) && item.ID != "" && !model.IsTempID(item.ID) {
		keepID = item.ID
	}

	_, err = s.db.Exec(
		`UPDATE food_items SET
			id = ?, name = ?, brand = ?, description = ?, serving_size = ?,
			serving_size_grams = ?, calories_per_100g = ?, protein_g = ?,
			carbs_g = ?, fat_g = ?, fiber_g = ?, sugar_g = ?, sodium_mg = ?,
			is_user_created = ?, user_id = ?, source = ?, is_uk_product = ?,
			image_url = ?, meal_type = ?, in_stock = ?, last_purchased_date = ?,
			updated_at = ?, synced = ?
		WHERE id = ?`,
		keepID, item.Name, item.Brand, item.Description, item.ServingSize,
		item.ServingSizeGrams, item.CaloriesPer100g, item.ProteinG,
		item.CarbsG, item.FatG, item.FiberG, item.SugarG, item.SodiumMg,
		boolToInt(item.IsUserCreated), item.UserID, item.Source, boolToInt(item.IsUKProduct),
		item.ImageURL, nullString(item.MealType), boolToInt(item.InStock), nullString(item.LastPurchasedDate),
		now, boolToInt(item.Synced),
		existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert food: %w", err)
	}
	return s.GetByID(keepID)
}

func (s *FoodStore) insert(item model.FoodItem) error {
	_, err := s.db.Exec(
		`INSERT INTO food_items (`+foodCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Barcode, item.Name, item.Brand, item.Description,
		item.ServingSize, item.ServingSizeGrams, item.CaloriesPer100g,
		item.ProteinG, item.CarbsG, item.FatG, item.FiberG, item.SugarG, item.SodiumMg,
		boolToInt(item.IsUserCreated), item.UserID, item.Source, boolToInt(item.IsUKProduct),
		item.ImageURL, nullString(item.MealType), boolToInt(item.InStock), nullString(item.LastPurchasedDate),
		item.CreatedAt, item.UpdatedAt, boolToInt(item.Synced),
	)
	if err != nil {
		return fmt.Errorf("insert food: %w", err)
	}
	return nil
}

// Create inserts a new locally-authored food item with a temporary id.
func (s *FoodStore) Create(item model.FoodItem) (*model.FoodItem, error) {
	if item.ID == "" {
		item.ID = model.NewTempID()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Synced = false
	if err := s.insert(item); err != nil {
		return nil, err
	}
	return s.GetByID(item.ID)
}

func (s *FoodStore) Update(item model.FoodItem) (*model.FoodItem, error) {
	_, err := s.db.Exec(
		`UPDATE food_items SET
			name = ?, brand = ?, description = ?, serving_size = ?,
			serving_size_grams = ?, calories_per_100g = ?, protein_g = ?,
			carbs_g = ?, fat_g = ?, fiber_g = ?, sugar_g = ?, sodium_mg = ?,
			image_url = ?, meal_type = ?, updated_at = ?, synced = 0
		WHERE id = ?`,
		item.Name, item.Brand, item.Description, item.ServingSize,
		item.ServingSizeGrams, item.CaloriesPer100g, item.ProteinG,
		item.CarbsG, item.FatG, item.FiberG, item.SugarG, item.SodiumMg,
		item.ImageURL, nullString(item.MealType), time.Now().UTC(),
		item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update food: %w", err)
	}
	return s.GetByID(item.ID)
}

func (s *FoodStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM food_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete food: %w", err)
	}
	return nil
}

func (s *FoodStore) SearchByName(query string, limit int) ([]model.FoodItem, error) {
	rows, err := s.db.Query(
		`SELECT `+foodCols+` FROM food_items WHERE name LIKE ? ORDER BY name ASC LIMIT ?`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search foods: %w", err)
	}
	defer rows.Close()
	return collectFoods(rows)
}

func (s *FoodStore) ListUserCreated(userID string) ([]model.FoodItem, error) {
	rows, err := s.db.Query(
		`SELECT `+foodCols+` FROM food_items WHERE is_user_created = 1 AND user_id = ? ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user foods: %w", err)
	}
	defer rows.Close()
	return collectFoods(rows)
}

func (s *FoodStore) ListByMealType(userID, mealType string) ([]model.FoodItem, error) {
	rows, err := s.db.Query(
		`SELECT `+foodCols+` FROM food_items WHERE user_id = ? AND meal_type = ? ORDER BY name ASC`,
		userID, mealType,
	)
	if err != nil {
		return nil, fmt.Errorf("list foods by meal type: %w", err)
	}
	defer rows.Close()
	return collectFoods(rows)
}

func (s *FoodStore) ListOutOfStock(userID string) ([]model.FoodItem, error) {
	rows, err := s.db.Query(
		`SELECT `+foodCols+` FROM food_items WHERE user_id = ? AND in_stock = 0 ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list out of stock foods: %w", err)
	}
	defer rows.Close()
	return collectFoods(rows)
}

// SetStockStatus flips in_stock and stamps last_purchased_date when the item
// comes back into stock. The row is marked unsynced; the caller enqueues the
// matching sync entry.
func (s *FoodStore) SetStockStatus(id string, inStock bool) (*model.FoodItem, error) {
	var lastPurchased any
	if inStock {
		lastPurchased = time.Now().UTC().Format("2006-01-02")
	}
	_, err := s.db.Exec(
		`UPDATE food_items SET in_stock = ?, last_purchased_date = ?, updated_at = ?, synced = 0 WHERE id = ?`,
		boolToInt(inStock), lastPurchased, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set stock status: %w", err)
	}
	return s.GetByID(id)
}

func collectFoods(rows *sql.Rows) ([]model.FoodItem, error) {
	var foods []model.FoodItem
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		foods = append(foods, *f)
	}
	return foods, rows.Err()
}
