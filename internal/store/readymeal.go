package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type ReadyMealStore struct {
	db *sql.DB
}

func NewReadyMealStore(db *sql.DB) *ReadyMealStore {
	return &ReadyMealStore{db: db}
}

func scanReadyMeal(scanner interface{ Scan(...any) error }) (*model.ReadyMeal, error) {
	var m model.ReadyMeal
	var mealType, lastPurchased, lastMade sql.NullString
	var rating sql.NullInt64
	var inStock, synced int
	err := scanner.Scan(
		&m.ID, &m.UserID, &m.Name, &m.Brand, &m.Description, &mealType,
		&m.CaloriesPerServing, &m.ProteinG, &m.CarbsG, &m.FatG,
		&m.ServingSize, &m.ServingSizeGrams, &inStock, &lastPurchased,
		&m.Barcode, &m.ImageURL, &rating, &m.RatingCount, &lastMade,
		&m.CreatedAt, &m.UpdatedAt, &synced,
	)
	if err != nil {
		return nil, err
	}
	m.InStock = inStock != 0
	m.Synced = synced != 0
	m.MealType = strPtr(mealType)
	m.LastPurchasedDate = strPtr(lastPurchased)
	m.LastMadeDate = strPtr(lastMade)
	m.Rating = intPtr(rating)
	return &m, nil
}

const readyMealCols = `id, user_id, name, brand, description, meal_type, calories_per_serving,
	protein_g, carbs_g, fat_g, serving_size, serving_size_grams, in_stock, last_purchased_date,
	barcode, image_url, rating, rating_count, last_made_date, created_at, updated_at, synced`

func (s *ReadyMealStore) GetByID(id string) (*model.ReadyMeal, error) {
	row := s.db.QueryRow(`SELECT `+readyMealCols+` FROM ready_meals WHERE id = ?`, id)
	m, err := scanReadyMeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ready meal: %w", err)
	}
	return m, nil
}

func (s *ReadyMealStore) ListByUser(userID string) ([]model.ReadyMeal, error) {
	return s.list(`user_id = ?`, userID)
}

func (s *ReadyMealStore) ListByMealType(userID, mealType string) ([]model.ReadyMeal, error) {
	return s.list(`user_id = ? AND meal_type = ?`, userID, mealType)
}

func (s *ReadyMealStore) ListInStock(userID string) ([]model.ReadyMeal, error) {
	return s.list(`user_id = ? AND in_stock = 1`, userID)
}

func (s *ReadyMealStore) ListOutOfStock(userID string) ([]model.ReadyMeal, error) {
	return s.list(`user_id = ? AND in_stock = 0`, userID)
}

func (s *ReadyMealStore) list(where string, args ...any) ([]model.ReadyMeal, error) {
	rows, err := s.db.Query(`SELECT `+readyMealCols+` FROM ready_meals WHERE `+where+` ORDER BY name ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list ready meals: %w", err)
	}
	defer rows.Close()

	var meals []model.ReadyMeal
	for rows.Next() {
		m, err := scanReadyMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ready meal: %w", err)
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

func (s *ReadyMealStore) Insert(m model.ReadyMeal) (*model.ReadyMeal, error) {
	if m.ID == "" {
		m.ID = model.NewTempID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO ready_meals (`+readyMealCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, m.Brand, m.Description, nullString(m.MealType),
		m.CaloriesPerServing, m.ProteinG, m.CarbsG, m.FatG,
		m.ServingSize, m.ServingSizeGrams, boolToInt(m.InStock), nullString(m.LastPurchasedDate),
		m.Barcode, m.ImageURL, nullInt(m.Rating), m.RatingCount, nullString(m.LastMadeDate),
		m.CreatedAt, m.UpdatedAt, boolToInt(m.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert ready meal: %w", err)
	}
	return s.GetByID(m.ID)
}

func (s *ReadyMealStore) Update(m model.ReadyMeal) (*model.ReadyMeal, error) {
	_, err := s.db.Exec(
		`UPDATE ready_meals SET name = ?, brand = ?, description = ?, meal_type = ?,
			calories_per_serving = ?, protein_g = ?, carbs_g = ?, fat_g = ?,
			serving_size = ?, serving_size_grams = ?, barcode = ?, image_url = ?,
			updated_at = ?, synced = 0
		WHERE id = ?`,
		m.Name, m.Brand, m.Description, nullString(m.MealType),
		m.CaloriesPerServing, m.ProteinG, m.CarbsG, m.FatG,
		m.ServingSize, m.ServingSizeGrams, m.Barcode, m.ImageURL,
		time.Now().UTC(),
		m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update ready meal: %w", err)
	}
	return s.GetByID(m.ID)
}

func (s *ReadyMealStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM ready_meals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete ready meal: %w", err)
	}
	return nil
}

func (s *ReadyMealStore) SetStockStatus(id string, inStock bool) (*model.ReadyMeal, error) {
	var lastPurchased any
	if inStock {
		lastPurchased = time.Now().UTC().Format("2006-01-02")
	}
	_, err := s.db.Exec(
		`UPDATE ready_meals SET in_stock = ?, last_purchased_date = ?, updated_at = ?, synced = 0 WHERE id = ?`,
		boolToInt(inStock), lastPurchased, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set ready meal stock: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReadyMealStore) SetRating(id string, avg int, count int) error {
	_, err := s.db.Exec(
		`UPDATE ready_meals SET rating = ?, rating_count = ?, synced = 0 WHERE id = ?`,
		avg, count, id,
	)
	if err != nil {
		return fmt.Errorf("set ready meal rating: %w", err)
	}
	return nil
}
