package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	var mealType, lastMade sql.NullString
	var rating sql.NullInt64
	var favorite, synced int
	err := scanner.Scan(
		&r.ID, &r.UserID, &r.Name, &r.Description, &r.Servings,
		&r.PrepTimeMinutes, &r.CookTimeMinutes, &r.Instructions, &favorite,
		&r.ImageURL, &r.Tags, &mealType, &rating, &r.RatingCount, &lastMade,
		&r.CreatedAt, &r.UpdatedAt, &synced,
	)
	if err != nil {
		return nil, err
	}
	r.IsFavorite = favorite != 0
	r.Synced = synced != 0
	r.MealType = strPtr(mealType)
	r.Rating = intPtr(rating)
	r.LastMadeDate = strPtr(lastMade)
	return &r, nil
}

const recipeCols = `id, user_id, name, description, servings, prep_time_minutes, cook_time_minutes,
	instructions, is_favorite, image_url, tags, meal_type, rating, rating_count, last_made_date,
	created_at, updated_at, synced`

func (s *RecipeStore) GetByID(id string) (*model.Recipe, error) {
	row := s.db.QueryRow(`SELECT `+recipeCols+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	ingredients, err := s.ListIngredients(id)
	if err != nil {
		return nil, err
	}
	r.Ingredients = ingredients
	return r, nil
}

func (s *RecipeStore) ListByUser(userID string) ([]model.Recipe, error) {
	rows, err := s.db.Query(`SELECT `+recipeCols+` FROM recipes WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

func (s *RecipeStore) Insert(r model.Recipe) (*model.Recipe, error) {
	if r.ID == "" {
		r.ID = model.NewTempID()
	}
	if r.Servings == 0 {
		r.Servings = 1
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO recipes (`+recipeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, r.Description, r.Servings,
		r.PrepTimeMinutes, r.CookTimeMinutes, r.Instructions, boolToInt(r.IsFavorite),
		r.ImageURL, r.Tags, nullString(r.MealType), nullInt(r.Rating), r.RatingCount, nullString(r.LastMadeDate),
		r.CreatedAt, r.UpdatedAt, boolToInt(r.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *RecipeStore) Update(r model.Recipe) (*model.Recipe, error) {
	_, err := s.db.Exec(
		`UPDATE recipes SET name = ?, description = ?, servings = ?, prep_time_minutes = ?,
			cook_time_minutes = ?, instructions = ?, is_favorite = ?, image_url = ?, tags = ?,
			meal_type = ?, updated_at = ?, synced = 0
		WHERE id = ?`,
		r.Name, r.Description, r.Servings, r.PrepTimeMinutes,
		r.CookTimeMinutes, r.Instructions, boolToInt(r.IsFavorite), r.ImageURL, r.Tags,
		nullString(r.MealType), time.Now().UTC(),
		r.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *RecipeStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return nil
}

// SetRating stores the denormalized rating aggregate maintained by the
// rating store.
func (s *RecipeStore) SetRating(id string, avg int, count int) error {
	_, err := s.db.Exec(
		`UPDATE recipes SET rating = ?, rating_count = ?, synced = 0 WHERE id = ?`,
		avg, count, id,
	)
	if err != nil {
		return fmt.Errorf("set recipe rating: %w", err)
	}
	return nil
}

// --- Ingredient methods ---

func scanIngredient(scanner interface{ Scan(...any) error }) (*model.RecipeIngredient, error) {
	var ing model.RecipeIngredient
	var synced int
	err := scanner.Scan(&ing.ID, &ing.RecipeID, &ing.FoodItemID, &ing.Quantity, &ing.Unit, &ing.Notes, &synced)
	if err != nil {
		return nil, err
	}
	ing.Synced = synced != 0
	return &ing, nil
}

const ingredientCols = `id, recipe_id, food_item_id, quantity, unit, notes, synced`

func (s *RecipeStore) ListIngredients(recipeID string) ([]model.RecipeIngredient, error) {
	rows, err := s.db.Query(`SELECT `+ingredientCols+` FROM recipe_ingredients WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []model.RecipeIngredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, *ing)
	}
	return ingredients, rows.Err()
}

func (s *RecipeStore) GetIngredientByID(id string) (*model.RecipeIngredient, error) {
	row := s.db.QueryRow(`SELECT `+ingredientCols+` FROM recipe_ingredients WHERE id = ?`, id)
	ing, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}

func (s *RecipeStore) InsertIngredient(ing model.RecipeIngredient) (*model.RecipeIngredient, error) {
	if ing.ID == "" {
		ing.ID = model.NewTempID()
	}
	_, err := s.db.Exec(
		`INSERT INTO recipe_ingredients (`+ingredientCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ing.ID, ing.RecipeID, ing.FoodItemID, ing.Quantity, ing.Unit, ing.Notes, boolToInt(ing.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert ingredient: %w", err)
	}
	return s.GetIngredientByID(ing.ID)
}

func (s *RecipeStore) DeleteIngredient(id string) error {
	if _, err := s.db.Exec(`DELETE FROM recipe_ingredients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete ingredient: %w", err)
	}
	return nil
}
