package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type RatingStore struct {
	db *sql.DB
}

func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{db: db}
}

func scanRating(scanner interface{ Scan(...any) error }) (*model.MealRating, error) {
	var r model.MealRating
	var recipeID, readyMealID sql.NullString
	var synced int
	err := scanner.Scan(
		&r.ID, &r.UserID, &recipeID, &readyMealID, &r.Rating, &r.Comment,
		&r.CreatedAt, &r.UpdatedAt, &synced,
	)
	if err != nil {
		return nil, err
	}
	r.RecipeID = strPtr(recipeID)
	r.ReadyMealID = strPtr(readyMealID)
	r.Synced = synced != 0
	return &r, nil
}

const ratingCols = `id, user_id, recipe_id, ready_meal_id, rating, comment, created_at, updated_at, synced`

func (s *RatingStore) GetByID(id string) (*model.MealRating, error) {
	row := s.db.QueryRow(`SELECT `+ratingCols+` FROM meal_ratings WHERE id = ?`, id)
	r, err := scanRating(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return r, nil
}

func (s *RatingStore) ListForRecipe(recipeID string) ([]model.MealRating, error) {
	return s.list(`recipe_id = ?`, recipeID)
}

func (s *RatingStore) ListForReadyMeal(readyMealID string) ([]model.MealRating, error) {
	return s.list(`ready_meal_id = ?`, readyMealID)
}

func (s *RatingStore) list(where string, args ...any) ([]model.MealRating, error) {
	rows, err := s.db.Query(`SELECT `+ratingCols+` FROM meal_ratings WHERE `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []model.MealRating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, *r)
	}
	return ratings, rows.Err()
}

// Upsert inserts the rating, or replaces the user's existing rating of the
// same recipe or ready meal.
func (s *RatingStore) Upsert(r model.MealRating) (*model.MealRating, error) {
	var existing *model.MealRating
	var err error
	switch {
	case r.RecipeID != nil:
		existing, err = s.findByUser(r.UserID, `recipe_id = ?`, *r.RecipeID)
	case r.ReadyMealID != nil:
		existing, err = s.findByUser(r.UserID, `ready_meal_id = ?`, *r.ReadyMealID)
	default:
		return nil, fmt.Errorf("rating must reference a recipe or a ready meal")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		_, err := s.db.Exec(
			`UPDATE meal_ratings SET rating = ?, comment = ?, updated_at = ?, synced = 0 WHERE id = ?`,
			r.Rating, r.Comment, now, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update rating: %w", err)
		}
		return s.GetByID(existing.ID)
	}

	if r.ID == "" {
		r.ID = model.NewTempID()
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err = s.db.Exec(
		`INSERT INTO meal_ratings (`+ratingCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, nullString(r.RecipeID), nullString(r.ReadyMealID), r.Rating, r.Comment,
		r.CreatedAt, r.UpdatedAt, boolToInt(r.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert rating: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *RatingStore) findByUser(userID, where string, arg string) (*model.MealRating, error) {
	row := s.db.QueryRow(`SELECT `+ratingCols+` FROM meal_ratings WHERE user_id = ? AND `+where, userID, arg)
	r, err := scanRating(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return r, nil
}

func (s *RatingStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM meal_ratings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}

// Aggregate returns the rounded average rating and count for one recipe or
// ready meal, for the denormalized aggregate on the rated row.
func (s *RatingStore) Aggregate(column, id string) (avg int, count int, err error) {
	if column != "recipe_id" && column != "ready_meal_id" {
		return 0, 0, fmt.Errorf("bad rating column %q", column)
	}
	var avgF sql.NullFloat64
	err = s.db.QueryRow(
		`SELECT AVG(rating), COUNT(*) FROM meal_ratings WHERE `+column+` = ?`, id,
	).Scan(&avgF, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	if avgF.Valid {
		avg = int(math.Round(avgF.Float64))
	}
	return avg, count, nil
}

// TopRated returns the highest-rated recipes and ready meals for a meal
// type, used by meal suggestions.
func (s *RatingStore) TopRated(userID, mealType string, limit int) ([]model.RatedMeal, error) {
	rows, err := s.db.Query(
		`SELECT id, name, 'recipe' AS kind, meal_type, rating, rating_count FROM recipes
			WHERE user_id = ? AND rating IS NOT NULL AND (meal_type = ? OR meal_type IS NULL)
		UNION ALL
		SELECT id, name, 'ready_meal' AS kind, meal_type, rating, rating_count FROM ready_meals
			WHERE user_id = ? AND rating IS NOT NULL AND (meal_type = ? OR meal_type IS NULL)
		ORDER BY rating DESC, rating_count DESC
		LIMIT ?`,
		userID, mealType, userID, mealType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	defer rows.Close()

	var meals []model.RatedMeal
	for rows.Next() {
		var m model.RatedMeal
		var mealTypeCol sql.NullString
		var rating sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &mealTypeCol, &rating, &m.RatingCount); err != nil {
			return nil, fmt.Errorf("scan rated meal: %w", err)
		}
		m.MealType = strPtr(mealTypeCol)
		if rating.Valid {
			m.AvgRating = rating.Float64
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}
