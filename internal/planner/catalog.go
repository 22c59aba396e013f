package planner

import (
	"fmt"

	"github.com/larder-app/larder/internal/model"
)

// --- Food items ---

func (p *Planner) Food(id string) (*model.FoodItem, error) {
	return p.foods.GetByID(id)
}

func (p *Planner) SearchFoods(query string, limit int) ([]model.FoodItem, error) {
	if limit <= 0 {
		limit = 25
	}
	return p.foods.SearchByName(query, limit)
}

func (p *Planner) FoodsByMealType(mealType string) ([]model.FoodItem, error) {
	return p.foods.ListByMealType(p.userID, mealType)
}

func (p *Planner) UserFoods() ([]model.FoodItem, error) {
	return p.foods.ListUserCreated(p.userID)
}

// CreateFood stores a user-authored food item under a temporary id and
// queues its insert.
func (p *Planner) CreateFood(item model.FoodItem) (*model.FoodItem, error) {
	defer p.begin()()

	item.UserID = p.userID
	item.IsUserCreated = true
	item.Source = model.SourceUserCreated
	item.InStock = true

	created, err := p.foods.Create(item)
	if err != nil {
		return nil, err
	}
	if err := p.track("food_items", created.ID, model.OpInsert, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (p *Planner) UpdateFood(item model.FoodItem) (*model.FoodItem, error) {
	defer p.begin()()

	updated, err := p.foods.Update(item)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("food item %s not found", item.ID)
	}
	if err := p.track("food_items", updated.ID, model.OpUpdate, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Planner) DeleteFood(id string) error {
	defer p.begin()()

	if err := p.foods.Delete(id); err != nil {
		return err
	}
	return p.track("food_items", id, model.OpDelete, nil)
}

// SetFoodStock flips a pantry item's stock flag. Restocking stamps the
// purchase date.
func (p *Planner) SetFoodStock(id string, inStock bool) (*model.FoodItem, error) {
	defer p.begin()()

	food, err := p.foods.SetStockStatus(id, inStock)
	if err != nil {
		return nil, err
	}
	if food == nil {
		return nil, fmt.Errorf("food item %s not found", id)
	}
	if err := p.track("food_items", food.ID, model.OpUpdate, food); err != nil {
		return nil, err
	}
	return food, nil
}

// --- Recipes ---

func (p *Planner) Recipe(id string) (*model.Recipe, error) {
	recipe, err := p.recipes.GetByID(id)
	if err != nil || recipe == nil {
		return recipe, err
	}
	ingredients, err := p.recipes.ListIngredients(id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients
	return recipe, nil
}

func (p *Planner) Recipes() ([]model.Recipe, error) {
	return p.recipes.ListByUser(p.userID)
}

func (p *Planner) CreateRecipe(r model.Recipe) (*model.Recipe, error) {
	defer p.begin()()

	r.UserID = p.userID
	created, err := p.recipes.Insert(r)
	if err != nil {
		return nil, err
	}
	if err := p.track("recipes", created.ID, model.OpInsert, created); err != nil {
		return nil, err
	}

	for _, ing := range r.Ingredients {
		ing.ID = ""
		ing.RecipeID = created.ID
		inserted, err := p.recipes.InsertIngredient(ing)
		if err != nil {
			return nil, err
		}
		if err := p.track("recipe_ingredients", inserted.ID, model.OpInsert, inserted); err != nil {
			return nil, err
		}
		created.Ingredients = append(created.Ingredients, *inserted)
	}
	return created, nil
}

func (p *Planner) UpdateRecipe(r model.Recipe) (*model.Recipe, error) {
	defer p.begin()()

	updated, err := p.recipes.Update(r)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("recipe %s not found", r.ID)
	}
	if err := p.track("recipes", updated.ID, model.OpUpdate, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Planner) DeleteRecipe(id string) error {
	defer p.begin()()

	ingredients, err := p.recipes.ListIngredients(id)
	if err != nil {
		return err
	}
	for _, ing := range ingredients {
		if err := p.recipes.DeleteIngredient(ing.ID); err != nil {
			return err
		}
		if err := p.track("recipe_ingredients", ing.ID, model.OpDelete, nil); err != nil {
			return err
		}
	}
	if err := p.recipes.Delete(id); err != nil {
		return err
	}
	return p.track("recipes", id, model.OpDelete, nil)
}

func (p *Planner) AddIngredient(ing model.RecipeIngredient) (*model.RecipeIngredient, error) {
	defer p.begin()()

	inserted, err := p.recipes.InsertIngredient(ing)
	if err != nil {
		return nil, err
	}
	if err := p.track("recipe_ingredients", inserted.ID, model.OpInsert, inserted); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (p *Planner) RemoveIngredient(id string) error {
	defer p.begin()()

	if err := p.recipes.DeleteIngredient(id); err != nil {
		return err
	}
	return p.track("recipe_ingredients", id, model.OpDelete, nil)
}

// --- Ready meals ---

func (p *Planner) ReadyMeal(id string) (*model.ReadyMeal, error) {
	return p.readyMeals.GetByID(id)
}

func (p *Planner) ReadyMeals() ([]model.ReadyMeal, error) {
	return p.readyMeals.ListByUser(p.userID)
}

func (p *Planner) ReadyMealsInStock() ([]model.ReadyMeal, error) {
	return p.readyMeals.ListInStock(p.userID)
}

func (p *Planner) CreateReadyMeal(m model.ReadyMeal) (*model.ReadyMeal, error) {
	defer p.begin()()

	m.UserID = p.userID
	created, err := p.readyMeals.Insert(m)
	if err != nil {
		return nil, err
	}
	if err := p.track("ready_meals", created.ID, model.OpInsert, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (p *Planner) UpdateReadyMeal(m model.ReadyMeal) (*model.ReadyMeal, error) {
	defer p.begin()()

	updated, err := p.readyMeals.Update(m)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("ready meal %s not found", m.ID)
	}
	if err := p.track("ready_meals", updated.ID, model.OpUpdate, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Planner) DeleteReadyMeal(id string) error {
	defer p.begin()()

	if err := p.readyMeals.Delete(id); err != nil {
		return err
	}
	return p.track("ready_meals", id, model.OpDelete, nil)
}

func (p *Planner) SetReadyMealStock(id string, inStock bool) (*model.ReadyMeal, error) {
	defer p.begin()()

	meal, err := p.readyMeals.SetStockStatus(id, inStock)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, fmt.Errorf("ready meal %s not found", id)
	}
	if err := p.track("ready_meals", meal.ID, model.OpUpdate, meal); err != nil {
		return nil, err
	}
	return meal, nil
}

// --- Ratings ---

// RateMeal records a 1-5 rating of a recipe or ready meal, then refreshes
// the cached aggregate on the rated row. Re-rating replaces the user's
// previous rating.
func (p *Planner) RateMeal(rating model.MealRating) (*model.MealRating, error) {
	defer p.begin()()

	if rating.Rating < 1 || rating.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	hasRecipe := rating.RecipeID != nil && *rating.RecipeID != ""
	hasReadyMeal := rating.ReadyMealID != nil && *rating.ReadyMealID != ""
	if hasRecipe == hasReadyMeal {
		return nil, fmt.Errorf("rating must reference exactly one of recipe or ready meal")
	}
	rating.UserID = p.userID

	saved, err := p.ratings.Upsert(rating)
	if err != nil {
		return nil, err
	}
	// A fresh insert carries matching timestamps; a replaced rating keeps
	// its original creation time.
	op := model.OpInsert
	if saved.UpdatedAt.After(saved.CreatedAt) {
		op = model.OpUpdate
	}
	if err := p.track("meal_ratings", saved.ID, op, saved); err != nil {
		return nil, err
	}

	if hasRecipe {
		avg, count, err := p.ratings.Aggregate("recipe_id", *rating.RecipeID)
		if err != nil {
			return nil, err
		}
		if err := p.recipes.SetRating(*rating.RecipeID, avg, count); err != nil {
			return nil, err
		}
		recipe, err := p.recipes.GetByID(*rating.RecipeID)
		if err != nil {
			return nil, err
		}
		if recipe != nil {
			if err := p.track("recipes", recipe.ID, model.OpUpdate, recipe); err != nil {
				return nil, err
			}
		}
	} else {
		avg, count, err := p.ratings.Aggregate("ready_meal_id", *rating.ReadyMealID)
		if err != nil {
			return nil, err
		}
		if err := p.readyMeals.SetRating(*rating.ReadyMealID, avg, count); err != nil {
			return nil, err
		}
		meal, err := p.readyMeals.GetByID(*rating.ReadyMealID)
		if err != nil {
			return nil, err
		}
		if meal != nil {
			if err := p.track("ready_meals", meal.ID, model.OpUpdate, meal); err != nil {
				return nil, err
			}
		}
	}
	return saved, nil
}
