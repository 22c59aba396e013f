package planner

import (
	"fmt"

	"github.com/larder-app/larder/internal/model"
)

// GenerateOptions controls what feeds into a generated shopping list.
type GenerateOptions struct {
	Name       string
	StartDate  string
	EndDate    string
	OutOfStock bool // also include everything currently out of stock
}

// GenerateShoppingList builds a list from the plans in a date range. Planned
// food items and recipe ingredients merge by food item; ready meals merge by
// product. With OutOfStock set, out-of-stock pantry items are appended too.
func (p *Planner) GenerateShoppingList(opts GenerateOptions) (*model.ShoppingList, error) {
	defer p.begin()()

	if opts.Name == "" {
		opts.Name = fmt.Sprintf("Shopping %s to %s", opts.StartDate, opts.EndDate)
	}

	type lineKey struct {
		kind string
		id   string
	}
	lines := make(map[lineKey]*model.ShoppingListItem)
	var order []lineKey

	addFood := func(food *model.FoodItem, grams float64, outOfStock bool) {
		key := lineKey{model.ShoppingItemFood, food.ID}
		if line, ok := lines[key]; ok {
			line.Quantity += grams
			return
		}
		id := food.ID
		lines[key] = &model.ShoppingListItem{
			FoodItemID:   &id,
			Name:         food.Name,
			Quantity:     grams,
			Unit:         "g",
			Category:     food.Brand,
			IsOutOfStock: outOfStock,
			FoodItemType: model.ShoppingItemFood,
		}
		order = append(order, key)
	}
	addReadyMeal := func(meal *model.ReadyMeal, count float64, outOfStock bool) {
		key := lineKey{model.ShoppingItemReadyMeal, meal.ID}
		if line, ok := lines[key]; ok {
			line.Quantity += count
			return
		}
		id := meal.ID
		lines[key] = &model.ShoppingListItem{
			ReadyMealID:  &id,
			Name:         meal.Name,
			Quantity:     count,
			Unit:         "serving",
			Category:     meal.Brand,
			IsOutOfStock: outOfStock,
			FoodItemType: model.ShoppingItemReadyMeal,
		}
		order = append(order, key)
	}

	plans, err := p.plans.ListPlansForRange(p.userID, opts.StartDate, opts.EndDate)
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		for _, meal := range plan.Meals {
			for _, item := range meal.Items {
				if err := p.collectItem(item, addFood, addReadyMeal); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.OutOfStock {
		foods, err := p.foods.ListOutOfStock(p.userID)
		if err != nil {
			return nil, err
		}
		for i := range foods {
			addFood(&foods[i], 0, true)
		}
		meals, err := p.readyMeals.ListOutOfStock(p.userID)
		if err != nil {
			return nil, err
		}
		for i := range meals {
			addReadyMeal(&meals[i], 1, true)
		}
	}

	list, err := p.shopping.InsertList(model.ShoppingList{
		UserID:    p.userID,
		Name:      opts.Name,
		StartDate: &opts.StartDate,
		EndDate:   &opts.EndDate,
	})
	if err != nil {
		return nil, err
	}
	if err := p.track("shopping_lists", list.ID, model.OpInsert, list); err != nil {
		return nil, err
	}

	for _, key := range order {
		line := lines[key]
		line.ShoppingListID = list.ID
		inserted, err := p.shopping.InsertItem(*line)
		if err != nil {
			return nil, err
		}
		if err := p.track("shopping_list_items", inserted.ID, model.OpInsert, inserted); err != nil {
			return nil, err
		}
		list.Items = append(list.Items, *inserted)
	}
	return list, nil
}

// collectItem expands one planned meal item into shopping lines. Recipes
// contribute their ingredients scaled by the planned serving count.
func (p *Planner) collectItem(
	item model.MealItem,
	addFood func(*model.FoodItem, float64, bool),
	addReadyMeal func(*model.ReadyMeal, float64, bool),
) error {
	servings := item.Servings
	if servings <= 0 {
		servings = 1
	}

	switch {
	case item.FoodItemID != nil && *item.FoodItemID != "":
		food, err := p.foods.GetByID(*item.FoodItemID)
		if err != nil || food == nil {
			return err
		}
		grams := item.Quantity
		if grams <= 0 {
			grams = food.ServingSizeGrams * float64(servings)
		}
		addFood(food, grams, !food.InStock)

	case item.RecipeID != nil && *item.RecipeID != "":
		recipe, err := p.recipes.GetByID(*item.RecipeID)
		if err != nil || recipe == nil {
			return err
		}
		yield := recipe.Servings
		if yield <= 0 {
			yield = 1
		}
		scale := float64(servings) / float64(yield)

		ingredients, err := p.recipes.ListIngredients(recipe.ID)
		if err != nil {
			return err
		}
		for _, ing := range ingredients {
			food, err := p.foods.GetByID(ing.FoodItemID)
			if err != nil {
				return err
			}
			if food == nil {
				continue
			}
			addFood(food, ing.Quantity*scale, !food.InStock)
		}

	case item.ReadyMealID != nil && *item.ReadyMealID != "":
		meal, err := p.readyMeals.GetByID(*item.ReadyMealID)
		if err != nil || meal == nil {
			return err
		}
		addReadyMeal(meal, float64(servings), !meal.InStock)
	}
	return nil
}

// --- Shopping list operations ---

func (p *Planner) ShoppingLists() ([]model.ShoppingList, error) {
	return p.shopping.ListByUser(p.userID)
}

func (p *Planner) ShoppingList(id string) (*model.ShoppingList, error) {
	return p.shopping.GetListByID(id)
}

func (p *Planner) AddShoppingItem(item model.ShoppingListItem) (*model.ShoppingListItem, error) {
	defer p.begin()()

	inserted, err := p.shopping.InsertItem(item)
	if err != nil {
		return nil, err
	}
	if err := p.track("shopping_list_items", inserted.ID, model.OpInsert, inserted); err != nil {
		return nil, err
	}
	return inserted, nil
}

// ToggleShoppingItem flips an item's purchased flag. Buying an item that
// tracks a pantry product also restocks that product.
func (p *Planner) ToggleShoppingItem(id string) (*model.ShoppingListItem, error) {
	defer p.begin()()

	item, err := p.shopping.TogglePurchased(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("shopping item %s not found", id)
	}
	if err := p.track("shopping_list_items", item.ID, model.OpUpdate, item); err != nil {
		return nil, err
	}

	if item.IsPurchased {
		switch {
		case item.FoodItemID != nil && *item.FoodItemID != "":
			food, err := p.foods.SetStockStatus(*item.FoodItemID, true)
			if err != nil {
				return nil, err
			}
			if food != nil {
				if err := p.track("food_items", food.ID, model.OpUpdate, food); err != nil {
					return nil, err
				}
			}
		case item.ReadyMealID != nil && *item.ReadyMealID != "":
			meal, err := p.readyMeals.SetStockStatus(*item.ReadyMealID, true)
			if err != nil {
				return nil, err
			}
			if meal != nil {
				if err := p.track("ready_meals", meal.ID, model.OpUpdate, meal); err != nil {
					return nil, err
				}
			}
		}
	}
	return item, nil
}

func (p *Planner) RemoveShoppingItem(id string) error {
	defer p.begin()()

	if err := p.shopping.DeleteItem(id); err != nil {
		return err
	}
	return p.track("shopping_list_items", id, model.OpDelete, nil)
}

// ClearPurchased removes every purchased item from a list.
func (p *Planner) ClearPurchased(listID string) error {
	defer p.begin()()

	ids, err := p.shopping.ClearPurchased(listID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := p.track("shopping_list_items", id, model.OpDelete, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) SetShoppingListCompleted(id string, completed bool) (*model.ShoppingList, error) {
	defer p.begin()()

	list, err := p.shopping.SetListCompleted(id, completed)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("shopping list %s not found", id)
	}
	if err := p.track("shopping_lists", list.ID, model.OpUpdate, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Planner) DeleteShoppingList(id string) error {
	defer p.begin()()

	list, err := p.shopping.GetListByID(id)
	if err != nil {
		return err
	}
	if list == nil {
		return nil
	}
	for _, item := range list.Items {
		if err := p.track("shopping_list_items", item.ID, model.OpDelete, nil); err != nil {
			return err
		}
	}
	if err := p.shopping.DeleteList(id); err != nil {
		return err
	}
	return p.track("shopping_lists", id, model.OpDelete, nil)
}
