package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

// --- List methods ---

func scanShoppingList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	var start, end sql.NullString
	var completed, synced int
	err := scanner.Scan(&l.ID, &l.UserID, &l.Name, &start, &end, &completed, &l.CreatedAt, &l.UpdatedAt, &synced)
	if err != nil {
		return nil, err
	}
	l.StartDate = strPtr(start)
	l.EndDate = strPtr(end)
	l.IsCompleted = completed != 0
	l.Synced = synced != 0
	return &l, nil
}

const shoppingListCols = `id, user_id, name, start_date, end_date, is_completed, created_at, updated_at, synced`

func (s *ShoppingStore) GetListByID(id string) (*model.ShoppingList, error) {
	row := s.db.QueryRow(`SELECT `+shoppingListCols+` FROM shopping_lists WHERE id = ?`, id)
	l, err := scanShoppingList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	items, err := s.ListItems(id)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return l, nil
}

func (s *ShoppingStore) ListByUser(userID string) ([]model.ShoppingList, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingListCols+` FROM shopping_lists WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func (s *ShoppingStore) InsertList(l model.ShoppingList) (*model.ShoppingList, error) {
	if l.ID == "" {
		l.ID = model.NewTempID()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO shopping_lists (`+shoppingListCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, nullString(l.StartDate), nullString(l.EndDate),
		boolToInt(l.IsCompleted), l.CreatedAt, l.UpdatedAt, boolToInt(l.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping list: %w", err)
	}
	return s.GetListByID(l.ID)
}

func (s *ShoppingStore) SetListCompleted(id string, completed bool) (*model.ShoppingList, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_lists SET is_completed = ?, updated_at = ?, synced = 0 WHERE id = ?`,
		boolToInt(completed), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set list completed: %w", err)
	}
	return s.GetListByID(id)
}

func (s *ShoppingStore) DeleteList(id string) error {
	if _, err := s.db.Exec(`DELETE FROM shopping_lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shopping list: %w", err)
	}
	return nil
}

// --- Item methods ---

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var it model.ShoppingListItem
	var foodID, readyMealID sql.NullString
	var purchased, outOfStock, synced int
	err := scanner.Scan(
		&it.ID, &it.ShoppingListID, &foodID, &readyMealID, &it.Name,
		&it.Quantity, &it.Unit, &purchased, &it.Category, &it.Notes,
		&outOfStock, &it.FoodItemType, &synced,
	)
	if err != nil {
		return nil, err
	}
	it.FoodItemID = strPtr(foodID)
	it.ReadyMealID = strPtr(readyMealID)
	it.IsPurchased = purchased != 0
	it.IsOutOfStock = outOfStock != 0
	it.Synced = synced != 0
	return &it, nil
}

const shoppingItemCols = `id, shopping_list_id, food_item_id, ready_meal_id, name, quantity, unit,
	is_purchased, category, notes, is_out_of_stock, food_item_type, synced`

func (s *ShoppingStore) GetItemByID(id string) (*model.ShoppingListItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingItemCols+` FROM shopping_list_items WHERE id = ?`, id)
	it, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return it, nil
}

func (s *ShoppingStore) ListItems(listID string) ([]model.ShoppingListItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingItemCols+` FROM shopping_list_items WHERE shopping_list_id = ? ORDER BY is_purchased ASC, category ASC, name ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingListItem
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) InsertItem(it model.ShoppingListItem) (*model.ShoppingListItem, error) {
	if it.ID == "" {
		it.ID = model.NewTempID()
	}
	if it.FoodItemType == "" {
		it.FoodItemType = model.ShoppingItemFood
	}
	_, err := s.db.Exec(
		`INSERT INTO shopping_list_items (`+shoppingItemCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.ShoppingListID, nullString(it.FoodItemID), nullString(it.ReadyMealID), it.Name,
		it.Quantity, it.Unit, boolToInt(it.IsPurchased), it.Category, it.Notes,
		boolToInt(it.IsOutOfStock), it.FoodItemType, boolToInt(it.Synced),
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	return s.GetItemByID(it.ID)
}

// TogglePurchased flips the purchased flag and marks the row unsynced.
func (s *ShoppingStore) TogglePurchased(id string) (*model.ShoppingListItem, error) {
	it, err := s.GetItemByID(id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, nil
	}
	_, err = s.db.Exec(
		`UPDATE shopping_list_items SET is_purchased = ?, synced = 0 WHERE id = ?`,
		boolToInt(!it.IsPurchased), id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle purchased: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) DeleteItem(id string) error {
	if _, err := s.db.Exec(`DELETE FROM shopping_list_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// ClearPurchased removes purchased items from a list and returns their ids
// so the caller can enqueue the deletes.
func (s *ShoppingStore) ClearPurchased(listID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM shopping_list_items WHERE shopping_list_id = ? AND is_purchased = 1`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchased: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purchased id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(
		`DELETE FROM shopping_list_items WHERE shopping_list_id = ? AND is_purchased = 1`,
		listID,
	); err != nil {
		return nil, fmt.Errorf("clear purchased: %w", err)
	}
	return ids, nil
}
