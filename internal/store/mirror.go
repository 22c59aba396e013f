package store

import (
	"database/sql"
	"fmt"
)

// Mirror performs table-generic operations on the mirrored entity tables.
// Table names are validated against the mirrored set so queue entries can
// never address arbitrary tables.
type Mirror struct {
	db *sql.DB
}

func NewMirror(db *sql.DB) *Mirror {
	return &Mirror{db: db}
}

type ref struct {
	table  string
	column string
}

// refColumns maps each mirrored table to the foreign-key columns that may
// hold one of its identifiers. Used by the temp-id rewrite cascade.
var refColumns = map[string][]ref{
	"food_items": {
		{"recipe_ingredients", "food_item_id"},
		{"meal_items", "food_item_id"},
		{"shopping_list_items", "food_item_id"},
	},
	"ready_meals": {
		{"meal_items", "ready_meal_id"},
		{"shopping_list_items", "ready_meal_id"},
		{"meal_ratings", "ready_meal_id"},
	},
	"recipes": {
		{"recipe_ingredients", "recipe_id"},
		{"meal_items", "recipe_id"},
		{"meal_ratings", "recipe_id"},
	},
	"recipe_ingredients": {},
	"meal_plans": {
		{"meals", "meal_plan_id"},
	},
	"meals": {
		{"meal_items", "meal_id"},
	},
	"meal_items": {},
	"shopping_lists": {
		{"shopping_list_items", "shopping_list_id"},
	},
	"shopping_list_items": {},
	"meal_ratings":        {},
}

// KnownTable reports whether table is one of the mirrored entity tables.
func KnownTable(table string) bool {
	_, ok := refColumns[table]
	return ok
}

func (m *Mirror) checkTable(table string) error {
	if !KnownTable(table) {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

// MarkSynced sets the synced flag on a single row.
func (m *Mirror) MarkSynced(table, id string) error {
	if err := m.checkTable(table); err != nil {
		return err
	}
	if _, err := m.db.Exec(`UPDATE `+table+` SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark synced %s: %w", table, err)
	}
	return nil
}

// DeleteRow removes a single row. Called after a remote delete is confirmed.
func (m *Mirror) DeleteRow(table, id string) error {
	if err := m.checkTable(table); err != nil {
		return err
	}
	if _, err := m.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete row %s: %w", table, err)
	}
	return nil
}

// RewriteID replaces a temporary identifier with the canonical one assigned
// by the remote store. The row itself, every foreign-key reference to it,
// and any still-queued sync entries (their record_id and JSON payloads) are
// rewritten in one transaction so no dangling temp reference survives.
func (m *Mirror) RewriteID(table, oldID, newID string) error {
	if err := m.checkTable(table); err != nil {
		return err
	}
	if oldID == newID {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rewrite: %w", err)
	}
	defer tx.Rollback()

	// The parent id changes before its references do; defer FK checks to
	// commit so the intermediate state is allowed.
	if _, err := tx.Exec(`PRAGMA defer_foreign_keys = ON`); err != nil {
		return fmt.Errorf("defer foreign keys: %w", err)
	}

	if _, err := tx.Exec(`UPDATE `+table+` SET id = ?, synced = 1 WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("rewrite id in %s: %w", table, err)
	}

	for _, r := range refColumns[table] {
		if _, err := tx.Exec(`UPDATE `+r.table+` SET `+r.column+` = ? WHERE `+r.column+` = ?`, newID, oldID); err != nil {
			return fmt.Errorf("rewrite ref %s.%s: %w", r.table, r.column, err)
		}
	}

	// Later queue entries may carry the temp id, either as their record_id
	// or embedded in a JSON payload as a foreign key.
	if _, err := tx.Exec(
		`UPDATE sync_queue SET record_id = ? WHERE record_id = ? AND table_name = ?`,
		newID, oldID, table,
	); err != nil {
		return fmt.Errorf("rewrite queue record_id: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE sync_queue SET payload = replace(payload, ?, ?) WHERE payload LIKE ?`,
		`"`+oldID+`"`, `"`+newID+`"`, `%`+oldID+`%`,
	); err != nil {
		return fmt.Errorf("rewrite queue payloads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rewrite: %w", err)
	}
	return nil
}
