package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/larder-app/larder/internal/model"
)

func TestFoodByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/food_items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("barcode"); got != "eq.5000157024671" {
			t.Errorf("barcode filter = %q", got)
		}
		if r.Header.Get("apikey") == "" || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("auth headers missing")
		}
		fmt.Fprint(w, `[{"id": "canon-1", "name": "Baked Beans", "barcode": "5000157024671"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	item, err := c.FoodByBarcode(context.Background(), "5000157024671")
	if err != nil {
		t.Fatalf("food by barcode: %v", err)
	}
	if item.ID != "canon-1" || item.Name != "Baked Beans" {
		t.Errorf("item = %+v", item)
	}
}

func TestFoodByBarcodeEmptyResultIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "test-key").FoodByBarcode(context.Background(), "5000157024671")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertReturnsCanonicalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `[{"id": "canon-9", "name": "Oats"}]`)
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, "test-key").Insert(context.Background(), "food_items", json.RawMessage(`{"name":"Oats"}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != "canon-9" {
		t.Errorf("id = %q", id)
	}
}

func TestInsertFoodConflictReReadsByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		case http.MethodGet:
			fmt.Fprint(w, `[{"id": "canon-2", "name": "Baked Beans", "barcode": "5000157024671"}]`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	item, err := c.InsertFood(context.Background(), model.FoodItem{
		Name: "Baked Beans", Barcode: "5000157024671",
	})
	if err != nil {
		t.Fatalf("insert food: %v", err)
	}
	if item.ID != "canon-2" {
		t.Errorf("item = %+v, want the existing remote row", item)
	}
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.canon-1" {
			t.Errorf("id filter = %q", got)
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "test-key").Update(context.Background(), "food_items", "canon-1", json.RawMessage(`{"name":"X"}`))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAbsentRowSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "test-key").Delete(context.Background(), "food_items", "canon-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestStripLocalFields(t *testing.T) {
	payload := json.RawMessage(`{
		"id": "temp_abc",
		"name": "Oats",
		"synced": false,
		"created_at": "2026-01-01T00:00:00Z",
		"updated_at": "2026-01-01T00:00:00Z"
	}`)

	var m map[string]any
	if err := json.Unmarshal(StripLocalFields(payload), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "synced", "created_at", "updated_at"} {
		if _, ok := m[key]; ok {
			t.Errorf("field %q should be stripped", key)
		}
	}
	if m["name"] != "Oats" {
		t.Errorf("name = %v", m["name"])
	}

	// Canonical ids survive; only temporary ones are dropped.
	var kept map[string]any
	json.Unmarshal(StripLocalFields(json.RawMessage(`{"id": "canon-1", "name": "Oats"}`)), &kept)
	if kept["id"] != "canon-1" {
		t.Errorf("id = %v, want canon-1", kept["id"])
	}
}
