package openfood

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/larder-app/larder/internal/model"
)

func newTestServer(t *testing.T, barcode, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := fmt.Sprintf("/product/%s.json", barcode)
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestLookupMapsProduct(t *testing.T) {
	c := newTestServer(t, "5000157024671", `{
		"status": 1,
		"product": {
			"product_name": "Baked Beans",
			"brands": "Heinz",
			"generic_name": "Beans in tomato sauce",
			"serving_size": "207g",
			"serving_quantity": 207,
			"image_url": "https://images.example/beans.jpg",
			"countries": "United Kingdom,France",
			"nutriments": {
				"energy-kcal_100g": 81,
				"proteins_100g": 4.7,
				"carbohydrates_100g": 12.9,
				"fat_100g": 0.2,
				"fiber_100g": 4.1,
				"sugars_100g": 4.4,
				"sodium_100g": 0.24
			}
		}
	}`)

	item, err := c.Lookup(context.Background(), "5000157024671")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if item.Name != "Baked Beans" || item.Brand != "Heinz" {
		t.Errorf("item = %+v", item)
	}
	if item.Barcode != "5000157024671" {
		t.Errorf("barcode = %s", item.Barcode)
	}
	if item.ServingSizeGrams != 207 {
		t.Errorf("serving grams = %v", item.ServingSizeGrams)
	}
	if item.CaloriesPer100g != 81 || item.ProteinG != 4.7 {
		t.Errorf("nutrition = %+v", item)
	}
	// Catalog sodium is grams per 100g, stored as milligrams.
	if item.SodiumMg != 240 {
		t.Errorf("sodium = %v mg, want 240", item.SodiumMg)
	}
	if !item.IsUKProduct {
		t.Error("countries include United Kingdom")
	}
	if item.Source != model.SourceOpenFoodFacts {
		t.Errorf("source = %s", item.Source)
	}
	if item.IsUserCreated || !item.InStock {
		t.Errorf("flags = %+v", item)
	}
}

func TestLookupDefaults(t *testing.T) {
	c := newTestServer(t, "5000157024671", `{"status": 1, "product": {"countries": "France"}}`)

	item, err := c.Lookup(context.Background(), "5000157024671")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if item.Name != "Unknown Product" {
		t.Errorf("name = %q", item.Name)
	}
	if item.ServingSizeGrams != 100 {
		t.Errorf("serving grams = %v, want default 100", item.ServingSizeGrams)
	}
	if item.IsUKProduct {
		t.Error("France-only product should not be flagged UK")
	}
}

func TestLookupNotFound(t *testing.T) {
	c := newTestServer(t, "0000000000000", `{"status": 0, "status_verbose": "product not found"}`)

	_, err := c.Lookup(context.Background(), "0000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Lookup(context.Background(), "5000157024671")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want transport error", err)
	}
}
