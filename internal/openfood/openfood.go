// Package openfood is a read-only client for the Open Food Facts product
// catalog, the external fallback tier of barcode resolution.
package openfood

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/larder-app/larder/internal/model"
)

const defaultBaseURL = "https://uk.openfoodfacts.org/api/v0"

// ErrNotFound reports that the catalog has no product for the barcode.
var ErrNotFound = fmt.Errorf("openfood: product not found")

// Client fetches product records by barcode.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// productResponse mirrors the catalog's lookup envelope. Status 1 means
// found; anything else is a miss.
type productResponse struct {
	Status  int     `json:"status"`
	Product product `json:"product"`
}

type product struct {
	ProductName     string     `json:"product_name"`
	Brands          string     `json:"brands"`
	GenericName     string     `json:"generic_name"`
	ServingSize     string     `json:"serving_size"`
	ServingQuantity float64    `json:"serving_quantity"`
	ImageURL        string     `json:"image_url"`
	Countries       string     `json:"countries"`
	Nutriments      nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal100g float64 `json:"energy-kcal_100g"`
	Proteins100g   float64 `json:"proteins_100g"`
	Carbs100g      float64 `json:"carbohydrates_100g"`
	Fat100g        float64 `json:"fat_100g"`
	Fiber100g      float64 `json:"fiber_100g"`
	Sugars100g     float64 `json:"sugars_100g"`
	Sodium100g     float64 `json:"sodium_100g"`
}

// Lookup fetches a product by barcode and maps it to the food item shape.
// Missing nutrition fields default to 0, missing descriptive fields to the
// empty string, and the serving size to 100g.
func (c *Client) Lookup(ctx context.Context, barcode string) (*model.FoodItem, error) {
	url := fmt.Sprintf("%s/product/%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product lookup: status %d", resp.StatusCode)
	}

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if pr.Status != 1 {
		return nil, ErrNotFound
	}

	item := mapProduct(barcode, pr.Product)
	return &item, nil
}

func mapProduct(barcode string, p product) model.FoodItem {
	name := p.ProductName
	if name == "" {
		name = "Unknown Product"
	}
	servingGrams := p.ServingQuantity
	if servingGrams == 0 {
		servingGrams = 100
	}

	return model.FoodItem{
		Barcode:          barcode,
		Name:             name,
		Brand:            p.Brands,
		Description:      p.GenericName,
		ServingSize:      p.ServingSize,
		ServingSizeGrams: servingGrams,
		CaloriesPer100g:  p.Nutriments.EnergyKcal100g,
		ProteinG:         p.Nutriments.Proteins100g,
		CarbsG:           p.Nutriments.Carbs100g,
		FatG:             p.Nutriments.Fat100g,
		FiberG:           p.Nutriments.Fiber100g,
		SugarG:           p.Nutriments.Sugars100g,
		SodiumMg:         p.Nutriments.Sodium100g * 1000,
		IsUserCreated:    false,
		Source:           model.SourceOpenFoodFacts,
		IsUKProduct:      isUKProduct(p.Countries),
		ImageURL:         p.ImageURL,
		InStock:          true,
	}
}

// isUKProduct derives the country display hint from the catalog's country
// list. No country data means no better signal, so default to true.
func isUKProduct(countries string) bool {
	if countries == "" {
		return true
	}
	return strings.Contains(countries, "United Kingdom")
}
