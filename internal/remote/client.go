// Package remote talks to the hosted backend's table-oriented REST API
// (PostgREST conventions: filtered selects, insert/update with returning).
// It is the authority for all mirrored entities and reachable only when
// online.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/larder-app/larder/internal/model"
)

// ErrNotFound reports that a query matched no row. It is a first-class
// outcome, distinguishable from transport errors.
var ErrNotFound = fmt.Errorf("remote: not found")

// ErrConflict reports a uniqueness violation on insert (e.g. two devices
// creating the same barcode). The remote table's constraint is the actual
// dedup safety net; callers re-read by natural key.
var ErrConflict = fmt.Errorf("remote: conflict")

// API is the surface the sync processor and barcode tiers consume. Tests
// substitute fakes.
type API interface {
	FoodByBarcode(ctx context.Context, barcode string) (*model.FoodItem, error)
	InsertFood(ctx context.Context, item model.FoodItem) (*model.FoodItem, error)
	Insert(ctx context.Context, table string, payload json.RawMessage) (id string, err error)
	Update(ctx context.Context, table, id string, payload json.RawMessage) error
	Delete(ctx context.Context, table, id string) error
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// BaseURL exposes the configured endpoint, used by the connectivity probe.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/rest/v1/" + table
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// FoodByBarcode fetches a single food item by its natural key.
func (c *Client) FoodByBarcode(ctx context.Context, barcode string) (*model.FoodItem, error) {
	q := url.Values{}
	q.Set("barcode", "eq."+barcode)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL("food_items")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("food by barcode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food by barcode: status %d", resp.StatusCode)
	}

	var items []model.FoodItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode food: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// InsertFood creates a food item and returns the canonical row. A conflict
// on the barcode constraint falls back to re-reading the existing row, so
// concurrent double-scans converge on one record.
func (c *Client) InsertFood(ctx context.Context, item model.FoodItem) (*model.FoodItem, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal food: %w", err)
	}
	row, err := c.insertReturning(ctx, "food_items", StripLocalFields(payload))
	if err == ErrConflict && item.Barcode != "" {
		return c.FoodByBarcode(ctx, item.Barcode)
	}
	if err != nil {
		return nil, err
	}

	var out model.FoodItem
	if err := json.Unmarshal(row, &out); err != nil {
		return nil, fmt.Errorf("decode inserted food: %w", err)
	}
	return &out, nil
}

// Insert creates a row and returns the canonical identifier the backend
// assigned.
func (c *Client) Insert(ctx context.Context, table string, payload json.RawMessage) (string, error) {
	row, err := c.insertReturning(ctx, table, payload)
	if err != nil {
		return "", err
	}
	var idRow struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(row, &idRow); err != nil {
		return "", fmt.Errorf("decode inserted row: %w", err)
	}
	if idRow.ID == "" {
		return "", fmt.Errorf("insert into %s: no id in response", table)
	}
	return idRow.ID, nil
}

func (c *Client) insertReturning(ctx context.Context, table string, payload json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(table), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrConflict
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("insert into %s: status %d: %s", table, resp.StatusCode, body)
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode insert response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s: empty response", table)
	}
	return rows[0], nil
}

// Update patches a row by id.
func (c *Client) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.tableURL(table)+"?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("update %s: status %d: %s", table, resp.StatusCode, body)
	}

	if resp.StatusCode == http.StatusOK {
		var rows []json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return fmt.Errorf("decode update response: %w", err)
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes a row by id. Deleting an absent row is not an error.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.tableURL(table)+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("delete from %s: status %d: %s", table, resp.StatusCode, body)
	}
	return nil
}

// StripLocalFields drops columns that exist only in the local mirror
// (synced flag, temporary ids, client timestamps the backend assigns).
func StripLocalFields(payload json.RawMessage) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}
	delete(m, "synced")
	delete(m, "created_at")
	delete(m, "updated_at")
	if id, ok := m["id"].(string); ok && model.IsTempID(id) {
		delete(m, "id")
	}
	out, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return out
}
