package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/larder-app/larder/internal/barcode"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/websocket"
)

type FoodHandler struct {
	planner  *planner.Planner
	resolver *barcode.Resolver
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFoodHandler(pl *planner.Planner, resolver *barcode.Resolver, hub *websocket.Hub, logger *slog.Logger) *FoodHandler {
	return &FoodHandler{planner: pl, resolver: resolver, hub: hub, logger: logger}
}

func (h *FoodHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// List serves /api/foods. With ?q= it searches by name; with ?meal_type= it
// filters; otherwise it returns the user's own items.
func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		foods []model.FoodItem
		err   error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		foods, err = h.planner.SearchFoods(r.URL.Query().Get("q"), 0)
	case r.URL.Query().Get("meal_type") != "":
		foods, err = h.planner.FoodsByMealType(r.URL.Query().Get("meal_type"))
	default:
		foods, err = h.planner.UserFoods()
	}
	if err != nil {
		h.logger.Error("list foods", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list foods")
		return
	}
	if foods == nil {
		foods = []model.FoodItem{}
	}
	writeJSON(w, http.StatusOK, foods)
}

func (h *FoodHandler) Get(w http.ResponseWriter, r *http.Request) {
	food, err := h.planner.Food(idParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get food")
		return
	}
	if food == nil {
		writeError(w, http.StatusNotFound, "food not found")
		return
	}
	writeJSON(w, http.StatusOK, food)
}

func (h *FoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.FoodItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.planner.CreateFood(item)
	if err != nil {
		h.logger.Error("create food", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create food")
		return
	}
	h.broadcast(websocket.NewMessage("food_item", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *FoodHandler) Update(w http.ResponseWriter, r *http.Request) {
	var item model.FoodItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item.ID = idParam(r)

	updated, err := h.planner.UpdateFood(item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update food")
		return
	}
	h.broadcast(websocket.NewMessage("food_item", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *FoodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.DeleteFood(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete food")
		return
	}
	h.broadcast(websocket.NewMessage("food_item", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type stockRequest struct {
	InStock bool `json:"in_stock"`
}

func (h *FoodHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	food, err := h.planner.SetFoodStock(idParam(r), req.InStock)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}
	h.broadcast(websocket.NewMessage("food_item", "updated", food.ID, nil))
	writeJSON(w, http.StatusOK, food)
}

// Lookup serves /api/barcode/{code}: local mirror, then the shared backend,
// then Open Food Facts.
func (h *FoodHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	item, err := h.resolver.Resolve(r.Context(), code)
	if errors.Is(err, barcode.ErrInvalidBarcode) {
		writeError(w, http.StatusBadRequest, "invalid barcode")
		return
	}
	if errors.Is(err, barcode.ErrNotFound) {
		writeError(w, http.StatusNotFound, "barcode not found")
		return
	}
	if err != nil {
		h.logger.Error("barcode lookup", "barcode", code, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, item)
}
