package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/websocket"
)

type ShoppingHandler struct {
	planner *planner.Planner
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewShoppingHandler(pl *planner.Planner, hub *websocket.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{planner: pl, hub: hub, logger: logger}
}

func (h *ShoppingHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.planner.ShoppingLists()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shopping lists")
		return
	}
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ShoppingHandler) Get(w http.ResponseWriter, r *http.Request) {
	list, err := h.planner.ShoppingList(idParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get shopping list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "shopping list not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type generateRequest struct {
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	OutOfStock bool   `json:"include_out_of_stock"`
}

// Generate serves POST /api/shopping-lists/generate.
func (h *ShoppingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	list, err := h.planner.GenerateShoppingList(planner.GenerateOptions{
		Name:       req.Name,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		OutOfStock: req.OutOfStock,
	})
	if err != nil {
		h.logger.Error("generate shopping list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate list")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list", "created", list.ID, nil))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.DeleteShoppingList(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ShoppingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	list, err := h.planner.SetShoppingListCompleted(idParam(r), req.Completed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update list")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list", "updated", list.ID, nil))
	writeJSON(w, http.StatusOK, list)
}

func (h *ShoppingHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item model.ShoppingListItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item.ShoppingListID = r.PathValue("list_id")
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	added, err := h.planner.AddShoppingItem(item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list_item", "created", added.ID, nil))
	writeJSON(w, http.StatusCreated, added)
}

// ToggleItem flips the purchased flag; buying a tracked pantry product also
// restocks it.
func (h *ShoppingHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.planner.ToggleShoppingItem(idParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list_item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.RemoveShoppingItem(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list_item", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ShoppingHandler) ClearPurchased(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("list_id")
	if err := h.planner.ClearPurchased(listID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear purchased items")
		return
	}
	h.broadcast(websocket.NewMessage("shopping_list", "updated", listID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
