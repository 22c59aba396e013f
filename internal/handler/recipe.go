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

type RecipeHandler struct {
	planner *planner.Planner
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRecipeHandler(pl *planner.Planner, hub *websocket.Hub, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{planner: pl, hub: hub, logger: logger}
}

func (h *RecipeHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.planner.Recipes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recipes")
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.planner.Recipe(idParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recipe")
		return
	}
	if recipe == nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var recipe model.Recipe
	if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.planner.CreateRecipe(recipe)
	if err != nil {
		h.logger.Error("create recipe", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create recipe")
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var recipe model.Recipe
	if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	recipe.ID = idParam(r)

	updated, err := h.planner.UpdateRecipe(recipe)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update recipe")
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.DeleteRecipe(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete recipe")
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *RecipeHandler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	var ing model.RecipeIngredient
	if err := json.NewDecoder(r.Body).Decode(&ing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ing.RecipeID = r.PathValue("recipe_id")
	if ing.FoodItemID == "" {
		writeError(w, http.StatusBadRequest, "food_item_id is required")
		return
	}

	added, err := h.planner.AddIngredient(ing)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add ingredient")
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "updated", ing.RecipeID, nil))
	writeJSON(w, http.StatusCreated, added)
}

func (h *RecipeHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.RemoveIngredient(idParam(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete ingredient")
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "updated", r.PathValue("recipe_id"), nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Rate serves POST /api/recipes/{id}/rating and records a 1-5 rating.
func (h *RecipeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	id := idParam(r)
	saved, err := h.planner.RateMeal(model.MealRating{
		RecipeID: &id,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.broadcast(websocket.NewMessage("recipe", "updated", id, nil))
	writeJSON(w, http.StatusOK, saved)
}
