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

type ReadyMealHandler struct {
	planner *planner.Planner
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewReadyMealHandler(pl *planner.Planner, hub *websocket.Hub, logger *slog.Logger) *ReadyMealHandler {
	return &ReadyMealHandler{planner: pl, hub: hub, logger: logger}
}

func (h *ReadyMealHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *ReadyMealHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		meals []model.ReadyMeal
		err   error
	)
	if r.URL.Query().Get("in_stock") == "true" {
		meals, err = h.planner.ReadyMealsInStock()
	} else {
		meals, err = h.planner.ReadyMeals()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ready meals")
		return
	}
	if meals == nil {
		meals = []model.ReadyMeal{}
	}
	writeJSON(w, http.StatusOK, meals)
}

func (h *ReadyMealHandler) Get(w http.ResponseWriter, r *http.Request) {
	meal, err := h.planner.ReadyMeal(idParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get ready meal")
		return
	}
	if meal == nil {
		writeError(w, http.StatusNotFound, "ready meal not found")
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

func (h *ReadyMealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var meal model.ReadyMeal
	if err := json.NewDecoder(r.Body).Decode(&meal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	meal.Name = strings.TrimSpace(meal.Name)
	if meal.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.planner.CreateReadyMeal(meal)
	if err != nil {
		h.logger.Error("create ready meal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create ready meal")
		return
	}
	h.broadcast(websocket.NewMessage("ready_meal", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReadyMealHandler) Update(w http.ResponseWriter, r *http.Request) {
	var meal model.ReadyMeal
	if err := json.NewDecoder(r.Body).Decode(&meal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	meal.ID = idParam(r)

	updated, err := h.planner.UpdateReadyMeal(meal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update ready meal")
		return
	}
	h.broadcast(websocket.NewMessage("ready_meal", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReadyMealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.DeleteReadyMeal(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete ready meal")
		return
	}
	h.broadcast(websocket.NewMessage("ready_meal", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ReadyMealHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	meal, err := h.planner.SetReadyMealStock(idParam(r), req.InStock)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}
	h.broadcast(websocket.NewMessage("ready_meal", "updated", meal.ID, nil))
	writeJSON(w, http.StatusOK, meal)
}

func (h *ReadyMealHandler) Rate(w http.ResponseWriter, r *http.Request) {
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
		ReadyMealID: &id,
		Rating:      req.Rating,
		Comment:     req.Comment,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.broadcast(websocket.NewMessage("ready_meal", "updated", id, nil))
	writeJSON(w, http.StatusOK, saved)
}
