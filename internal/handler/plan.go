package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/larder-app/larder/internal/fitbit"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/websocket"
)

type PlanHandler struct {
	planner *planner.Planner
	fitbit  *fitbit.Client
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewPlanHandler(pl *planner.Planner, fb *fitbit.Client, hub *websocket.Hub, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{planner: pl, fitbit: fb, hub: hub, logger: logger}
}

func (h *PlanHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// GetByDate serves /api/plans/{date}, creating the day's plan on first
// access.
func (h *PlanHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.PlanForDate(r.PathValue("date"))
	if err != nil {
		h.logger.Error("get plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get plan")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// List serves /api/plans?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	plans, err := h.planner.PlansForRange(start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []model.MealPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

type copyPlanRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func (h *PlanHandler) Copy(w http.ResponseWriter, r *http.Request) {
	var req copyPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FromDate == "" || req.ToDate == "" {
		writeError(w, http.StatusBadRequest, "from_date and to_date are required")
		return
	}

	plan, err := h.planner.CopyPlan(req.FromDate, req.ToDate)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.broadcast(websocket.NewMessage("meal_plan", "created", plan.ID, nil))
	writeJSON(w, http.StatusCreated, plan)
}

type completeRequest struct {
	Completed bool `json:"completed"`
}

func (h *PlanHandler) CompleteMeal(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	meal, err := h.planner.SetMealCompleted(idParam(r), req.Completed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update meal")
		return
	}
	h.broadcast(websocket.NewMessage("meal", "updated", meal.ID, nil))
	writeJSON(w, http.StatusOK, meal)
}

func (h *PlanHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item model.MealItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item.MealID = r.PathValue("meal_id")

	added, err := h.planner.AddItem(item)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.broadcast(websocket.NewMessage("meal_item", "created", added.ID, nil))
	writeJSON(w, http.StatusCreated, added)
}

type mealItemRequest struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Servings int     `json:"servings"`
	Notes    string  `json:"notes"`
}

func (h *PlanHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req mealItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.planner.UpdateItem(idParam(r), req.Quantity, req.Unit, req.Servings, req.Notes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	h.broadcast(websocket.NewMessage("meal_item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *PlanHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.planner.RemoveItem(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	h.broadcast(websocket.NewMessage("meal_item", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Nutrition serves /api/plans/{date}/nutrition.
func (h *PlanHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	totals, err := h.planner.DayNutrition(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute nutrition")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// Suggestions serves /api/suggestions?meal_type=dinner.
func (h *PlanHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.planner.Suggestions(r.URL.Query().Get("meal_type"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load suggestions")
		return
	}
	if suggestions == nil {
		suggestions = []model.RatedMeal{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// PushFitbit serves /api/plans/{date}/fitbit, logging the day's completed
// meals to the fitness tracker.
func (h *PlanHandler) PushFitbit(w http.ResponseWriter, r *http.Request) {
	if h.fitbit == nil {
		writeError(w, http.StatusServiceUnavailable, "fitbit not configured")
		return
	}

	pushed, err := h.fitbit.PushDay(r.Context(), r.PathValue("date"))
	if err != nil {
		h.logger.Error("fitbit push", "error", err)
		writeError(w, http.StatusBadGateway, "fitbit push failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pushed": pushed})
}
