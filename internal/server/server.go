// Package server wires the stores, sync machinery, and HTTP surface into
// a single local daemon.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/larder-app/larder/internal/backup"
	"github.com/larder-app/larder/internal/barcode"
	"github.com/larder-app/larder/internal/connectivity"
	"github.com/larder-app/larder/internal/fitbit"
	"github.com/larder-app/larder/internal/handler"
	"github.com/larder-app/larder/internal/middleware"
	"github.com/larder-app/larder/internal/openfood"
	"github.com/larder-app/larder/internal/planner"
	"github.com/larder-app/larder/internal/remote"
	"github.com/larder-app/larder/internal/store"
	"github.com/larder-app/larder/internal/syncq"
	ws "github.com/larder-app/larder/internal/websocket"
)

// Config holds everything the daemon needs from the environment.
type Config struct {
	UserID        string
	RemoteURL     string
	RemoteKey     string
	OpenFoodURL   string
	FitbitToken   string
	ProbeInterval time.Duration
	Backup        backup.Config
}

type Server struct {
	db        *sql.DB
	hub       *ws.Hub
	monitor   *connectivity.Monitor
	processor *syncq.Processor
	backupMgr *backup.Manager
	syncStore *store.SyncStore

	foodH      *handler.FoodHandler
	planH      *handler.PlanHandler
	shoppingH  *handler.ShoppingHandler
	recipeH    *handler.RecipeHandler
	readyMealH *handler.ReadyMealHandler
	syncH      *handler.SyncHandler

	logger *slog.Logger
}

// broadcastSyncStatus pushes the queue depth and connectivity state to
// connected clients. A store fault is logged and the push still goes out so
// the online indicator keeps tracking transitions.
func broadcastSyncStatus(queue *store.SyncStore, hub *ws.Hub, logger *slog.Logger, online bool) {
	pending, err := queue.CountPending()
	if err != nil {
		logger.Error("count pending sync entries", "error", err)
	}
	hub.Broadcast(ws.SyncStatusMessage(pending, online))
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	foodStore := store.NewFoodStore(db)
	planStore := store.NewPlanStore(db)
	recipeStore := store.NewRecipeStore(db)
	readyMealStore := store.NewReadyMealStore(db)
	shoppingStore := store.NewShoppingStore(db)
	ratingStore := store.NewRatingStore(db)
	syncStore := store.NewSyncStore(db)
	mirror := store.NewMirror(db)

	api := remote.NewClient(cfg.RemoteURL, cfg.RemoteKey)

	monitor := connectivity.NewMonitor(
		connectivity.HTTPProbe(cfg.RemoteURL),
		cfg.ProbeInterval,
		logger.With("component", "connectivity"),
	)

	processor := syncq.NewProcessor(syncStore, mirror, api, logger.With("component", "sync"))
	processor.OnChange(func() {
		broadcastSyncStatus(syncStore, hub, logger, monitor.Online())
	})

	// Offline to online runs a queue pass; every transition is pushed to
	// connected clients.
	monitor.Subscribe(func(online bool) {
		broadcastSyncStatus(syncStore, hub, logger, online)
		if online {
			go processor.Process(context.Background())
		}
	})

	pl := planner.New(planner.Config{
		Plans:      planStore,
		Foods:      foodStore,
		Recipes:    recipeStore,
		ReadyMeals: readyMealStore,
		Shopping:   shoppingStore,
		Ratings:    ratingStore,
		Queue:      syncStore,
		UserID:     cfg.UserID,
		Gate:       processor.Gate(),
		Logger:     logger.With("component", "planner"),
	})
	pl.OnWrite(func() {
		if monitor.Online() {
			go processor.Process(context.Background())
		}
	})

	offClient := openfood.NewClient(cfg.OpenFoodURL)
	resolver := barcode.NewResolver(
		logger.With("component", "barcode"),
		barcode.NewLocalTier(foodStore),
		barcode.NewRemoteTier(api, foodStore, monitor.Online),
		barcode.NewExternalTier(offClient, api, foodStore, syncStore, monitor.Online, cfg.UserID, logger.With("component", "barcode")),
	)

	var fitbitClient *fitbit.Client
	if cfg.FitbitToken != "" {
		fitbitClient = fitbit.NewClient(
			fitbit.StaticToken(cfg.FitbitToken),
			planStore, pl, logger.With("component", "fitbit"),
		)
	}

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:         db,
		hub:        hub,
		monitor:    monitor,
		processor:  processor,
		backupMgr:  backupMgr,
		syncStore:  syncStore,
		foodH:      handler.NewFoodHandler(pl, resolver, hub, logger.With("component", "food")),
		planH:      handler.NewPlanHandler(pl, fitbitClient, hub, logger.With("component", "plan")),
		shoppingH:  handler.NewShoppingHandler(pl, hub, logger.With("component", "shopping")),
		recipeH:    handler.NewRecipeHandler(pl, hub, logger.With("component", "recipe")),
		readyMealH: handler.NewReadyMealHandler(pl, hub, logger.With("component", "ready_meal")),
		syncH:      handler.NewSyncHandler(syncStore, processor, monitor, backupMgr, logger.With("component", "sync_api")),
		logger:     logger,
	}
}

// Start launches the connectivity monitor and the scheduled backup loop.
func (s *Server) Start(ctx context.Context) {
	s.monitor.Start(ctx)
	s.backupMgr.Start(ctx)
}

// Stop shuts both background loops down.
func (s *Server) Stop() {
	s.monitor.Stop()
	s.backupMgr.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Food items and barcode resolution
	mux.HandleFunc("GET /api/foods", s.foodH.List)
	mux.HandleFunc("POST /api/foods", s.foodH.Create)
	mux.HandleFunc("GET /api/foods/{id}", s.foodH.Get)
	mux.HandleFunc("PUT /api/foods/{id}", s.foodH.Update)
	mux.HandleFunc("DELETE /api/foods/{id}", s.foodH.Delete)
	mux.HandleFunc("POST /api/foods/{id}/stock", s.foodH.SetStock)
	mux.HandleFunc("GET /api/barcode/{code}", s.foodH.Lookup)

	// Meal plans
	mux.HandleFunc("GET /api/plans", s.planH.List)
	mux.HandleFunc("POST /api/plans/copy", s.planH.Copy)
	mux.HandleFunc("GET /api/plans/{date}", s.planH.GetByDate)
	mux.HandleFunc("GET /api/plans/{date}/nutrition", s.planH.Nutrition)
	mux.HandleFunc("POST /api/plans/{date}/fitbit", s.planH.PushFitbit)
	mux.HandleFunc("POST /api/meals/{id}/complete", s.planH.CompleteMeal)
	mux.HandleFunc("POST /api/meals/{meal_id}/items", s.planH.AddItem)
	mux.HandleFunc("PUT /api/meal-items/{id}", s.planH.UpdateItem)
	mux.HandleFunc("DELETE /api/meal-items/{id}", s.planH.DeleteItem)
	mux.HandleFunc("GET /api/suggestions", s.planH.Suggestions)

	// Recipes
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("POST /api/recipes", s.recipeH.Create)
	mux.HandleFunc("GET /api/recipes/{id}", s.recipeH.Get)
	mux.HandleFunc("PUT /api/recipes/{id}", s.recipeH.Update)
	mux.HandleFunc("DELETE /api/recipes/{id}", s.recipeH.Delete)
	mux.HandleFunc("POST /api/recipes/{id}/rating", s.recipeH.Rate)
	mux.HandleFunc("POST /api/recipes/{recipe_id}/ingredients", s.recipeH.AddIngredient)
	mux.HandleFunc("DELETE /api/recipes/{recipe_id}/ingredients/{id}", s.recipeH.DeleteIngredient)

	// Ready meals
	mux.HandleFunc("GET /api/ready-meals", s.readyMealH.List)
	mux.HandleFunc("POST /api/ready-meals", s.readyMealH.Create)
	mux.HandleFunc("GET /api/ready-meals/{id}", s.readyMealH.Get)
	mux.HandleFunc("PUT /api/ready-meals/{id}", s.readyMealH.Update)
	mux.HandleFunc("DELETE /api/ready-meals/{id}", s.readyMealH.Delete)
	mux.HandleFunc("POST /api/ready-meals/{id}/stock", s.readyMealH.SetStock)
	mux.HandleFunc("POST /api/ready-meals/{id}/rating", s.readyMealH.Rate)

	// Shopping lists
	mux.HandleFunc("GET /api/shopping-lists", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-lists/generate", s.shoppingH.Generate)
	mux.HandleFunc("GET /api/shopping-lists/{id}", s.shoppingH.Get)
	mux.HandleFunc("DELETE /api/shopping-lists/{id}", s.shoppingH.Delete)
	mux.HandleFunc("POST /api/shopping-lists/{id}/complete", s.shoppingH.Complete)
	mux.HandleFunc("POST /api/shopping-lists/{list_id}/items", s.shoppingH.AddItem)
	mux.HandleFunc("POST /api/shopping-lists/{list_id}/clear-purchased", s.shoppingH.ClearPurchased)
	mux.HandleFunc("POST /api/shopping-items/{id}/toggle", s.shoppingH.ToggleItem)
	mux.HandleFunc("DELETE /api/shopping-items/{id}", s.shoppingH.DeleteItem)

	// Sync queue and backups
	mux.HandleFunc("GET /api/sync/status", s.syncH.Status)
	mux.HandleFunc("POST /api/sync/trigger", s.syncH.Trigger)
	mux.HandleFunc("GET /api/sync/dead", s.syncH.ListDead)
	mux.HandleFunc("POST /api/sync/dead/{id}/requeue", s.syncH.Requeue)
	mux.HandleFunc("DELETE /api/sync/dead/{id}", s.syncH.Discard)
	mux.HandleFunc("GET /api/backups", s.syncH.BackupList)
	mux.HandleFunc("GET /api/backups/status", s.syncH.BackupStatus)
	mux.HandleFunc("POST /api/backups/run", s.syncH.BackupRun)
	mux.HandleFunc("POST /api/backups/restore", s.syncH.BackupRestore)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
