package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/larder-app/larder/internal/backup"
	"github.com/larder-app/larder/internal/connectivity"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/store"
	"github.com/larder-app/larder/internal/syncq"
)

type SyncHandler struct {
	queue     *store.SyncStore
	processor *syncq.Processor
	monitor   *connectivity.Monitor
	backups   *backup.Manager
	logger    *slog.Logger
}

func NewSyncHandler(queue *store.SyncStore, processor *syncq.Processor, monitor *connectivity.Monitor, backups *backup.Manager, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		queue:     queue,
		processor: processor,
		monitor:   monitor,
		backups:   backups,
		logger:    logger,
	}
}

// Status serves GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.queue.CountPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count pending")
		return
	}
	dead, err := h.queue.ListDead()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dead entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online":  h.monitor.Online(),
		"pending": pending,
		"dead":    len(dead),
	})
}

// Trigger serves POST /api/sync/trigger: re-checks connectivity and runs one
// queue pass.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.monitor.Check(r.Context())
	if !h.monitor.Online() {
		writeJSON(w, http.StatusAccepted, map[string]any{"online": false})
		return
	}

	res, err := h.processor.Process(r.Context())
	if err != nil {
		h.logger.Error("manual sync", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online":    true,
		"processed": res.Processed,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	})
}

// ListDead serves GET /api/sync/dead.
func (h *SyncHandler) ListDead(w http.ResponseWriter, r *http.Request) {
	dead, err := h.queue.ListDead()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dead entries")
		return
	}
	if dead == nil {
		dead = []model.SyncEntry{}
	}
	writeJSON(w, http.StatusOK, dead)
}

func (h *SyncHandler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(idParam(r), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// Requeue serves POST /api/sync/dead/{id}/requeue.
func (h *SyncHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.queue.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err := h.queue.Requeue(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to requeue entry")
		return
	}
	if h.monitor.Online() {
		go h.processor.Process(context.Background())
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued"})
}

// Discard serves DELETE /api/sync/dead/{id}. The local row keeps its state;
// only the remote replay is abandoned.
func (h *SyncHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.queue.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to discard entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// --- Backup endpoints ---

func (h *SyncHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backups.Status())
}

func (h *SyncHandler) BackupList(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.backups.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snapshots == nil {
		snapshots = []backup.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (h *SyncHandler) BackupRun(w http.ResponseWriter, r *http.Request) {
	key, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (h *SyncHandler) BackupRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	// On success the process exits and restarts on the restored database, so
	// no response is written.
	if err := h.backups.Restore(r.Context(), req.Key); err != nil {
		h.logger.Error("restore", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
