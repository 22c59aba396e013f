package server

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/store"
	ws "github.com/larder-app/larder/internal/websocket"
)

func TestBroadcastSyncStatus(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hub := ws.NewHub(logger)
	queue := store.NewSyncStore(db)

	if _, err := queue.Enqueue("food_items", "temp-x", model.OpInsert, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	broadcastSyncStatus(queue, hub, logger, true)
	if strings.Contains(buf.String(), "count pending sync entries") {
		t.Errorf("unexpected error log: %s", buf.String())
	}
}

func TestBroadcastSyncStatusLogsStoreFault(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hub := ws.NewHub(logger)

	broadcastSyncStatus(store.NewSyncStore(db), hub, logger, false)
	if !strings.Contains(buf.String(), "count pending sync entries") {
		t.Error("a failing count must be logged")
	}
}
