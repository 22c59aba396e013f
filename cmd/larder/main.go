package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/larder-app/larder/internal/backup"
	"github.com/larder-app/larder/internal/database"
	"github.com/larder-app/larder/internal/logging"
	"github.com/larder-app/larder/internal/server"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envPositiveInt reads an integer knob. Unset, malformed, and non-positive
// values all come back as 0 so the caller's default applies.
func envPositiveInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func main() {
	logger := logging.Setup(os.Getenv("LARDER_LOG_LEVEL"))

	port := env("LARDER_PORT", "8080")
	dbPath := env("LARDER_DB_PATH", "larder.db")

	remoteURL := os.Getenv("LARDER_REMOTE_URL")
	if remoteURL == "" {
		slog.Error("LARDER_REMOTE_URL is required")
		os.Exit(1)
	}
	userID := os.Getenv("LARDER_USER_ID")
	if userID == "" {
		slog.Error("LARDER_USER_ID is required")
		os.Exit(1)
	}

	probeInterval := 30 * time.Second
	if secs := envPositiveInt("LARDER_PROBE_INTERVAL_SECONDS"); secs > 0 {
		probeInterval = time.Duration(secs) * time.Second
	}

	// Zero values let the backup manager apply its own defaults.
	backupInterval := time.Duration(envPositiveInt("LARDER_BACKUP_INTERVAL_HOURS")) * time.Hour
	retentionDays := envPositiveInt("LARDER_BACKUP_RETENTION_DAYS")

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		UserID:        userID,
		RemoteURL:     remoteURL,
		RemoteKey:     os.Getenv("LARDER_REMOTE_KEY"),
		OpenFoodURL:   os.Getenv("LARDER_OFF_URL"),
		FitbitToken:   os.Getenv("LARDER_FITBIT_TOKEN"),
		ProbeInterval: probeInterval,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("LARDER_S3_ENDPOINT"),
				Bucket:    os.Getenv("LARDER_S3_BUCKET"),
				Region:    env("LARDER_S3_REGION", "auto"),
				AccessKey: os.Getenv("LARDER_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("LARDER_S3_SECRET_KEY"),
				Prefix:    env("LARDER_S3_PREFIX", "larder"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("LARDER_BACKUP_PASSPHRASE"),
			Interval:      backupInterval,
			RetentionDays: retentionDays,
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("larder starting", "addr", ":"+port, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cancel()
	srv.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
