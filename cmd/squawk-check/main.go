package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/skywatchlabs/go-squawk-alert/internal/config"
	"github.com/skywatchlabs/go-squawk-alert/internal/ingestion"
	"github.com/skywatchlabs/go-squawk-alert/internal/logging"
	"github.com/skywatchlabs/go-squawk-alert/internal/notify"
	"github.com/skywatchlabs/go-squawk-alert/internal/repository"
)

// squawk-check runs a single cycle and exits, for cron or systemd timers.
// Exit status is non-zero only when config is invalid or the feed fetch
// fails; per-aircraft failures are logged and retried on the next run.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	repo, err := repository.NewSQLiteDB(cfg.DB.Path)
	var store repository.AlertedRepository = repo
	if err != nil {
		slog.Warn("alert store unavailable, falling back to in-memory dedup", "path", cfg.DB.Path, "error", err)
		store = repository.NewMemoryStore()
	} else {
		defer repo.Close()
	}

	feed := ingestion.NewADSBXClient(cfg.Feed.URL, cfg.Feed.Timeout)
	notifier := notify.NewEmailNotifier(cfg.SMTP)
	mgr := ingestion.NewManager(cfg, feed, store, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Feed.Timeout+30*time.Second)
	defer cancel()

	summary, err := mgr.RunCycle(ctx)
	if err != nil {
		slog.Error("cycle failed", "error", err)
		os.Exit(1)
	}

	slog.Info("check complete",
		"fetched", summary.Fetched,
		"matched", summary.Matched,
		"notified", summary.Notified,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
}
