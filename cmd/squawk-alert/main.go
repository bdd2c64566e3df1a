package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/skywatchlabs/go-squawk-alert/internal/api"
	"github.com/skywatchlabs/go-squawk-alert/internal/config"
	"github.com/skywatchlabs/go-squawk-alert/internal/ingestion"
	"github.com/skywatchlabs/go-squawk-alert/internal/logging"
	"github.com/skywatchlabs/go-squawk-alert/internal/notify"
	"github.com/skywatchlabs/go-squawk-alert/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Monitor starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	repo := openRepository(cfg.DB.Path)
	if closer, ok := repo.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := ingestion.NewADSBXClient(cfg.Feed.URL, cfg.Feed.Timeout)
	notifier := notify.NewEmailNotifier(cfg.SMTP)

	mgr := ingestion.NewManager(cfg, feed, repo, notifier)
	mgr.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(5)) // 5 req/s global limit

	handler := api.NewHandler(repo, mgr)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// openRepository fails open: if the sqlite file cannot be used, the monitor
// still runs, with dedup held in memory only. Under-alerting is worse than
// the occasional duplicate email.
func openRepository(path string) repository.AlertedRepository {
	db, err := repository.NewSQLiteDB(path)
	if err != nil {
		slog.Warn("alert store unavailable, falling back to in-memory dedup", "path", path, "error", err)
		return repository.NewMemoryStore()
	}
	return db
}
