package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skywatchlabs/go-squawk-alert/internal/ingestion"
	"github.com/skywatchlabs/go-squawk-alert/internal/repository"
)

// CycleRunner is the manual-trigger surface: one call runs exactly the same
// cycle the poller runs on its timer.
type CycleRunner interface {
	RunCycle(ctx context.Context) (ingestion.CycleSummary, error)
}

type Handler struct {
	repo   repository.AlertedRepository
	runner CycleRunner
}

func NewHandler(repo repository.AlertedRepository, runner CycleRunner) *Handler {
	return &Handler{
		repo:   repo,
		runner: runner,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/api/alerts", h.getAlerts)
	r.POST("/api/check", h.runCheck)
	r.DELETE("/api/alerts/:hex", h.clearAlert)
	r.DELETE("/api/alerts", h.clearAlerts)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getAlerts returns the alerted aircraft as GeoJSON so they can be dropped
// straight onto a map.
func (h *Handler) getAlerts(c *gin.Context) {
	records, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch alerted aircraft",
		})
		return
	}

	fc := toGeoJSON(records)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// runCheck triggers one cycle on demand, identical to the scheduled one.
func (h *Handler) runCheck(c *gin.Context) {
	summary, err := h.runner.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "feed fetch failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// clearAlert removes one aircraft from the alerted set so it can trigger a
// fresh email on the next cycle.
func (h *Handler) clearAlert(c *gin.Context) {
	hex := c.Param("hex")

	removed, err := h.repo.Clear(c.Request.Context(), hex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to clear alert",
		})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no alert for " + hex,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": hex})
}

func (h *Handler) clearAlerts(c *gin.Context) {
	n, err := h.repo.ClearAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to clear alerted set",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": n})
}
