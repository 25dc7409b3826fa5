// Package handler provides the HTTP handlers of the daemon's health server.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

// Pinger checks database connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunReporter exposes the most recent pipeline run.
type RunReporter interface {
	LastRun() *models.RunSummary
}

// PublisherHealth reports broker connectivity.
type PublisherHealth interface {
	IsHealthy() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db        Pinger
	runs      RunReporter
	publisher PublisherHealth
}

// NewHealthHandler creates a new HealthHandler instance. publisher may be nil
// when no broker is configured.
func NewHealthHandler(db Pinger, runs RunReporter, publisher PublisherHealth) *HealthHandler {
	return &HealthHandler{
		db:        db,
		runs:      runs,
		publisher: publisher,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe reports the database, broker and last run. A failed last run
// makes the service not ready.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	// Check database connectivity
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now(),
		})
		return
	}

	// Check RabbitMQ connectivity
	if h.publisher != nil && !h.publisher.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "healthy",
			"rabbitmq": "unhealthy",
			"time":     time.Now(),
		})
		return
	}

	body := gin.H{
		"status":   "UP",
		"database": "healthy",
		"time":     time.Now(),
	}
	if h.publisher != nil {
		body["rabbitmq"] = "healthy"
	}

	var last *models.RunSummary
	if h.runs != nil {
		last = h.runs.LastRun()
	}
	if last == nil {
		body["last_run"] = nil
		c.JSON(http.StatusOK, body)
		return
	}

	body["last_run"] = gin.H{
		"run_id":       last.RunID,
		"status":       last.Status,
		"finished_at":  last.FinishedAt,
		"videos":       last.Videos,
		"failed_stage": last.FailedStage,
	}
	if last.Status == models.RunStatusFailed {
		body["status"] = "DOWN"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, body)
}
