package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/middleware"
)

// NewRouter builds the health server routes. metrics serves /metrics when
// non-nil.
func NewRouter(health *HealthHandler, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	router.GET("/health", health.LivenessProbe)
	router.GET("/ready", health.ReadinessProbe)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return router
}
