package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surecrm-network/internal/metrics"
)

// NewRouter собирает HTTP роутер: API аналитики, /metrics и /health
func NewRouter(h *Handler, mh *metrics.Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	if mh != nil {
		r.GET("/metrics", gin.WrapH(mh.MetricsHandler()))
		r.GET("/health", gin.WrapF(mh.HealthHandler))
	}

	v1 := r.Group("/api/v1")
	RegisterRoutes(v1, h)

	return r
}

// RegisterRoutes регистрирует маршруты аналитики агента
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	tenant := r.Group("/tenants/:tenantID")
	tenant.GET("/influencers", h.TopInfluencers)
	tenant.GET("/network-analysis", h.NetworkAnalysis)
	tenant.GET("/network-analysis/latest", h.LatestSnapshot)
	tenant.GET("/gratitude", h.GratitudeHistory)
	tenant.POST("/gratitude", h.CreateGratitude)
	tenant.PATCH("/gratitude/:id/status", h.UpdateGratitudeStatus)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.Debug("HTTP запрос",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)))
	}
}
