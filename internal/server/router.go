package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axai-ai/docstore/internal/data/cache"
	"github.com/axai-ai/docstore/internal/data/db"
	"github.com/axai-ai/docstore/internal/observability"
)

// RouterConfig wires the operational surface: health, pool stats, cache
// stats and metrics. The data layer itself is consumed as a library; these
// routes exist for monitoring and deployment checks.
type RouterConfig struct {
	DB      *db.Service
	Cache   cache.Store
	Metrics *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.DB != nil {
			if err := cfg.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/stats/db", func(c *gin.Context) {
		if cfg.DB == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not configured"})
			return
		}
		stats, err := cfg.DB.Stats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration_ms": stats.WaitDuration.Milliseconds(),
			"max_open":         stats.MaxOpenConnections,
		})
	})

	router.GET("/stats/cache", func(c *gin.Context) {
		if cfg.Cache == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not configured"})
			return
		}
		c.JSON(http.StatusOK, cfg.Cache.Stats())
	})

	router.GET("/stats/repos", func(c *gin.Context) {
		if cfg.Metrics == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
			return
		}
		c.JSON(http.StatusOK, cfg.Metrics.Snapshot())
	})

	router.GET("/metrics", func(c *gin.Context) {
		cfg.Metrics.WriteHTTP(c.Writer, c.Request)
	})

	return router
}
