package monitor

import (
	"time"

	"review-quorum-api/config"
	"review-quorum-api/services"

	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// RegisterMonitorRoutes mounts the ops status endpoint. It reports process
// uptime, store reachability, and the latest reaper sweep summary.
func RegisterMonitorRoutes(router *gin.Engine) {
	router.GET("/monitor/status", func(c *gin.Context) {
		dbStatus := "ok"
		if sqlDB, err := config.DB.DB(); err != nil {
			dbStatus = "error: " + err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":         "ok",
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"database":       dbStatus,
			"last_sweep":     services.LastSweepSummary(),
		})
	})
}
