package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triplink/triplink-backend/internal/database"
)

// HealthCheck reports database reachability and whether the chat assistant
// finished warming up
func HealthCheck(db database.DB, chatReady <-chan struct{}, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		chat := "starting"
		select {
		case <-chatReady:
			chat = "ready"
		default:
		}

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"chat":     chat,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"chat":      chat,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
