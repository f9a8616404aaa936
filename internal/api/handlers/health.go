package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rivalpit/backend/internal/matchmaking"
)

// HealthCheck reports liveness plus the matchmaking counters.
func HealthCheck(metrics *matchmaking.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"time":     time.Now().UTC(),
			"counters": metrics.Snapshot(),
		})
	}
}
