package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck health check endpoint
func (h *Handlers) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"session": h.session.Snapshot().State,
	})
}
