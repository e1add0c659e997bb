package handlers

import (
	"net/http"
	"strconv"

	"idle_tapper/internal/logger"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the top players by lifetime earnings from the
// remote snapshots.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	if h.Snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard unavailable"})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, 100)
	}

	top, err := h.Snapshots.TopEarners(c.Request.Context(), limit)
	if err != nil {
		logger.Error("leaderboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
