package handlers

import (
	"net/http"

	"idle_tapper/internal/logger"
	"idle_tapper/internal/ws"

	"github.com/gin-gonic/gin"
)

// WS upgrades to a websocket that streams the player's events. Browsers
// cannot set headers on the handshake, so the token comes in the query.
func (h *Handler) WS(hub *ws.Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := ws.Upgrader(allowedOrigin)
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		playerID, err := h.Authn.ParseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := ws.NewClient(playerID, conn, hub)
		go client.Run()
	}
}
