package middleware

import (
	"net/http"
	"strings"

	"idle_tapper/internal/auth"

	"github.com/gin-gonic/gin"
)

// UserIDKey is where JWT stores the authenticated player id.
const UserIDKey = "user_id"

// JWT requires a bearer token and stores the player id in the context.
func JWT(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		playerID, err := a.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, playerID)
		c.Next()
	}
}
