package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/iqbalhamzah/dinelink/utils"
)

// WebSocketAuthMiddleware authenticates dashboard websocket upgrades;
// browsers cannot set headers on ws connects so the token rides the query.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
