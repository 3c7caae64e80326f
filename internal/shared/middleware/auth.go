package middleware

import (
	"strings"

	"coursestore-backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware authenticates internal callers (order management,
// support tooling) on protected payment endpoints via a bearer JWT.
func AuthMiddleware(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := manager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("caller", claims.Subject)
		c.Set("caller_role", claims.Role)

		c.Next()
	}
}
