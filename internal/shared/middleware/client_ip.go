package middleware

import (
	"context"

	"coursestore-backend/internal/shared/utils"

	"github.com/gin-gonic/gin"
)

type clientIPKey struct{}

// ClientIPMiddleware extracts the client IP address from the request
// and injects it into the context for downstream handlers. Processor
// create/refund requests carry the buyer IP for fraud screening.
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := utils.ExtractClientIP(c)

		c.Set("client_ip", clientIP)

		ctx := context.WithValue(c.Request.Context(), clientIPKey{}, clientIP)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClientIPFromContext retrieves the client IP from context.
// Returns empty string if not found.
func GetClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}
