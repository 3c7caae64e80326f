package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coursestore-backend/internal/shared/middleware"
	"coursestore-backend/internal/shared/response"
	"coursestore-backend/pkg/container"
)

// SetupRouter wires every route. Server-to-server callback endpoints
// are deliberately unauthenticated at the HTTP layer - the message
// signature is the authentication; refunds require a service JWT.
func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.ClientIPMiddleware())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck(c))

		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", c.PaymentHandler.Checkout)

			payments.POST("/liqpay/callback", c.PaymentHandler.LiqPayCallback)
			payments.POST("/liqpay/processed", c.PaymentHandler.LiqPayProcessed)
			payments.GET("/liqpay/wait", c.PaymentHandler.LiqPayWait)

			payments.POST("/fondy/result", c.PaymentHandler.FondyResult)
			payments.POST("/portmone/result", c.PaymentHandler.PortmoneResult)

			payments.POST("/privatparts/callback", c.PaymentHandler.PrivatPartsCallback)
			payments.GET("/privatparts/processed", c.PaymentHandler.PrivatPartsProcessed)

			internal := payments.Group("")
			internal.Use(middleware.AuthMiddleware(c.JWTManager))
			{
				internal.POST("/refunds", c.PaymentHandler.Refund)
				internal.GET("/records", c.PaymentHandler.ListRecords)
				internal.GET("/records/:id", c.PaymentHandler.GetRecord)
			}
		}
	}

	return router
}

func healthCheck(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		status := gin.H{
			"status":      "ok",
			"version":     c.Config.App.Version,
			"environment": c.Config.App.Environment,
		}

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			response.ErrorWithDetails(ctx, http.StatusServiceUnavailable, "SYS_002", "Service degraded", status)
			return
		}
		if err := c.Redis.HealthCheck(checkCtx); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			response.ErrorWithDetails(ctx, http.StatusServiceUnavailable, "SYS_002", "Service degraded", status)
			return
		}

		response.Success(ctx, http.StatusOK, status)
	}
}
