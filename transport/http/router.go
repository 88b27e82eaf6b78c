// Package http wires the auth service and anomaly proxy into a gin router.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onchain-guard/gatekeeper/adapters/anomaly"
	"github.com/onchain-guard/gatekeeper/service"
)

// SetupRouter sets up the Gin router. anomalyClient may be nil when the
// scoring backend is not configured; the proxy routes are then omitted.
func SetupRouter(authService *service.AuthService, anomalyClient *anomaly.Client) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.GET("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	api := router.Group("/api")

	// Protected identity routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/me", handlers.Me)
		protected.GET("/authorize", handlers.Authorize)
	}

	// Public display-data routes proxied to the scoring backend. Scores
	// are public stats, so no ownership check ties them to the session.
	if anomalyClient != nil {
		proxy := NewAnomalyHandlers(anomalyClient)
		api.GET("/anomalies", proxy.List)
		api.GET("/anomaly/:address", proxy.Wallet)
		api.GET("/anomaly-history/:address", proxy.History)
		api.GET("/transfers/:address", proxy.Transfers)
	}

	return router
}
