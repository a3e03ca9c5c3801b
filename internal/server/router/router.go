package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/server/handlers"
)

// New wires the Gin engine. webhook may be nil when WhatsApp is disabled.
func New(breeding *handlers.BreedingHandler, webhook *handlers.WebhookHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api/v1")
	{
		cattle := api.Group("/cattle/:id/breeding")
		cattle.POST("", breeding.Initialize)
		cattle.GET("", breeding.GetStatus)
		cattle.POST("/events", breeding.RecordEvent)
		cattle.GET("/details", breeding.GetDetails)

		herd := api.Group("/breeding")
		herd.GET("/attention", breeding.ListAttention)
		herd.GET("/statistics", breeding.GetStatistics)
		herd.POST("/recalculate", breeding.Recalculate)
	}

	if webhook != nil {
		r.GET("/webhook", webhook.Verify)
		r.POST("/webhook", webhook.Receive)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized", zap.Bool("webhook_enabled", webhook != nil))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
