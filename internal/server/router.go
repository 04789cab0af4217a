// Package server exposes the inbound-parse webhook over HTTP.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Setup configures the Gin engine with the webhook routes.
func Setup(h *WebhookHandler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/webhook", h.HandleInbound)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
