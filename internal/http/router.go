// Package http assembles the gin engine: health checks and the bot webhook.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"lechuga_bot_backend/internal/messaging"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/httpkit"
	"lechuga_bot_backend/platform/logger"
)

// RouterConfig combines the config interfaces the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.TelegramConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New builds the HTTP engine. The webhook route is protected by the bot
// API secret header and a per-IP rate limit.
func New(cfg RouterConfig, health HealthChecker, webhook *messaging.WebhookHandler, log *logger.Logger, env string) *gin.Engine {
	if env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())

	if origins := cfg.GetCORSOrigins(); len(origins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			MaxAge:           12 * time.Hour,
			AllowCredentials: false,
		}))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		if err := health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, log)
	engine.POST("/api/v1/webhook/telegram",
		limiter.RateLimit(),
		httpkit.WebhookSecret("X-Telegram-Bot-Api-Secret-Token", cfg.GetTelegramWebhookSecret()),
		webhook.HandleUpdate,
	)

	return engine
}
