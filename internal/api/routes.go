package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/coinclash/backend/internal/api/handlers"
	"github.com/coinclash/backend/internal/channel"
	"github.com/coinclash/backend/internal/config"
	"github.com/coinclash/backend/internal/duel"
	"github.com/coinclash/backend/internal/matchmaking"
	"github.com/coinclash/backend/internal/middleware"
	"github.com/coinclash/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, ch channel.Channel, matcher *matchmaking.Matcher, store *duel.Store, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Auth endpoints
		auth := v1.Group("/auth")
		{
			auth.POST("/guest", handlers.GuestLogin(db, cfg))
		}

		v1.GET("/me", middleware.AuthRequired(cfg), handlers.GetProfile(db))

		// Duel endpoints
		duels := v1.Group("/duel", middleware.AuthRequired(cfg))
		{
			duels.POST("/join", handlers.JoinQueue(matcher, cfg))
			duels.POST("/cancel", handlers.CancelQueue(matcher))
			duels.GET("/queue/status", handlers.QueueStatus(matcher))
			duels.GET("/:id", handlers.GetDuel(store))
			duels.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleDuelWebSocket(ch, store))
		}
	}
}
